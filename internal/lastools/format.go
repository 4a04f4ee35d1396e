package lastools

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatNumber renders f in its shortest exact decimal form: 2, 0.5, 0.333.
// LAStools parses these with atof, so exponents are never emitted. NaN and
// infinities have no decimal form and are rejected with ErrInvalidParam.
func FormatNumber(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("%w: %v is not a finite number", ErrInvalidParam, f)
	}
	return decimal.NewFromFloat(f).String(), nil
}

// QuoteArg quotes a token for display when it contains whitespace.
func QuoteArg(s string) string {
	if s == "" {
		return `""`
	}
	if !strings.ContainsAny(s, " \t") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// JoinCommandLine renders argv as the single command line shown to the
// user and stored in the run history.
func JoinCommandLine(argv []string) string {
	parts := make([]string, len(argv))
	for i, a := range argv {
		parts[i] = QuoteArg(a)
	}
	return strings.Join(parts, " ")
}
