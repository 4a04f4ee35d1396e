// Package lastools assembles LAStools command lines from typed parameters
// and runs the external executables, natively or through wine, streaming
// their console output to a Feedback sink.
package lastools

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

// Sentinel is the key of the "nothing selected" choice of an Enum.
const Sentinel = "---"

var (
	// ErrMissingParam is returned when a required parameter has no value.
	ErrMissingParam = errors.New("missing required parameter")

	// ErrInvalidParam is returned when a parameter value cannot be used.
	ErrInvalidParam = errors.New("invalid parameter")
)

// Param is one declared tool parameter. Define registers it as a flag and
// Commands appends the tokens for its resolved value. A value equal to the
// parameter's default produces no tokens.
type Param interface {
	Define(fs *pflag.FlagSet)
	Commands(cmds []string, fs *pflag.FlagSet) ([]string, error)
}

// PathParam is implemented by parameters whose values name files, folders
// or file patterns. Only non-empty values are returned.
type PathParam interface {
	Param
	PathValues(fs *pflag.FlagSet) []string
}

// Role marks the parameters that Production replaces.
type Role int

const (
	RoleNone Role = iota
	RoleInput
	RoleOutput
)

type roled interface {
	role() Role
}

func roleOf(p Param) Role {
	if r, ok := p.(roled); ok {
		return r.role()
	}
	return RoleNone
}

// Bool appends Tokens when the flag is true. A Bool without tokens only
// carries a setting (cpu64, halt_on_error).
type Bool struct {
	Name    string
	Usage   string
	Default bool
	Tokens  []string
}

func (p *Bool) Define(fs *pflag.FlagSet) {
	fs.Bool(p.Name, p.Default, p.Usage)
}

func (p *Bool) Commands(cmds []string, fs *pflag.FlagSet) ([]string, error) {
	v, err := fs.GetBool(p.Name)
	if err != nil {
		return cmds, err
	}
	if v && v != p.Default {
		cmds = append(cmds, p.Tokens...)
	}
	return cmds, nil
}

// Number appends Flag and the value when the value differs from Default.
// Values are rendered with FormatNumber.
type Number struct {
	Name    string
	Usage   string
	Flag    string
	Default float64
}

func (p *Number) Define(fs *pflag.FlagSet) {
	fs.Float64(p.Name, p.Default, p.Usage)
}

func (p *Number) Commands(cmds []string, fs *pflag.FlagSet) ([]string, error) {
	v, err := fs.GetFloat64(p.Name)
	if err != nil {
		return cmds, err
	}
	if v == p.Default {
		return cmds, nil
	}
	n, err := FormatNumber(v)
	if err != nil {
		return cmds, fmt.Errorf("--%s: %w", p.Name, err)
	}
	return append(cmds, p.Flag, n), nil
}

// Int appends Flag and the value when the value differs from Default and
// is greater than Above.
type Int struct {
	Name    string
	Usage   string
	Flag    string
	Default int
	Above   int
}

func (p *Int) Define(fs *pflag.FlagSet) {
	fs.Int(p.Name, p.Default, p.Usage)
}

func (p *Int) Commands(cmds []string, fs *pflag.FlagSet) ([]string, error) {
	v, err := fs.GetInt(p.Name)
	if err != nil {
		return cmds, err
	}
	if v != p.Default && v > p.Above {
		cmds = append(cmds, p.Flag, strconv.Itoa(v))
	}
	return cmds, nil
}

// Text appends Flag and the value when it is non-empty and differs from
// Default. Without a Flag the value is split on whitespace and appended
// verbatim, which is how additional options reach the command line.
type Text struct {
	Name     string
	Usage    string
	Flag     string
	Default  string
	Required bool
}

func (p *Text) Define(fs *pflag.FlagSet) {
	fs.String(p.Name, p.Default, p.Usage)
}

func (p *Text) Commands(cmds []string, fs *pflag.FlagSet) ([]string, error) {
	v, err := fs.GetString(p.Name)
	if err != nil {
		return cmds, err
	}
	v = strings.TrimSpace(v)
	if v == "" {
		if p.Required {
			return cmds, fmt.Errorf("%w: --%s", ErrMissingParam, p.Name)
		}
		return cmds, nil
	}
	if p.Flag == "" {
		return append(cmds, strings.Fields(v)...), nil
	}
	if v == p.Default {
		return cmds, nil
	}
	return append(cmds, p.Flag, v), nil
}

// File appends Flag and the path. A File without a Flag only carries a
// path for the tool's own use (temporary directory).
type File struct {
	Name     string
	Usage    string
	Flag     string
	Required bool
	Role     Role
}

func (p *File) Define(fs *pflag.FlagSet) {
	fs.String(p.Name, "", p.Usage)
}

func (p *File) Commands(cmds []string, fs *pflag.FlagSet) ([]string, error) {
	v, err := fs.GetString(p.Name)
	if err != nil {
		return cmds, err
	}
	if v == "" {
		if p.Required {
			return cmds, fmt.Errorf("%w: --%s", ErrMissingParam, p.Name)
		}
		return cmds, nil
	}
	if p.Flag == "" {
		return cmds, nil
	}
	return append(cmds, p.Flag, v), nil
}

func (p *File) PathValues(fs *pflag.FlagSet) []string {
	v, _ := fs.GetString(p.Name)
	if v == "" {
		return nil
	}
	return []string{v}
}

func (p *File) role() Role { return p.Role }

// Choice is one option of an Enum. Key is what the user types.
type Choice struct {
	Key    string
	Tokens []string
}

// Choices builds choices whose tokens are "-<key>".
func Choices(keys ...string) []Choice {
	out := make([]Choice, 0, len(keys))
	for _, k := range keys {
		if k == Sentinel {
			out = append(out, Choice{Key: k})
			continue
		}
		out = append(out, Choice{Key: k, Tokens: []string{"-" + k}})
	}
	return out
}

// Enum selects one of Choices and appends that choice's tokens. The default
// choice produces no tokens unless Always is set.
type Enum struct {
	Name    string
	Usage   string
	Choices []Choice
	Default int
	Always  bool
}

func (p *Enum) Define(fs *pflag.FlagSet) {
	v := &choiceValue{choices: p.Choices, index: p.Default}
	fs.Var(v, p.Name, p.Usage+" ("+strings.Join(v.keys(), "|")+")")
}

func (p *Enum) Commands(cmds []string, fs *pflag.FlagSet) ([]string, error) {
	idx, err := choiceIndex(fs, p.Name)
	if err != nil {
		return cmds, err
	}
	if idx == p.Default && !p.Always {
		return cmds, nil
	}
	return append(cmds, p.Choices[idx].Tokens...), nil
}

// Switch is an Enum whose choices map directly onto Prefix+key flags, as
// in -olaz or -otif. A switch always emits its choice.
type Switch struct {
	Name    string
	Usage   string
	Prefix  string
	Choices []string
	Default int
}

func (p *Switch) enum() *Enum {
	cs := make([]Choice, len(p.Choices))
	for i, k := range p.Choices {
		cs[i] = Choice{Key: k, Tokens: []string{p.Prefix + k}}
	}
	return &Enum{Name: p.Name, Usage: p.Usage, Choices: cs, Default: p.Default, Always: true}
}

func (p *Switch) Define(fs *pflag.FlagSet) { p.enum().Define(fs) }

func (p *Switch) Commands(cmds []string, fs *pflag.FlagSet) ([]string, error) {
	return p.enum().Commands(cmds, fs)
}

// Compound is a toggle with a value: when the bool flag <name> is set,
// Flag is appended followed by the whitespace-separated values of
// <name>_value, as in "-drop_above 30" or "-translate_xyz 0 0 10".
type Compound struct {
	Name    string
	Usage   string
	Flag    string
	Default string
}

func (p *Compound) Define(fs *pflag.FlagSet) {
	fs.Bool(p.Name, false, p.Usage)
	fs.String(p.Name+"_value", p.Default, "value for --"+p.Name)
}

func (p *Compound) Commands(cmds []string, fs *pflag.FlagSet) ([]string, error) {
	on, err := fs.GetBool(p.Name)
	if err != nil || !on {
		return cmds, err
	}
	v, err := fs.GetString(p.Name + "_value")
	if err != nil {
		return cmds, err
	}
	vals, err := valueTokens(p.Name, v)
	if err != nil {
		return cmds, err
	}
	if len(vals) == 0 {
		return cmds, fmt.Errorf("%w: --%s_value", ErrMissingParam, p.Name)
	}
	return append(append(cmds, p.Flag), vals...), nil
}

// Operation selects one of Ops and appends "-<op>" followed by the values
// of <name>_value. Used by the filter and transform parameters.
type Operation struct {
	Name  string
	Usage string
	Ops   []string
}

func (p *Operation) Define(fs *pflag.FlagSet) {
	keys := append([]string{Sentinel}, p.Ops...)
	(&Enum{Name: p.Name, Usage: p.Usage, Choices: Choices(keys...)}).Define(fs)
	fs.String(p.Name+"_value", "", "value(s) for --"+p.Name)
}

func (p *Operation) Commands(cmds []string, fs *pflag.FlagSet) ([]string, error) {
	idx, err := choiceIndex(fs, p.Name)
	if err != nil || idx == 0 {
		return cmds, err
	}
	v, err := fs.GetString(p.Name + "_value")
	if err != nil {
		return cmds, err
	}
	vals, err := valueTokens(p.Name, v)
	if err != nil {
		return cmds, err
	}
	if len(vals) == 0 {
		return cmds, fmt.Errorf("%w: --%s_value for -%s", ErrMissingParam, p.Name, p.Ops[idx-1])
	}
	return append(append(cmds, "-"+p.Ops[idx-1]), vals...), nil
}

// valueTokens splits the value of a Compound or Operation. Every token
// must be a number or a plain word such as "z", "utm" or "32north"; flags
// and paths are refused so one value cannot add arguments of its own.
func valueTokens(name, v string) ([]string, error) {
	vals := strings.Fields(v)
	for _, tok := range vals {
		if _, err := strconv.ParseFloat(tok, 64); err == nil || isWord(tok) {
			continue
		}
		return nil, fmt.Errorf("%w: --%s_value: %q is neither a number nor a word", ErrInvalidParam, name, tok)
	}
	return vals, nil
}

func isWord(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return s != ""
}

// choiceValue is the pflag.Value behind Enum flags. It accepts a choice key
// or its index.
type choiceValue struct {
	choices []Choice
	index   int
}

func (v *choiceValue) keys() []string {
	out := make([]string, len(v.choices))
	for i, c := range v.choices {
		out[i] = c.Key
	}
	return out
}

func (v *choiceValue) String() string {
	if v.index < 0 || v.index >= len(v.choices) {
		return ""
	}
	return v.choices[v.index].Key
}

func (v *choiceValue) Set(s string) error {
	for i, c := range v.choices {
		if c.Key == s {
			v.index = i
			return nil
		}
	}
	if i, err := strconv.Atoi(s); err == nil && i >= 0 && i < len(v.choices) {
		v.index = i
		return nil
	}
	return fmt.Errorf("%w: %q is not one of %s", ErrInvalidParam, s, strings.Join(v.keys(), ", "))
}

func (v *choiceValue) Type() string { return "choice" }

func choiceIndex(fs *pflag.FlagSet, name string) (int, error) {
	f := fs.Lookup(name)
	if f == nil {
		return 0, fmt.Errorf("flag accessed but not defined: %s", name)
	}
	cv, ok := f.Value.(*choiceValue)
	if !ok {
		return 0, fmt.Errorf("flag %s is not a choice", name)
	}
	return cv.index, nil
}
