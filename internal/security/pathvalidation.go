// Package security guards the file paths that reach LAStools when tool
// parameters arrive from untrusted callers (the remote runner service).
package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidatePathWithinDirectory checks that filePath resolves inside safeDir.
// Symlinks are resolved for the path itself when it exists, or for its
// nearest existing ancestor when it does not (output files usually don't
// exist yet), so a symlinked directory cannot be used to escape safeDir.
func ValidatePathWithinDirectory(filePath, safeDir string) error {
	absPath, err := filepath.Abs(filepath.Clean(filePath))
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	absSafeDir, err := filepath.Abs(safeDir)
	if err != nil {
		return fmt.Errorf("failed to resolve safe directory path: %w", err)
	}

	canonicalSafeDir, err := filepath.EvalSymlinks(absSafeDir)
	if err != nil {
		return fmt.Errorf("failed to resolve safe directory symlinks: %w", err)
	}

	relPath, err := filepath.Rel(canonicalSafeDir, canonicalize(absPath))
	if err != nil {
		return fmt.Errorf("path is outside safe directory: %w", err)
	}

	if relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) || filepath.IsAbs(relPath) {
		return fmt.Errorf("path traversal detected: %s attempts to escape %s", filePath, safeDir)
	}
	return nil
}

// canonicalize resolves symlinks in absPath, falling back to the deepest
// existing ancestor when the path itself does not exist.
func canonicalize(absPath string) string {
	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		return resolved
	}
	for dir := filepath.Dir(absPath); ; dir = filepath.Dir(dir) {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			rel, _ := filepath.Rel(dir, absPath)
			return filepath.Join(resolved, rel)
		}
		if filepath.Dir(dir) == dir {
			return absPath
		}
	}
}

// ValidatePathWithinAllowedDirs checks if a file path is within any of the allowed directories.
// Returns nil if the path is valid, or an error describing why it was rejected.
func ValidatePathWithinAllowedDirs(filePath string, allowedDirs []string) error {
	if len(allowedDirs) == 0 {
		return fmt.Errorf("no allowed directories specified")
	}

	for _, dir := range allowedDirs {
		if err := ValidatePathWithinDirectory(filePath, dir); err == nil {
			return nil
		}
	}
	return fmt.Errorf("path %s must be within one of the allowed directories: %v", filePath, allowedDirs)
}

// ValidatePatternWithinAllowedDirs validates an input pattern such as
// "/data/tiles/*.laz". Only the part before the first wildcard is checked,
// which is the directory LAStools will expand the pattern in.
func ValidatePatternWithinAllowedDirs(pattern string, allowedDirs []string) error {
	idx := strings.IndexAny(pattern, "*?[")
	if idx < 0 {
		return ValidatePathWithinAllowedDirs(pattern, allowedDirs)
	}
	if strings.Contains(pattern[idx:], string(filepath.Separator)) || strings.Contains(pattern[idx:], "/") {
		return fmt.Errorf("wildcards are only allowed in the file name: %s", pattern)
	}
	return ValidatePathWithinAllowedDirs(filepath.Dir(pattern[:idx]+"x"), allowedDirs)
}

// SanitizeFilename makes a safe filename from an arbitrary string. Runs of
// characters other than ASCII letters, digits, dot, underscore or dash become
// one underscore. Leading dots and trailing dots or underscores are trimmed
// and the result is capped at 128 bytes. A safe name comes back unchanged.
func SanitizeFilename(s string) string {
	const maxLen = 128
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxLen {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'),
			r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
			lastUnderscore = r == '_'
		default:
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.TrimRight(strings.TrimLeft(b.String(), "."), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
