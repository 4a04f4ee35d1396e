package lastools

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/banshee-data/lasrun/internal/fsutil"
)

// Locator resolves LAStools executables for the current host.
type Locator struct {
	// Folder is the LAStools installation root.
	Folder string
	// WineFolder holds the wine executable. Ignored on Windows.
	WineFolder string
	// GOOS is the target platform, runtime.GOOS unless overridden in tests.
	GOOS string
	FS   fsutil.FileSystem
}

// NewLocator creates a Locator for this host.
func NewLocator(folder, wineFolder string) *Locator {
	return &Locator{
		Folder:     folder,
		WineFolder: wineFolder,
		GOOS:       runtime.GOOS,
		FS:         fsutil.OSFileSystem{},
	}
}

// DefaultFolder is where LAStools is looked for when nothing is configured.
func DefaultFolder(goos string) string {
	if goos == "windows" {
		return `C:\LAStools`
	}
	return "/opt/LAStools"
}

func (l *Locator) isWindows() bool { return l.GOOS == "windows" }

// HasWine reports whether Windows executables are run through wine.
func (l *Locator) HasWine() bool {
	return !l.isWindows() && l.WineFolder != ""
}

// ExitCodeReliable reports whether process exit codes can be trusted.
// LAStools exit codes are unreliable on Windows and under wine.
func (l *Locator) ExitCodeReliable() bool {
	return !l.isWindows() && !l.HasWine()
}

// BinDir returns the folder holding the executables.
func (l *Locator) BinDir() string {
	return l.join(l.Folder, "bin")
}

// Executable returns the argv prefix that starts the named tool.
func (l *Locator) Executable(name string, cpu64 bool) []string {
	if cpu64 {
		name += "64"
	}
	switch {
	case l.isWindows():
		return []string{l.join(l.BinDir(), name+".exe")}
	case l.HasWine():
		return []string{l.join(l.WineFolder, "wine"), l.join(l.BinDir(), name+".exe")}
	default:
		return []string{l.join(l.BinDir(), name)}
	}
}

// Check verifies that the executable folder exists.
func (l *Locator) Check() error {
	dir := l.BinDir()
	info, err := l.FS.Stat(dir)
	if err != nil {
		return fmt.Errorf("LAStools folder %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("LAStools folder %s is not a directory", dir)
	}
	if l.HasWine() && !l.FS.Exists(l.join(l.WineFolder, "wine")) {
		return fmt.Errorf("wine not found in %s", l.WineFolder)
	}
	return nil
}

// join uses the separator of the target platform, which is not always the
// platform the tests run on.
func (l *Locator) join(elem ...string) string {
	sep := "/"
	if l.isWindows() {
		sep = `\`
	}
	parts := make([]string, 0, len(elem))
	for i, e := range elem {
		if i > 0 {
			e = strings.TrimLeft(e, `/\`)
		}
		if i < len(elem)-1 {
			e = strings.TrimRight(e, `/\`)
		}
		if e != "" {
			parts = append(parts, e)
		}
	}
	return strings.Join(parts, sep)
}
