// Package testutil provides shared test fixtures: LAStools environments
// that never start a process and a few HTTP assertions.
package testutil

import (
	"testing"
	"time"

	"github.com/banshee-data/lasrun/internal/fsutil"
	"github.com/banshee-data/lasrun/internal/lastools"
	"github.com/banshee-data/lasrun/internal/timeutil"
)

// Epoch is the start time of every fixture clock.
var Epoch = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

// MockEnv returns an environment whose locator resolves binaries under
// folder as if running on goos, and whose runner hands every command to
// the returned builder. Each clock reading advances one second, so every
// run lasts exactly 1s.
func MockEnv(goos, folder string) (*lastools.Env, *lastools.MockCommandBuilder) {
	builder := lastools.NewMockCommandBuilder()
	loc := &lastools.Locator{Folder: folder, GOOS: goos, FS: fsutil.NewMemoryFileSystem()}
	env := &lastools.Env{
		Locator: loc,
		Runner: &lastools.Runner{
			Builder:       builder,
			Clock:         timeutil.NewSteppingClock(Epoch, time.Second),
			TrustExitCode: loc.ExitCodeReliable(),
		},
		FS: fsutil.NewMemoryFileSystem(),
	}
	return env, builder
}

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}
