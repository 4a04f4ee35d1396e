package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/lasrun/internal/fsutil"
	"github.com/banshee-data/lasrun/internal/lastools"
	"github.com/banshee-data/lasrun/internal/timeutil"
)

type fakeRecorder struct {
	runs      []*lastools.Result
	pipelines []*lastools.PipelineRun
}

func (f *fakeRecorder) RecordRun(_ context.Context, res *lastools.Result) error {
	f.runs = append(f.runs, res)
	return nil
}

func (f *fakeRecorder) RecordPipelineRun(_ context.Context, run *lastools.PipelineRun) error {
	f.pipelines = append(f.pipelines, run)
	return nil
}

func fixedRunID(t *testing.T) {
	t.Helper()
	prev := newRunID
	newRunID = func() string { return "run-1" }
	t.Cleanup(func() { newRunID = prev })
}

func testEnv() (*lastools.Env, *lastools.MockCommandBuilder, *fakeRecorder) {
	builder := lastools.NewMockCommandBuilder()
	rec := &fakeRecorder{}
	env := &lastools.Env{
		Locator: &lastools.Locator{Folder: "/opt/LAStools", GOOS: "linux", FS: fsutil.NewMemoryFileSystem()},
		Runner: &lastools.Runner{
			Builder:       builder,
			Clock:         timeutil.NewSteppingClock(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), time.Second),
			TrustExitCode: true,
			Recorder:      rec,
		},
		FS: fsutil.NewMemoryFileSystem(),
	}
	return env, builder, rec
}

// failOn makes every command whose executable contains name print an
// ERROR: line.
func failOn(name string) func(string, []string) *lastools.MockCommandExecutor {
	return func(exe string, _ []string) *lastools.MockCommandExecutor {
		if strings.Contains(exe, name) {
			return &lastools.MockCommandExecutor{Output: []byte("ERROR: cannot open input\n"), ExitCode: 1}
		}
		return &lastools.MockCommandExecutor{Output: []byte("done\n")}
	}
}

func threeStages() *Pipeline {
	return &Pipeline{
		Name: "test",
		Stages: []Stage{
			{Name: "tile", Tool: "lastile", Argv: []string{"lastile", "-i", "a.laz"}},
			{Name: "ground", Tool: "lasground", Argv: []string{"lasground", "-i", "tile*.laz"}},
			{Name: "dem", Tool: "las2dem", Argv: []string{"las2dem", "-i", "tile*_g.laz"}},
		},
	}
}

func TestExecute_ContinuesAfterFailure(t *testing.T) {
	fixedRunID(t)
	env, builder, rec := testEnv()
	builder.ExecutorFactory = failOn("lasground")
	fb := &lastools.CaptureFeedback{}

	results, err := Execute(context.Background(), env, threeStages(), fb)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, lastools.StatusOK, results[0].Status)
	assert.Equal(t, lastools.StatusError, results[1].Status)
	assert.Equal(t, lastools.StatusOK, results[2].Status)
	assert.True(t, errors.Is(lastools.FirstFailure(results), lastools.ErrToolFailed))

	for _, r := range results {
		assert.Equal(t, "run-1", r.PipelineRunID)
	}
	assert.Equal(t, "ground", results[1].Stage)

	require.Len(t, rec.pipelines, 1)
	run := rec.pipelines[0]
	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, 3, run.Stages)
	assert.Equal(t, 1, run.Failed)
	assert.Equal(t, lastools.StatusError, run.Status)
	assert.Len(t, rec.runs, 3)
	assert.Contains(t, fb.Texts(lastools.LevelInfo), "test: stage 2/3 ground")
}

func TestExecute_HaltOnError(t *testing.T) {
	env, builder, rec := testEnv()
	builder.ExecutorFactory = failOn("lasground")
	p := threeStages()
	p.HaltOnError = true

	results, err := Execute(context.Background(), env, p, &lastools.CaptureFeedback{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, lastools.ErrToolFailed))
	assert.Contains(t, err.Error(), "stage ground")
	assert.Len(t, results, 2)
	assert.Len(t, builder.Commands, 2)
	require.Len(t, rec.pipelines, 1)
	assert.NotEmpty(t, rec.pipelines[0].ID)
}

func TestExecute_StartFailureContinues(t *testing.T) {
	env, builder, rec := testEnv()
	builder.ExecutorFactory = func(exe string, _ []string) *lastools.MockCommandExecutor {
		if exe == "lastile" {
			return &lastools.MockCommandExecutor{ExitCode: -1, Err: errors.New("exec: \"lastile\": executable file not found")}
		}
		return &lastools.MockCommandExecutor{}
	}
	fb := &lastools.CaptureFeedback{}

	results, err := Execute(context.Background(), env, threeStages(), fb)
	require.NoError(t, err)
	assert.Len(t, results, 3)
	assert.Len(t, builder.Commands, 3)
	assert.Equal(t, 1, rec.pipelines[0].Failed)
	assert.NotEmpty(t, fb.Texts(lastools.LevelWarning))
}

func TestExecute_Cancelled(t *testing.T) {
	env, builder, _ := testEnv()
	ctx, cancel := context.WithCancel(context.Background())
	builder.ExecutorFactory = func(string, []string) *lastools.MockCommandExecutor {
		cancel()
		return &lastools.MockCommandExecutor{ExitCode: -1, Err: errors.New("signal: killed")}
	}

	results, err := Execute(ctx, env, threeStages(), &lastools.CaptureFeedback{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Len(t, results, 1)
}

func TestExecute_WarningsAndDryRun(t *testing.T) {
	env, builder, rec := testEnv()
	builder.ExecutorFactory = func(string, []string) *lastools.MockCommandExecutor {
		return &lastools.MockCommandExecutor{Output: []byte("WARNING: empty tile\n")}
	}
	_, err := Execute(context.Background(), env, threeStages(), &lastools.CaptureFeedback{})
	require.NoError(t, err)
	assert.Equal(t, lastools.StatusWarning, rec.pipelines[0].Status)

	env.Runner.DryRun = true
	_, err = Execute(context.Background(), env, threeStages(), &lastools.CaptureFeedback{})
	require.NoError(t, err)
	assert.Equal(t, lastools.StatusDryRun, rec.pipelines[1].Status)
}

func definition(t *testing.T, name string) *Definition {
	t.Helper()
	for _, d := range Definitions() {
		if d.Name == name {
			return d
		}
	}
	t.Fatalf("no pipeline %s", name)
	return nil
}

func planFor(t *testing.T, name string, args ...string) *Pipeline {
	t.Helper()
	fixedRunID(t)
	d := definition(t, name)
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	d.Tool().Define(fs)
	require.NoError(t, fs.Parse(args))
	env, _, _ := testEnv()
	p, err := d.Plan(env.Locator, fs)
	require.NoError(t, err)
	return p
}

func stageNames(p *Pipeline) []string {
	var out []string
	for _, s := range p.Stages {
		out = append(out, s.Name)
	}
	return out
}

func TestPlan_FlightlinesToDTMAndDSM(t *testing.T) {
	p := planFor(t, "flightlines_to_dtm_and_dsm",
		"--input_directory=/data/flightlines",
		"--output_directory=/data/out",
		"--temporary_directory=/tmp/las",
		"--terrain=city",
		"--cores=4",
	)
	work := "/tmp/las/flightlines_to_dtm_and_dsm-run-1"
	want := [][]string{
		{"/opt/LAStools/bin/lastile64", "-i", "/data/flightlines/*.laz", "-tile_size", "1000", "-buffer", "30",
			"-files_are_flightlines", "-o", work + "/tile.laz", "-olaz"},
		{"/opt/LAStools/bin/lasground64", "-i", work + "/tile*.laz", "-city", "-odix", "_g", "-olaz", "-cores", "4"},
		{"/opt/LAStools/bin/las2dem64", "-i", work + "/tile*_g.laz", "-keep_class", "2", "-step", "1", "-use_tile_bb",
			"-odir", "/data/out", "-odix", "_dtm", "-otif", "-cores", "4"},
		{"/opt/LAStools/bin/las2dem64", "-i", work + "/tile*_g.laz", "-first_only", "-step", "1", "-use_tile_bb",
			"-odir", "/data/out", "-odix", "_dsm", "-otif", "-cores", "4"},
	}
	var got [][]string
	for _, s := range p.Stages {
		got = append(got, s.Argv)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("stages mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"tile", "ground", "dtm", "dsm"}, stageNames(p))
	assert.Equal(t, "run-1", p.ID)
	assert.False(t, p.HaltOnError)
}

func TestPlan_CHMVariants(t *testing.T) {
	work := "/t/%s-run-1"
	tests := []struct {
		name   string
		args   []string
		stages []string
		final  []string
	}{
		{
			name:   "flightlines_to_chm_first_return",
			args:   []string{"--output_directory=/out", "--output_format=png"},
			stages: []string{"tile", "ground", "height", "chm"},
			final: []string{"-i", "%s/tile*_gh.laz", "-first_only", "-step", "0.5", "-kill", "2", "-use_tile_bb",
				"-odir", "/out", "-odix", "_chm_fr", "-opng"},
		},
		{
			name:   "flightlines_to_chm_highest_return",
			args:   []string{"--output_directory=/out", "--step=0.25"},
			stages: []string{"tile", "ground", "height", "thin", "chm"},
			final: []string{"-i", "%s/tile*_ght.laz", "-keep_class", "8", "-step", "0.25", "-kill", "2", "-use_tile_bb",
				"-odir", "/out", "-odix", "_chm_hr", "-otif"},
		},
		{
			name:   "flightlines_to_chm_spike_free",
			args:   []string{"--output_directory=/out", "--spike_free=1.2"},
			stages: []string{"tile", "ground", "height", "chm"},
			final: []string{"-i", "%s/tile*_gh.laz", "-spike_free", "1.2", "-step", "0.5", "-use_tile_bb",
				"-odir", "/out", "-odix", "_chm_sf", "-otif"},
		},
		{
			name:   "flightlines_to_merged_chm_first_return",
			args:   []string{"--output=/out/chm.tif"},
			stages: []string{"tile", "ground", "height", "chm"},
			final: []string{"-i", "%s/tile*_gh.laz", "-first_only", "-step", "0.5", "-kill", "2",
				"-drop_withheld", "-merged", "-o", "/out/chm.tif"},
		},
		{
			name:   "flightlines_to_merged_chm_highest_return",
			args:   []string{"--output=/out/chm.tif", "--kill=3"},
			stages: []string{"tile", "ground", "height", "thin", "chm"},
			final: []string{"-i", "%s/tile*_ght.laz", "-keep_class", "8", "-step", "0.5", "-kill", "3",
				"-drop_withheld", "-merged", "-o", "/out/chm.tif"},
		},
		{
			name:   "flightlines_to_merged_chm_spike_free",
			args:   []string{"--output=/out/chm.tif"},
			stages: []string{"tile", "ground", "height", "chm"},
			final: []string{"-i", "%s/tile*_gh.laz", "-spike_free", "1", "-step", "0.5",
				"-drop_withheld", "-merged", "-o", "/out/chm.tif"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			args := append([]string{"--input_directory=/d", "--temporary_directory=/t"}, tc.args...)
			p := planFor(t, tc.name, args...)
			assert.Equal(t, tc.stages, stageNames(p))

			dir := strings.Replace(work, "%s", tc.name, 1)
			want := []string{"/opt/LAStools/bin/las2dem64"}
			for _, a := range tc.final {
				want = append(want, strings.Replace(a, "%s", dir, 1))
			}
			last := p.Stages[len(p.Stages)-1]
			if diff := cmp.Diff(want, last.Argv); diff != "" {
				t.Errorf("chm stage mismatch (-want +got):\n%s", diff)
			}

			merged := strings.Contains(tc.name, "merged")
			assert.Equal(t, merged, contains(p.Stages[0].Argv, "-flag_as_withheld"))
			assert.Contains(t, p.Stages[2].Argv, "-replace_z")
		})
	}
}

func contains(argv []string, tok string) bool {
	for _, a := range argv {
		if a == tok {
			return true
		}
	}
	return false
}

func TestPlan_HugeFile(t *testing.T) {
	tests := []struct {
		name   string
		stages []string
		merge  string
	}{
		{"huge_file_ground_classify", []string{"tile", "ground", "merge"}, "tile*_g.laz"},
		{"huge_file_normalize", []string{"tile", "ground", "height", "merge"}, "tile*_gh.laz"},
		{"huge_file_classify", []string{"tile", "ground", "height", "classify", "merge"}, "tile*_ghc.laz"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := planFor(t, tc.name,
				"--input=/data/huge.laz", "--output=/out/all.laz", "--temporary_directory=/t", "--cpu64=false", "--verbose")
			assert.Equal(t, tc.stages, stageNames(p))

			work := filepath.Join("/t", tc.name+"-run-1")
			tile := []string{"/opt/LAStools/bin/lastile", "-v", "-i", "/data/huge.laz", "-tile_size", "500", "-buffer", "25",
				"-flag_as_withheld", "-o", work + "/tile.laz", "-olaz"}
			if diff := cmp.Diff(tile, p.Stages[0].Argv); diff != "" {
				t.Errorf("tile stage mismatch (-want +got):\n%s", diff)
			}
			merge := []string{"/opt/LAStools/bin/lasmerge", "-v", "-i", work + "/" + tc.merge, "-drop_withheld", "-o", "/out/all.laz"}
			if diff := cmp.Diff(merge, p.Stages[len(p.Stages)-1].Argv); diff != "" {
				t.Errorf("merge stage mismatch (-want +got):\n%s", diff)
			}
		})
	}

	classify := planFor(t, "huge_file_classify", "--input=/a.laz", "--output=/b.laz", "--temporary_directory=/t")
	assert.NotContains(t, classify.Stages[2].Argv, "-replace_z")
}

func TestPlan_MissingParams(t *testing.T) {
	fixedRunID(t)
	env, _, _ := testEnv()
	for _, name := range []string{"flightlines_to_dtm_and_dsm", "flightlines_to_merged_chm_spike_free", "huge_file_normalize"} {
		d := definition(t, name)
		fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
		d.Tool().Define(fs)
		_, err := d.Plan(env.Locator, fs)
		require.Error(t, err, name)
		assert.True(t, errors.Is(err, lastools.ErrMissingParam), name)
	}
}

func TestPlan_NonFiniteNumber(t *testing.T) {
	fixedRunID(t)
	env, _, _ := testEnv()
	d := definition(t, "flightlines_to_dtm_and_dsm")
	fs := pflag.NewFlagSet(d.Name, pflag.ContinueOnError)
	d.Tool().Define(fs)
	require.NoError(t, fs.Parse([]string{"--input_directory=/d", "--output_directory=/out", "--step=Inf"}))
	_, err := d.Plan(env.Locator, fs)
	require.Error(t, err)
	assert.True(t, errors.Is(err, lastools.ErrInvalidParam), err.Error())
}

func TestDefinition_Run(t *testing.T) {
	fixedRunID(t)
	env, builder, rec := testEnv()
	work := "/t/huge_file_normalize-run-1"
	failHeight := failOn("lasheight")
	builder.ExecutorFactory = func(exe string, args []string) *lastools.MockCommandExecutor {
		if strings.Contains(exe, "lastile") {
			require.NoError(t, env.FS.WriteFile(work+"/tile_0_0.laz", []byte("LASF"), 0o644))
		}
		return failHeight(exe, args)
	}
	d := definition(t, "huge_file_normalize")
	tool := d.Tool()
	fs := pflag.NewFlagSet(tool.Name, pflag.ContinueOnError)
	tool.Define(fs)
	require.NoError(t, fs.Parse([]string{"--input=/a.laz", "--output=/b.laz", "--temporary_directory=/t", "--halt_on_error"}))

	results, err := tool.Run(context.Background(), env, fs, &lastools.CaptureFeedback{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, lastools.ErrToolFailed))
	assert.Len(t, results, 3)
	assert.True(t, env.FS.Exists(work), "work directory with tiles is kept")
	require.Len(t, rec.pipelines, 1)
	assert.Equal(t, "huge_file_normalize", rec.pipelines[0].Name)
}

func TestDefinition_Run_EnvHalts(t *testing.T) {
	env, builder, _ := testEnv()
	env.HaltOnError = true
	builder.ExecutorFactory = failOn("lastile")
	tool := definition(t, "huge_file_ground_classify").Tool()
	fs := pflag.NewFlagSet(tool.Name, pflag.ContinueOnError)
	tool.Define(fs)
	require.NoError(t, fs.Parse([]string{"--input=/a.laz", "--output=/b.laz", "--temporary_directory=/t"}))

	results, err := tool.Run(context.Background(), env, fs, &lastools.CaptureFeedback{})
	require.Error(t, err)
	assert.Len(t, results, 1)
}

func TestDefinition_Run_EmptyInput(t *testing.T) {
	fixedRunID(t)
	env, _, _ := testEnv()
	tool := definition(t, "flightlines_to_dtm_and_dsm").Tool()
	fs := pflag.NewFlagSet(tool.Name, pflag.ContinueOnError)
	tool.Define(fs)
	require.NoError(t, fs.Parse([]string{"--input_directory=/d", "--output_directory=/out", "--temporary_directory=/t"}))

	fb := &lastools.CaptureFeedback{}
	results, err := tool.Run(context.Background(), env, fs, fb)
	require.NoError(t, err)
	assert.Len(t, results, 4)
	assert.Equal(t, []string{"no files match /d/*.laz"}, fb.Texts(lastools.LevelWarning))
	assert.False(t, env.FS.Exists("/t/flightlines_to_dtm_and_dsm-run-1"), "empty work directory is removed")
}

func TestBuiltins(t *testing.T) {
	tools := Builtins()
	assert.Len(t, tools, 10)
	seen := map[string]bool{}
	for _, tool := range tools {
		assert.False(t, seen[tool.Name], tool.Name)
		seen[tool.Name] = true
		assert.Equal(t, lastools.GroupPipelines, tool.Group)
		assert.NotNil(t, tool.Process)
		fs := pflag.NewFlagSet(tool.Name, pflag.ContinueOnError)
		assert.NotPanics(t, func() { tool.Define(fs) }, tool.Name)
	}
}
