package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/banshee-data/lasrun/internal/lastools"
)

// Definition is a built-in pipeline: its parameters and how their values
// turn into stages.
type Definition struct {
	Name    string
	Summary string
	Params  []lastools.Param
	Stages  func(b *builder) []Stage
}

// Tool wraps d so it can be registered and run like any other tool.
func (d *Definition) Tool() *lastools.Tool {
	return &lastools.Tool{
		Name:    d.Name,
		Group:   lastools.GroupPipelines,
		Summary: d.Summary,
		Params:  d.Params,
		Process: d.process,
	}
}

// Plan resolves the stages for the values on fs without running them.
func (d *Definition) Plan(loc *lastools.Locator, fs *pflag.FlagSet) (*Pipeline, error) {
	b, err := newBuilder(loc, fs, d.Name)
	if err != nil {
		return nil, err
	}
	stages := d.Stages(b)
	if b.err != nil {
		return nil, fmt.Errorf("%s: %w", d.Name, b.err)
	}
	return &Pipeline{
		ID:          b.runID,
		Name:        d.Name,
		Stages:      stages,
		HaltOnError: b.boolean(FlagHaltOnError),
	}, nil
}

func (d *Definition) process(ctx context.Context, env *lastools.Env, fs *pflag.FlagSet, fb lastools.Feedback) ([]*lastools.Result, error) {
	p, err := d.Plan(env.Locator, fs)
	if err != nil {
		return nil, err
	}
	p.HaltOnError = p.HaltOnError || env.HaltOnError
	if env.Runner.DryRun || env.FS == nil {
		return Execute(ctx, env, p, fb)
	}
	work := workDir(fs, d.Name, p.ID)
	if err := env.FS.MkdirAll(work, 0o755); err != nil {
		return nil, fmt.Errorf("create work directory %s: %w", work, err)
	}
	results, err := Execute(ctx, env, p, fb)
	// Remove fails while stage outputs remain in work; those are kept.
	_ = env.FS.Remove(work)
	return results, err
}

func workDir(fs *pflag.FlagSet, name, runID string) string {
	temp, _ := fs.GetString(lastools.FlagTemporaryDirectory)
	if temp == "" {
		temp = filepath.Join(os.TempDir(), "lasrun")
	}
	return filepath.Join(temp, name+"-"+runID)
}

// builder turns flag values into stage command lines. The first lookup
// error sticks and is reported by Plan.
type builder struct {
	loc     *lastools.Locator
	fs      *pflag.FlagSet
	runID   string
	work    string
	cpu64   bool
	verbose bool
	err     error
}

func newBuilder(loc *lastools.Locator, fs *pflag.FlagSet, name string) (*builder, error) {
	b := &builder{loc: loc, fs: fs, runID: newRunID()}
	b.work = workDir(fs, name, b.runID)
	b.cpu64 = b.boolean(lastools.FlagCPU64)
	b.verbose = b.boolean(lastools.FlagVerbose)
	return b, b.err
}

func (b *builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *builder) boolean(name string) bool {
	if b.fs.Lookup(name) == nil {
		return false
	}
	v, err := b.fs.GetBool(name)
	if err != nil {
		b.fail(err)
	}
	return v
}

func (b *builder) num(name string) string {
	v, err := b.fs.GetFloat64(name)
	if err != nil {
		b.fail(err)
		return ""
	}
	n, err := lastools.FormatNumber(v)
	if err != nil {
		b.fail(fmt.Errorf("--%s: %w", name, err))
	}
	return n
}

// tokens returns what p contributes on its own.
func (b *builder) tokens(p lastools.Param) []string {
	out, err := p.Commands(nil, b.fs)
	if err != nil {
		b.fail(err)
	}
	return out
}

func (b *builder) tmp(pattern string) string {
	return filepath.Join(b.work, pattern)
}

func (b *builder) stage(name, binary string, args ...string) Stage {
	argv := b.loc.Executable(binary, b.cpu64)
	if b.verbose {
		argv = append(argv, "-v")
	}
	return Stage{Name: name, Tool: binary, Argv: append(argv, args...)}
}

func (b *builder) withCores(args []string) []string {
	if b.fs.Lookup(lastools.FlagCores) == nil {
		return args
	}
	n, err := b.fs.GetInt(lastools.FlagCores)
	if err != nil {
		b.fail(err)
	}
	if n > 1 {
		args = append(args, "-cores", strconv.Itoa(n))
	}
	return args
}

// Shared stages. Intermediate names: tile_<x>_<y>.laz, then _g (ground),
// h (height), t (thinned) and c (classified) appended in that order.

func (b *builder) tileStage(input []string, extra ...string) Stage {
	args := append([]string{}, input...)
	args = append(args, "-tile_size", b.num("tile_size"), "-buffer", b.num("buffer"))
	args = append(args, extra...)
	args = append(args, "-o", b.tmp("tile.laz"), "-olaz")
	return b.stage("tile", "lastile", args...)
}

func (b *builder) groundStage() Stage {
	args := []string{"-i", b.tmp("tile*.laz")}
	args = append(args, b.tokens(lastools.Terrain())...)
	args = append(args, b.tokens(lastools.Granularity())...)
	args = append(args, "-odix", "_g", "-olaz")
	return b.stage("ground", "lasground", b.withCores(args)...)
}

func (b *builder) heightStage(replaceZ bool) Stage {
	args := []string{"-i", b.tmp("tile*_g.laz")}
	if replaceZ {
		args = append(args, "-replace_z")
	}
	args = append(args, "-odix", "h", "-olaz")
	return b.stage("height", "lasheight", b.withCores(args)...)
}

func (b *builder) mergeStage(pattern string) Stage {
	args := []string{"-i", b.tmp(pattern), "-drop_withheld"}
	args = append(args, b.tokens(outputFile("output file"))...)
	return b.stage("merge", "lasmerge", args...)
}

// Parameters only pipelines use.

func tileSize(def float64) lastools.Param {
	return &lastools.Number{Name: "tile_size", Usage: "tile size", Flag: "-tile_size", Default: def}
}

func buffer(def float64) lastools.Param {
	return &lastools.Number{Name: "buffer", Usage: "tile buffer", Flag: "-buffer", Default: def}
}

func kill(def float64) lastools.Param {
	return &lastools.Number{Name: "kill", Usage: "longest triangle edge kept", Flag: "-kill", Default: def}
}

func freezeDistance() lastools.Param {
	return &lastools.Number{Name: "spike_free", Usage: "spike-free freeze distance", Flag: "-spike_free", Default: 1}
}

func haltOnError() lastools.Param {
	return &lastools.Bool{Name: FlagHaltOnError, Usage: "stop at the first failed stage"}
}

func outputDirectory() lastools.Param {
	return &lastools.File{Name: lastools.FlagOutputDirectory, Usage: "output directory", Flag: "-odir", Required: true}
}

func outputFile(usage string) lastools.Param {
	return &lastools.File{Name: lastools.FlagOutput, Usage: usage, Flag: "-o", Required: true, Role: lastools.RoleOutput}
}

func flightlineParams(step float64, extra ...lastools.Param) []lastools.Param {
	ps := []lastools.Param{
		lastools.Verbose(),
		lastools.CPU64(),
		lastools.InputDirectory(),
		tileSize(1000),
		buffer(30),
		lastools.Terrain(),
		lastools.Granularity(),
		lastools.Step(step),
	}
	ps = append(ps, extra...)
	return append(ps, lastools.TemporaryDirectory(), lastools.Cores(), haltOnError())
}

func hugeFileParams() []lastools.Param {
	return []lastools.Param{
		lastools.Verbose(),
		lastools.CPU64(),
		lastools.InputFile(),
		tileSize(500),
		buffer(25),
		lastools.Terrain(),
		lastools.Granularity(),
		outputFile("output LAS/LAZ file"),
		lastools.TemporaryDirectory(),
		lastools.Cores(),
		haltOnError(),
	}
}

func flightlinesToDTMAndDSM() *Definition {
	return &Definition{
		Name:    "flightlines_to_dtm_and_dsm",
		Summary: "tile flightlines, classify ground and rasterize a DTM and a DSM per tile",
		Params:  flightlineParams(1, outputDirectory(), lastools.RasterOutputFormat()),
		Stages: func(b *builder) []Stage {
			tile := b.tileStage(b.tokens(lastools.InputDirectory()), "-files_are_flightlines")
			ground := b.groundStage()
			out := append(b.tokens(outputDirectory()), "-odix")
			format := b.tokens(lastools.RasterOutputFormat())

			dtm := []string{"-i", b.tmp("tile*_g.laz"), "-keep_class", "2", "-step", b.num("step"), "-use_tile_bb"}
			dtm = append(append(append(dtm, out...), "_dtm"), format...)
			dsm := []string{"-i", b.tmp("tile*_g.laz"), "-first_only", "-step", b.num("step"), "-use_tile_bb"}
			dsm = append(append(append(dsm, out...), "_dsm"), format...)

			return []Stage{
				tile,
				ground,
				b.stage("dtm", "las2dem", b.withCores(dtm)...),
				b.stage("dsm", "las2dem", b.withCores(dsm)...),
			}
		},
	}
}

// chmMode is how the canopy height model picks its returns.
type chmMode int

const (
	chmFirstReturn chmMode = iota
	chmHighestReturn
	chmSpikeFree
)

var chmModes = []struct {
	mode    chmMode
	key     string
	summary string
	suffix  string
}{
	{chmFirstReturn, "first_return", "first returns", "_chm_fr"},
	{chmHighestReturn, "highest_return", "highest returns", "_chm_hr"},
	{chmSpikeFree, "spike_free", "the spike-free algorithm", "_chm_sf"},
}

func flightlinesToCHM(mode chmMode, key, summary, suffix string, merged bool) *Definition {
	var extra []lastools.Param
	switch mode {
	case chmSpikeFree:
		extra = append(extra, freezeDistance())
	default:
		extra = append(extra, kill(2))
	}
	name := "flightlines_to_chm_" + key
	if merged {
		name = "flightlines_to_merged_chm_" + key
		extra = append(extra, outputFile("output raster file"))
		summary = "merged canopy height model from " + summary
	} else {
		extra = append(extra, outputDirectory(), lastools.RasterOutputFormat())
		summary = "per-tile canopy height model from " + summary
	}
	return &Definition{
		Name:    name,
		Summary: summary,
		Params:  flightlineParams(0.5, extra...),
		Stages: func(b *builder) []Stage {
			tileExtra := []string{"-files_are_flightlines"}
			if merged {
				tileExtra = append(tileExtra, "-flag_as_withheld")
			}
			stages := []Stage{
				b.tileStage(b.tokens(lastools.InputDirectory()), tileExtra...),
				b.groundStage(),
				b.heightStage(true),
			}

			input := b.tmp("tile*_gh.laz")
			var args []string
			switch mode {
			case chmFirstReturn:
				args = []string{"-i", input, "-first_only", "-step", b.num("step"), "-kill", b.num("kill")}
			case chmHighestReturn:
				thin := []string{"-i", input, "-highest", "-step", b.num("step"), "-classify_as", "8", "-odix", "t", "-olaz"}
				stages = append(stages, b.stage("thin", "lasthin", b.withCores(thin)...))
				args = []string{"-i", b.tmp("tile*_ght.laz"), "-keep_class", "8", "-step", b.num("step"), "-kill", b.num("kill")}
			case chmSpikeFree:
				args = []string{"-i", input, "-spike_free", b.num("spike_free"), "-step", b.num("step")}
			}

			if merged {
				args = append(args, "-drop_withheld", "-merged")
				args = append(args, b.tokens(outputFile(""))...)
				return append(stages, b.stage("chm", "las2dem", args...))
			}
			args = append(args, "-use_tile_bb")
			args = append(args, b.tokens(outputDirectory())...)
			args = append(args, "-odix", suffix)
			args = append(args, b.tokens(lastools.RasterOutputFormat())...)
			return append(stages, b.stage("chm", "las2dem", b.withCores(args)...))
		},
	}
}

func hugeFileGroundClassify() *Definition {
	return &Definition{
		Name:    "huge_file_ground_classify",
		Summary: "classify ground points of a file too large to process in one piece",
		Params:  hugeFileParams(),
		Stages: func(b *builder) []Stage {
			return []Stage{
				b.tileStage(b.tokens(lastools.InputFile()), "-flag_as_withheld"),
				b.groundStage(),
				b.mergeStage("tile*_g.laz"),
			}
		},
	}
}

func hugeFileNormalize() *Definition {
	return &Definition{
		Name:    "huge_file_normalize",
		Summary: "replace elevations with heights above ground for a very large file",
		Params:  hugeFileParams(),
		Stages: func(b *builder) []Stage {
			return []Stage{
				b.tileStage(b.tokens(lastools.InputFile()), "-flag_as_withheld"),
				b.groundStage(),
				b.heightStage(true),
				b.mergeStage("tile*_gh.laz"),
			}
		},
	}
}

func hugeFileClassify() *Definition {
	return &Definition{
		Name:    "huge_file_classify",
		Summary: "classify ground, buildings and vegetation of a very large file",
		Params:  hugeFileParams(),
		Stages: func(b *builder) []Stage {
			classify := []string{"-i", b.tmp("tile*_gh.laz"), "-odix", "c", "-olaz"}
			return []Stage{
				b.tileStage(b.tokens(lastools.InputFile()), "-flag_as_withheld"),
				b.groundStage(),
				b.heightStage(false),
				b.stage("classify", "lasclassify", b.withCores(classify)...),
				b.mergeStage("tile*_ghc.laz"),
			}
		},
	}
}

// Definitions returns every built-in pipeline.
func Definitions() []*Definition {
	defs := []*Definition{flightlinesToDTMAndDSM()}
	for _, merged := range []bool{false, true} {
		for _, m := range chmModes {
			defs = append(defs, flightlinesToCHM(m.mode, m.key, m.summary, m.suffix, merged))
		}
	}
	return append(defs, hugeFileGroundClassify(), hugeFileNormalize(), hugeFileClassify())
}

// Builtins returns the built-in pipelines as tools.
func Builtins() []*lastools.Tool {
	defs := Definitions()
	out := make([]*lastools.Tool, len(defs))
	for i, d := range defs {
		out[i] = d.Tool()
	}
	return out
}
