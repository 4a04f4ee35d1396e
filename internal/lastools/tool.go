package lastools

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/banshee-data/lasrun/internal/fsutil"
)

// Tool groups.
const (
	GroupTools      = "LAStools"
	GroupProduction = "LAStools Production"
	GroupPipelines  = "LAStools Pipelines"
)

// ErrUnknownTool is returned when a tool name is not registered.
var ErrUnknownTool = errors.New("unknown tool")

// Env is what a tool needs to run.
type Env struct {
	Locator *Locator
	Runner  *Runner
	FS      fsutil.FileSystem
	// HaltOnError stops pipelines at the first failed stage.
	HaltOnError bool
}

// ProcessFunc runs a tool whose work is more than one command line.
type ProcessFunc func(ctx context.Context, env *Env, fs *pflag.FlagSet, fb Feedback) ([]*Result, error)

// Tool is one LAStools algorithm: an executable and its parameters.
type Tool struct {
	Name    string
	Group   string
	Summary string
	// Binary is the executable base name without the 64 suffix.
	Binary string
	Params []Param
	// Process replaces the single command line of Commands when set.
	Process ProcessFunc
}

// Define declares every parameter on fs.
func (t *Tool) Define(fs *pflag.FlagSet) {
	for _, p := range t.Params {
		p.Define(fs)
	}
}

// Commands assembles the command line: the executable followed by each
// parameter's tokens in declaration order.
func (t *Tool) Commands(loc *Locator, fs *pflag.FlagSet) ([]string, error) {
	if t.Binary == "" {
		return nil, fmt.Errorf("%s has no single command line", t.Name)
	}
	cpu64 := false
	if fs.Lookup(FlagCPU64) != nil {
		v, err := fs.GetBool(FlagCPU64)
		if err != nil {
			return nil, err
		}
		cpu64 = v
	}
	cmds := loc.Executable(t.Binary, cpu64)
	for _, p := range t.Params {
		var err error
		if cmds, err = p.Commands(cmds, fs); err != nil {
			return nil, fmt.Errorf("%s: %w", t.Name, err)
		}
	}
	return cmds, nil
}

// Run executes the tool and returns one Result per command line run.
func (t *Tool) Run(ctx context.Context, env *Env, fs *pflag.FlagSet, fb Feedback) ([]*Result, error) {
	t.warnUnmatched(env, fs, fb)
	if t.Process != nil {
		return t.Process(ctx, env, fs, fb)
	}
	argv, err := t.Commands(env.Locator, fs)
	if err != nil {
		return nil, err
	}
	res, err := env.Runner.Run(ctx, Request{Tool: t.Name, Argv: argv}, fb)
	if res == nil {
		return nil, err
	}
	return []*Result{res}, err
}

// warnUnmatched reports input wildcards that match no file. LAStools
// itself exits quietly in that case.
func (t *Tool) warnUnmatched(env *Env, fs *pflag.FlagSet, fb Feedback) {
	if env.FS == nil || env.Runner == nil || env.Runner.DryRun {
		return
	}
	for _, p := range t.Params {
		in, ok := p.(*folderInput)
		if !ok {
			continue
		}
		patterns, err := in.patterns(fs)
		if err != nil {
			continue
		}
		for _, pat := range patterns {
			if matches, err := env.FS.Glob(pat); err == nil && len(matches) == 0 {
				fb.PushWarning(fmt.Sprintf("no files match %s", pat))
			}
		}
	}
}

// PathValues returns every file, folder and pattern value set on fs.
func (t *Tool) PathValues(fs *pflag.FlagSet) []string {
	var out []string
	for _, p := range t.Params {
		if pp, ok := p.(PathParam); ok {
			out = append(out, pp.PathValues(fs)...)
		}
	}
	return out
}

// FirstFailure returns the error of the first failed result, if any.
func FirstFailure(results []*Result) error {
	for _, r := range results {
		if err := r.Err(); err != nil {
			return err
		}
	}
	return nil
}

// Defaults are the configured values for parameters the user left unset.
type Defaults struct {
	CPU64              bool
	Cores              int
	TemporaryDirectory string
}

// ApplyDefaults sets the configured defaults on flags that exist on fs and
// were not set explicitly.
func ApplyDefaults(fs *pflag.FlagSet, d Defaults) error {
	set := func(name, value string) error {
		f := fs.Lookup(name)
		if f == nil || f.Changed {
			return nil
		}
		return fs.Set(name, value)
	}
	if err := set(FlagCPU64, strconv.FormatBool(d.CPU64)); err != nil {
		return err
	}
	if d.Cores > 0 {
		if err := set(FlagCores, strconv.Itoa(d.Cores)); err != nil {
			return err
		}
	}
	if d.TemporaryDirectory != "" {
		if err := set(FlagTemporaryDirectory, d.TemporaryDirectory); err != nil {
			return err
		}
	}
	return nil
}

// ParamName returns the primary flag name of p, or "" for composite
// parameters.
func ParamName(p Param) string {
	switch v := p.(type) {
	case *Bool:
		return v.Name
	case *Number:
		return v.Name
	case *Int:
		return v.Name
	case *Text:
		return v.Name
	case *File:
		return v.Name
	case *Enum:
		return v.Name
	case *Switch:
		return v.Name
	case *Compound:
		return v.Name
	case *Operation:
		return v.Name
	case *folderInput:
		return FlagInputDirectory
	}
	return ""
}

// Production derives the folder-processing variant of base: the input
// file becomes an input directory with wildcards, the output file becomes
// an output directory and appendix plus format, and -cores is offered
// before the additional options.
func Production(base *Tool, format Param) *Tool {
	pro := &Tool{
		Name:    base.Name + "_pro",
		Group:   GroupProduction,
		Summary: base.Summary + " (folder of files)",
		Binary:  base.Binary,
	}
	hasCores, hasFormat := false, false
	for _, p := range base.Params {
		switch ParamName(p) {
		case FlagCores:
			hasCores = true
		case FlagOutputFormat:
			hasFormat = true
		}
	}
	for _, p := range base.Params {
		switch roleOf(p) {
		case RoleInput:
			pro.Params = append(pro.Params, InputDirectory())
			continue
		case RoleOutput:
			pro.Params = append(pro.Params, OutputDirectory(), OutputAppendix())
			if format != nil && !hasFormat {
				pro.Params = append(pro.Params, format)
			}
			continue
		}
		if ParamName(p) == FlagAdditionalOptions && !hasCores {
			pro.Params = append(pro.Params, Cores())
			hasCores = true
		}
		pro.Params = append(pro.Params, p)
	}
	if !hasCores {
		pro.Params = append(pro.Params, Cores())
	}
	return pro
}
