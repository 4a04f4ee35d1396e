package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/spf13/pflag"
	"github.com/zclconf/go-cty/cty"

	"github.com/banshee-data/lasrun/internal/lastools"
)

// File is a declarative pipeline:
//
//	name          = "tiles_to_dtm"
//	halt_on_error = true
//
//	stage "ground" {
//	  tool = "lasground_pro"
//	  params = {
//	    input_directory  = var.tiles
//	    output_directory = "${var.work}/ground"
//	    terrain          = "city"
//	  }
//	}
type File struct {
	Name        string
	HaltOnError bool
	Stages      []StageSpec
}

// StageSpec names a registered tool and the flag values to run it with.
type StageSpec struct {
	Name   string
	Tool   string
	Params map[string]string
}

// Lookup resolves a tool by name.
type Lookup func(name string) (*lastools.Tool, error)

type fileRoot struct {
	Name        *string       `hcl:"name,optional"`
	HaltOnError *bool         `hcl:"halt_on_error,optional"`
	Stages      []*stageBlock `hcl:"stage,block"`
}

type stageBlock struct {
	Name   string         `hcl:"name,label"`
	Tool   string         `hcl:"tool"`
	Params hcl.Expression `hcl:"params,optional"`
}

// LoadFile parses the HCL pipeline at path. vars are visible as var.<name>.
func LoadFile(path string, vars map[string]string) (*File, error) {
	f, diags := hclparse.NewParser().ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse pipeline %s: %w", path, diags)
	}
	return decode(f.Body, path, vars)
}

// Parse parses HCL pipeline source. filename is used in diagnostics only.
func Parse(src []byte, filename string, vars map[string]string) (*File, error) {
	f, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse pipeline %s: %w", filename, diags)
	}
	return decode(f.Body, filename, vars)
}

func decode(body hcl.Body, filename string, vars map[string]string) (*File, error) {
	evalCtx := evalContext(vars)

	var root fileRoot
	if diags := gohcl.DecodeBody(body, evalCtx, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode pipeline %s: %w", filename, diags)
	}
	if len(root.Stages) == 0 {
		return nil, fmt.Errorf("pipeline %s has no stages", filename)
	}

	out := &File{Name: strings.TrimSuffix(filepath.Base(filename), ".hcl")}
	if root.Name != nil {
		out.Name = *root.Name
	}
	if root.HaltOnError != nil {
		out.HaltOnError = *root.HaltOnError
	}

	seen := make(map[string]bool)
	for _, sb := range root.Stages {
		if seen[sb.Name] {
			return nil, fmt.Errorf("pipeline %s: duplicate stage %q", filename, sb.Name)
		}
		seen[sb.Name] = true

		params, err := decodeParams(sb.Params, evalCtx)
		if err != nil {
			return nil, fmt.Errorf("pipeline %s: stage %s: %w", filename, sb.Name, err)
		}
		out.Stages = append(out.Stages, StageSpec{Name: sb.Name, Tool: sb.Tool, Params: params})
	}
	return out, nil
}

func evalContext(vars map[string]string) *hcl.EvalContext {
	obj := cty.EmptyObjectVal
	if len(vars) > 0 {
		m := make(map[string]cty.Value, len(vars))
		for k, v := range vars {
			m[k] = cty.StringVal(v)
		}
		obj = cty.ObjectVal(m)
	}
	return &hcl.EvalContext{Variables: map[string]cty.Value{"var": obj}}
}

func decodeParams(expr hcl.Expression, evalCtx *hcl.EvalContext) (map[string]string, error) {
	params := make(map[string]string)
	if expr == nil {
		return params, nil
	}
	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return nil, diags
	}
	if val.IsNull() {
		return params, nil
	}
	if !val.Type().IsObjectType() && !val.Type().IsMapType() {
		return nil, fmt.Errorf("params must be an object, got %s", val.Type().FriendlyName())
	}
	for it := val.ElementIterator(); it.Next(); {
		k, v := it.Element()
		if v.IsNull() {
			continue
		}
		s, err := paramString(v)
		if err != nil {
			return nil, fmt.Errorf("param %s: %w", k.AsString(), err)
		}
		params[k.AsString()] = s
	}
	return params, nil
}

// paramString renders v the way it would be typed on the command line.
// Lists become space-separated values, as wildcards and compound values
// expect.
func paramString(v cty.Value) (string, error) {
	if !v.IsKnown() {
		return "", fmt.Errorf("value is not known")
	}
	switch {
	case v.Type() == cty.String:
		return v.AsString(), nil
	case v.Type() == cty.Number:
		f := v.AsBigFloat()
		if f.IsInf() {
			return "", fmt.Errorf("%w: %s is not a finite number", lastools.ErrInvalidParam, f.String())
		}
		// exact digits: large integers such as GPS times must survive
		return f.Text('f', -1), nil
	case v.Type() == cty.Bool:
		return strconv.FormatBool(v.True()), nil
	case v.Type().IsTupleType() || v.Type().IsListType():
		var parts []string
		for it := v.ElementIterator(); it.Next(); {
			_, e := it.Element()
			s, err := paramString(e)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, " "), nil
	}
	return "", fmt.Errorf("unsupported type %s", v.Type().FriendlyName())
}

// Plan resolves every stage to a command line. All stages are checked
// before anything runs, so a missing parameter in the last stage is
// reported without running the first.
func (f *File) Plan(lookup Lookup, loc *lastools.Locator, defaults lastools.Defaults) (*Pipeline, error) {
	p := &Pipeline{ID: newRunID(), Name: f.Name, HaltOnError: f.HaltOnError}
	for _, st := range f.Stages {
		tool, err := lookup(st.Tool)
		if err != nil {
			return nil, fmt.Errorf("stage %s: %w", st.Name, err)
		}
		if tool.Process != nil {
			return nil, fmt.Errorf("stage %s: %s runs several stages itself and cannot be nested", st.Name, tool.Name)
		}

		fs := pflag.NewFlagSet(tool.Name, pflag.ContinueOnError)
		tool.Define(fs)
		keys := make([]string, 0, len(st.Params))
		for k := range st.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if fs.Lookup(k) == nil {
				return nil, fmt.Errorf("stage %s: %s has no parameter %q", st.Name, tool.Name, k)
			}
			if err := fs.Set(k, st.Params[k]); err != nil {
				return nil, fmt.Errorf("stage %s: %s: %w", st.Name, k, err)
			}
		}
		if err := lastools.ApplyDefaults(fs, defaults); err != nil {
			return nil, fmt.Errorf("stage %s: %w", st.Name, err)
		}
		argv, err := tool.Commands(loc, fs)
		if err != nil {
			return nil, fmt.Errorf("stage %s: %w", st.Name, err)
		}
		p.Stages = append(p.Stages, Stage{Name: st.Name, Tool: tool.Name, Argv: argv})
	}
	return p, nil
}

// Run plans and executes f.
func (f *File) Run(ctx context.Context, env *lastools.Env, lookup Lookup, defaults lastools.Defaults, fb lastools.Feedback) ([]*lastools.Result, error) {
	p, err := f.Plan(lookup, env.Locator, defaults)
	if err != nil {
		return nil, err
	}
	p.HaltOnError = p.HaltOnError || env.HaltOnError
	return Execute(ctx, env, p, fb)
}

// ParseVars parses repeated "name=value" arguments.
func ParseVars(args []string) (map[string]string, error) {
	vars := make(map[string]string, len(args))
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid variable %q, want name=value", a)
		}
		vars[k] = v
	}
	return vars, nil
}
