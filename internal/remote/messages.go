package remote

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/banshee-data/lasrun/internal/lastools"
)

// RunRequest asks the server to run one tool.
type RunRequest struct {
	Tool string
	// Params maps flag names to values, as typed on the command line.
	Params map[string]string
	DryRun bool
	// HaltOnError stops a pipeline at its first failed stage.
	HaltOnError bool
}

// RunResponse is the outcome of a remote run.
type RunResponse struct {
	Status   lastools.Status
	Results  []*lastools.Result
	Messages []lastools.Message
}

// ToolInfo describes one tool offered by the server.
type ToolInfo struct {
	Name    string
	Group   string
	Summary string
}

func (r *RunRequest) toStruct() (*structpb.Struct, error) {
	params := make(map[string]any, len(r.Params))
	for k, v := range r.Params {
		params[k] = v
	}
	return structpb.NewStruct(map[string]any{
		"tool":          r.Tool,
		"params":        params,
		"dry_run":       r.DryRun,
		"halt_on_error": r.HaltOnError,
	})
}

func runRequestFromStruct(s *structpb.Struct) (*RunRequest, error) {
	fields := s.GetFields()
	req := &RunRequest{
		Tool:        fields["tool"].GetStringValue(),
		DryRun:      fields["dry_run"].GetBoolValue(),
		HaltOnError: fields["halt_on_error"].GetBoolValue(),
		Params:      make(map[string]string),
	}
	if req.Tool == "" {
		return nil, fmt.Errorf("tool is required")
	}
	for name, v := range fields["params"].GetStructValue().GetFields() {
		value, ok, err := valueString(v)
		if err != nil {
			return nil, fmt.Errorf("param %s: %w", name, err)
		}
		if ok {
			req.Params[name] = value
		}
	}
	return req, nil
}

// valueString renders a parameter value the way it would be typed as a
// flag. Null values are skipped.
func valueString(v *structpb.Value) (string, bool, error) {
	switch k := v.GetKind().(type) {
	case *structpb.Value_NullValue, nil:
		return "", false, nil
	case *structpb.Value_StringValue:
		return k.StringValue, true, nil
	case *structpb.Value_NumberValue:
		n, err := lastools.FormatNumber(k.NumberValue)
		if err != nil {
			return "", false, err
		}
		return n, true, nil
	case *structpb.Value_BoolValue:
		return strconv.FormatBool(k.BoolValue), true, nil
	case *structpb.Value_ListValue:
		parts := make([]string, 0, len(k.ListValue.GetValues()))
		for _, item := range k.ListValue.GetValues() {
			s, ok, err := valueString(item)
			if err != nil {
				return "", false, err
			}
			if ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " "), true, nil
	default:
		return "", false, fmt.Errorf("unsupported value type %T", k)
	}
}

func (r *RunResponse) toStruct() (*structpb.Struct, error) {
	results := make([]any, len(r.Results))
	for i, res := range r.Results {
		results[i] = map[string]any{
			"run_id":          res.RunID,
			"pipeline_run_id": res.PipelineRunID,
			"tool":            res.Tool,
			"stage":           res.Stage,
			"command_line":    res.CommandLine,
			"exit_code":       res.ExitCode,
			"status":          string(res.Status),
			"errors":          res.Errors,
			"warnings":        res.Warnings,
			"started_at":      res.StartedAt.UTC().Format(time.RFC3339Nano),
			"duration_s":      res.Duration.Seconds(),
			"output":          stringList(res.Output),
			"omitted_lines":   res.OmittedLines,
		}
	}
	messages := make([]any, len(r.Messages))
	for i, m := range r.Messages {
		messages[i] = map[string]any{"level": string(m.Level), "text": m.Text}
	}
	return structpb.NewStruct(map[string]any{
		"status":   string(r.Status),
		"results":  results,
		"messages": messages,
	})
}

func runResponseFromStruct(s *structpb.Struct) *RunResponse {
	fields := s.GetFields()
	resp := &RunResponse{Status: lastools.Status(fields["status"].GetStringValue())}
	for _, v := range fields["results"].GetListValue().GetValues() {
		f := v.GetStructValue().GetFields()
		res := &lastools.Result{
			RunID:         f["run_id"].GetStringValue(),
			PipelineRunID: f["pipeline_run_id"].GetStringValue(),
			Tool:          f["tool"].GetStringValue(),
			Stage:         f["stage"].GetStringValue(),
			CommandLine:   f["command_line"].GetStringValue(),
			ExitCode:      int(f["exit_code"].GetNumberValue()),
			Status:        lastools.Status(f["status"].GetStringValue()),
			Errors:        int(f["errors"].GetNumberValue()),
			Warnings:      int(f["warnings"].GetNumberValue()),
			Duration:      time.Duration(f["duration_s"].GetNumberValue() * float64(time.Second)),
			OmittedLines:  int(f["omitted_lines"].GetNumberValue()),
		}
		if t, err := time.Parse(time.RFC3339Nano, f["started_at"].GetStringValue()); err == nil {
			res.StartedAt = t
		}
		for _, line := range f["output"].GetListValue().GetValues() {
			res.Output = append(res.Output, line.GetStringValue())
		}
		resp.Results = append(resp.Results, res)
	}
	for _, v := range fields["messages"].GetListValue().GetValues() {
		f := v.GetStructValue().GetFields()
		resp.Messages = append(resp.Messages, lastools.Message{
			Level: lastools.Level(f["level"].GetStringValue()),
			Text:  f["text"].GetStringValue(),
		})
	}
	return resp
}

func toolsToStruct(tools []*lastools.Tool) (*structpb.Struct, error) {
	list := make([]any, len(tools))
	for i, t := range tools {
		list[i] = map[string]any{"name": t.Name, "group": t.Group, "summary": t.Summary}
	}
	return structpb.NewStruct(map[string]any{"tools": list})
}

func toolsFromStruct(s *structpb.Struct) []ToolInfo {
	var out []ToolInfo
	for _, v := range s.GetFields()["tools"].GetListValue().GetValues() {
		f := v.GetStructValue().GetFields()
		out = append(out, ToolInfo{
			Name:    f["name"].GetStringValue(),
			Group:   f["group"].GetStringValue(),
			Summary: f["summary"].GetStringValue(),
		})
	}
	return out
}

func stringList(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Replay forwards the captured messages of a remote run to a local sink.
func (r *RunResponse) Replay(fb lastools.Feedback) {
	for _, m := range r.Messages {
		switch m.Level {
		case lastools.LevelCommand:
			fb.PushCommandInfo(m.Text)
		case lastools.LevelConsole:
			fb.PushConsoleInfo(m.Text)
		case lastools.LevelWarning:
			fb.PushWarning(m.Text)
		case lastools.LevelError:
			fb.ReportError(m.Text)
		default:
			fb.PushInfo(m.Text)
		}
	}
}
