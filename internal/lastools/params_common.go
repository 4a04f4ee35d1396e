package lastools

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
)

// Flag names shared by many tools. Tool.Commands, Production and the
// pipelines look some of them up directly.
const (
	FlagVerbose            = "verbose"
	FlagCPU64              = "cpu64"
	FlagCores              = "cores"
	FlagInput              = "input"
	FlagInputDirectory     = "input_directory"
	FlagInputWildcards     = "input_wildcards"
	FlagOutput             = "output"
	FlagOutputDirectory    = "output_directory"
	FlagOutputAppendix     = "output_appendix"
	FlagOutputFormat       = "output_format"
	FlagTemporaryDirectory = "temporary_directory"
	FlagAdditionalOptions  = "additional_options"
)

// DefaultWildcards is the input pattern of production tools.
const DefaultWildcards = "*.laz"

func Verbose() Param {
	return &Bool{Name: FlagVerbose, Usage: "verbose console output", Tokens: []string{"-v"}}
}

// CPU64 selects the 64-bit executable. It contributes no tokens; the
// binary name is resolved by Tool.Commands.
func CPU64() Param {
	return &Bool{Name: FlagCPU64, Usage: "run the 64-bit executable", Default: true}
}

func GUI() Param {
	return &Bool{Name: "gui", Usage: "open the LAStools GUI instead of running", Tokens: []string{"-gui"}}
}

// Cores emits -cores N only when N > 1.
func Cores() Param {
	return &Int{Name: FlagCores, Usage: "number of cores", Flag: "-cores", Default: 1, Above: 1}
}

func InputFile() Param {
	return &File{Name: FlagInput, Usage: "input LAS/LAZ file", Flag: "-i", Required: true, Role: RoleInput}
}

func InputGenericFile(usage string) Param {
	return &File{Name: FlagInput, Usage: usage, Flag: "-i", Required: true, Role: RoleInput}
}

// InputDirectory is the folder input of production tools: one
// "-i <dir>/<wildcard>" pair per whitespace-separated wildcard.
func InputDirectory() Param { return &folderInput{} }

type folderInput struct{}

func (p *folderInput) Define(fs *pflag.FlagSet) {
	fs.String(FlagInputDirectory, "", "input directory")
	fs.String(FlagInputWildcards, DefaultWildcards, "input wildcard(s), space separated")
}

func (p *folderInput) Commands(cmds []string, fs *pflag.FlagSet) ([]string, error) {
	patterns, err := p.patterns(fs)
	if err != nil {
		return cmds, err
	}
	for _, pat := range patterns {
		cmds = append(cmds, "-i", pat)
	}
	return cmds, nil
}

func (p *folderInput) patterns(fs *pflag.FlagSet) ([]string, error) {
	dir, err := fs.GetString(FlagInputDirectory)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return nil, fmt.Errorf("%w: --%s", ErrMissingParam, FlagInputDirectory)
	}
	wc, err := fs.GetString(FlagInputWildcards)
	if err != nil {
		return nil, err
	}
	wildcards := strings.Fields(wc)
	if len(wildcards) == 0 {
		wildcards = []string{DefaultWildcards}
	}
	out := make([]string, len(wildcards))
	for i, w := range wildcards {
		out[i] = filepath.Join(dir, w)
	}
	return out, nil
}

func (p *folderInput) PathValues(fs *pflag.FlagSet) []string {
	out, _ := p.patterns(fs)
	return out
}

func FilesAreFlightlines() Param {
	return &Bool{Name: "files_are_flightlines", Usage: "input files are flightlines", Tokens: []string{"-files_are_flightlines"}}
}

func ApplyFileSourceID() Param {
	return &Bool{Name: "apply_file_source_ID", Usage: "apply file source ID", Tokens: []string{"-apply_file_source_ID"}}
}

func FilesArePlots() Param {
	return &Bool{Name: "files_are_plots", Usage: "input files are plots", Tokens: []string{"-files_are_plots"}}
}

func Step(def float64) Param {
	return &Number{Name: "step", Usage: "step size / pixel size", Flag: "-step", Default: def}
}

func HorizontalFeet() Param {
	return &Bool{Name: "feet", Usage: "horizontal units are feet", Tokens: []string{"-feet"}}
}

func VerticalFeet() Param {
	return &Bool{Name: "elevation_feet", Usage: "vertical units are feet", Tokens: []string{"-elevation_feet"}}
}

// classKeys are the ASPRS classifications offered by class selectors.
var classKeys = []string{
	"never_classified", "unclassified", "ground", "veg_low", "veg_mid",
	"veg_high", "buildings", "noise", "keypoint", "water", "rail",
	"road_surface", "overlap", "wire_guard", "wire_conductor",
	"transmission_tower", "wire_connector", "bridge_deck", "high_noise",
}

func classChoices(flag string) []Choice {
	out := []Choice{{Key: Sentinel}}
	for i, k := range classKeys {
		out = append(out, Choice{Key: k, Tokens: []string{flag, fmt.Sprint(i)}})
	}
	return out
}

// IgnoreClass emits "-ignore_class N". n distinguishes the two selectors.
func IgnoreClass(n int) Param {
	return &Enum{
		Name:    fmt.Sprintf("ignore_class%d", n),
		Usage:   "ignore points of this class",
		Choices: classChoices("-ignore_class"),
	}
}

var filterReturnClassFlags = []Choice{
	{Key: Sentinel},
	{Key: "keep_last", Tokens: []string{"-keep_last"}},
	{Key: "keep_first", Tokens: []string{"-keep_first"}},
	{Key: "keep_middle", Tokens: []string{"-keep_middle"}},
	{Key: "keep_single", Tokens: []string{"-keep_single"}},
	{Key: "drop_single", Tokens: []string{"-drop_single"}},
	{Key: "keep_double", Tokens: []string{"-keep_double"}},
	{Key: "keep_class_2", Tokens: []string{"-keep_class", "2"}},
	{Key: "keep_class_2_8", Tokens: []string{"-keep_class", "2", "8"}},
	{Key: "keep_class_3_4_5", Tokens: []string{"-keep_class", "3", "4", "5"}},
	{Key: "keep_class_6", Tokens: []string{"-keep_class", "6"}},
	{Key: "keep_class_9", Tokens: []string{"-keep_class", "9"}},
	{Key: "drop_class_1", Tokens: []string{"-drop_class", "1"}},
	{Key: "drop_class_2", Tokens: []string{"-drop_class", "2"}},
	{Key: "drop_class_7", Tokens: []string{"-drop_class", "7"}},
	{Key: "drop_class_7_18", Tokens: []string{"-drop_class", "7", "18"}},
	{Key: "drop_withheld", Tokens: []string{"-drop_withheld"}},
	{Key: "drop_synthetic", Tokens: []string{"-drop_synthetic"}},
	{Key: "drop_overlap", Tokens: []string{"-drop_overlap"}},
	{Key: "keep_overlap", Tokens: []string{"-keep_overlap"}},
	{Key: "drop_scan_direction_0", Tokens: []string{"-drop_scan_direction", "0"}},
	{Key: "keep_edge_of_flight_line", Tokens: []string{"-keep_edge_of_flight_line"}},
}

// FilterReturnClassFlags selects a return, classification or flag filter.
func FilterReturnClassFlags(n int) Param {
	return &Enum{
		Name:    fmt.Sprintf("filter_return_class_flags%d", n),
		Usage:   "filter points by return, classification or flags",
		Choices: filterReturnClassFlags,
	}
}

var filterCoordsIntensityOps = []string{
	"drop_x_above", "drop_x_below", "drop_y_above", "drop_y_below",
	"drop_z_above", "drop_z_below", "drop_intensity_above",
	"drop_intensity_below", "drop_gps_time_above", "drop_gps_time_below",
	"drop_scan_angle_above", "drop_scan_angle_below", "keep_point_source",
	"drop_point_source", "drop_point_source_above", "drop_point_source_below",
	"keep_user_data", "drop_user_data", "keep_every_nth", "keep_random_fraction",
	"thin_with_grid",
}

// FilterCoordsIntensity selects a coordinate or intensity filter with a
// value, as in "-drop_z_above 120".
func FilterCoordsIntensity(n int) Param {
	return &Operation{
		Name:  fmt.Sprintf("filter_coords_intensity%d", n),
		Usage: "filter points by coordinate, intensity or attribute",
		Ops:   filterCoordsIntensityOps,
	}
}

var transformCoordinateOps = []string{
	"translate_x", "translate_y", "translate_z", "scale_x", "scale_y",
	"scale_z", "clamp_z_above", "clamp_z_below", "translate_xyz",
}

func TransformCoordinate(n int) Param {
	return &Operation{
		Name:  fmt.Sprintf("transform_coordinate%d", n),
		Usage: "transform coordinates",
		Ops:   transformCoordinateOps,
	}
}

var transformOtherOps = []string{
	"scale_intensity", "translate_intensity", "clamp_intensity_above",
	"clamp_intensity_below", "scale_scan_angle", "translate_gps_time",
	"change_classification_from_to", "change_point_source_from_to",
	"change_user_data_from_to", "set_classification", "set_user_data",
	"set_point_source",
}

func TransformOther(n int) Param {
	return &Operation{
		Name:  fmt.Sprintf("transform_other%d", n),
		Usage: "transform intensity, classification or other attributes",
		Ops:   transformOtherOps,
	}
}

func PointOutputFormat() Param {
	return &Switch{Name: FlagOutputFormat, Usage: "output point format", Prefix: "-o", Choices: []string{"laz", "las"}}
}

func RasterOutputFormat() Param {
	return &Switch{
		Name:    FlagOutputFormat,
		Usage:   "output raster format",
		Prefix:  "-o",
		Choices: []string{"tif", "bil", "img", "png", "jpg", "asc", "xyz", "flt", "dtm", "bmp"},
	}
}

func VectorOutputFormat() Param {
	return &Switch{Name: FlagOutputFormat, Usage: "output vector format", Prefix: "-o", Choices: []string{"shp", "wkt", "kml", "txt"}}
}

func OutputFile() Param {
	return &File{Name: FlagOutput, Usage: "output LAS/LAZ file", Flag: "-o", Role: RoleOutput}
}

func OutputRasterFile() Param {
	return &File{Name: FlagOutput, Usage: "output raster file", Flag: "-o", Role: RoleOutput}
}

func OutputVectorFile() Param {
	return &File{Name: FlagOutput, Usage: "output vector file", Flag: "-o", Role: RoleOutput}
}

func OutputGenericFile(usage string) Param {
	return &File{Name: FlagOutput, Usage: usage, Flag: "-o", Role: RoleOutput}
}

func OutputDirectory() Param {
	return &File{Name: FlagOutputDirectory, Usage: "output directory", Flag: "-odir"}
}

func OutputAppendix() Param {
	return &Text{Name: FlagOutputAppendix, Usage: "appendix added to output file names", Flag: "-odix"}
}

// TemporaryDirectory holds the intermediate files of pipelines. It
// contributes no tokens.
func TemporaryDirectory() Param {
	return &File{Name: FlagTemporaryDirectory, Usage: "directory for temporary files"}
}

// AdditionalOptions are appended verbatim, split on whitespace.
func AdditionalOptions() Param {
	return &Text{Name: FlagAdditionalOptions, Usage: "additional command line options"}
}
