package lastools

// Terrain and granularity keys of lasground.
var (
	TerrainKeys     = []string{"wilderness", "nature", "town", "city", "metro"}
	GranularityKeys = []string{"coarse", "default", "fine", "extra_fine", "ultra_fine", "hyper_fine"}
)

// Terrain is the lasground terrain selector, default "town".
func Terrain() *Enum {
	return &Enum{Name: "terrain", Usage: "terrain type", Choices: Choices(TerrainKeys...), Default: 2}
}

// Granularity is the lasground granularity selector. The "default" choice
// emits nothing.
func Granularity() *Enum {
	choices := Choices(GranularityKeys...)
	choices[1].Tokens = nil
	return &Enum{Name: "granularity", Usage: "ground search granularity", Choices: choices, Default: 1}
}

func lasground() *Tool {
	return &Tool{
		Name:    "lasground",
		Group:   GroupTools,
		Summary: "classify points into ground (2) and non-ground (1)",
		Binary:  "lasground",
		Params: []Param{
			Verbose(),
			CPU64(),
			InputFile(),
			HorizontalFeet(),
			VerticalFeet(),
			IgnoreClass(1),
			Terrain(),
			Granularity(),
			&Bool{Name: "compute_height", Usage: "store the height above ground in the user data", Tokens: []string{"-compute_height"}},
			&Bool{Name: "replace_z", Usage: "replace z with the height above ground", Tokens: []string{"-replace_z"}},
			OutputFile(),
			AdditionalOptions(),
		},
	}
}

func lasgroundNew() *Tool {
	choices := Choices("wilderness", "nature", "town", "city", "metro", "custom")
	choices[5].Tokens = nil
	return &Tool{
		Name:    "lasground_new",
		Group:   GroupTools,
		Summary: "classify ground with the newer lasground_new algorithm",
		Binary:  "lasground_new",
		Params: []Param{
			Verbose(),
			CPU64(),
			InputFile(),
			HorizontalFeet(),
			VerticalFeet(),
			IgnoreClass(1),
			IgnoreClass(2),
			&Enum{Name: "terrain", Usage: "terrain type", Choices: choices, Default: 2},
			Granularity(),
			&Number{Name: "step", Usage: "custom step", Flag: "-step", Default: 25},
			&Number{Name: "bulge", Usage: "custom bulge", Flag: "-bulge", Default: 2},
			&Number{Name: "spike", Usage: "custom spike", Flag: "-spike", Default: 1},
			&Number{Name: "offset", Usage: "custom offset", Flag: "-offset", Default: 0.05},
			OutputFile(),
			AdditionalOptions(),
		},
	}
}

func lasheight() *Tool {
	return &Tool{
		Name:    "lasheight",
		Group:   GroupTools,
		Summary: "compute the height of each point above the ground TIN",
		Binary:  "lasheight",
		Params: []Param{
			Verbose(),
			CPU64(),
			InputFile(),
			IgnoreClass(1),
			&Bool{Name: "replace_z", Usage: "replace z with the height above ground", Tokens: []string{"-replace_z"}},
			&Compound{Name: "drop_above", Usage: "drop points above this height", Flag: "-drop_above", Default: "50"},
			&Compound{Name: "drop_below", Usage: "drop points below this height", Flag: "-drop_below", Default: "-2"},
			OutputFile(),
			AdditionalOptions(),
		},
	}
}

func lasheightClassify() *Tool {
	return &Tool{
		Name:    "lasheight_classify",
		Group:   GroupTools,
		Summary: "classify points by their height above ground",
		Binary:  "lasheight",
		Params: []Param{
			Verbose(),
			CPU64(),
			InputFile(),
			IgnoreClass(1),
			&Compound{Name: "classify_below", Usage: "height and class for points below", Flag: "-classify_below", Default: "-2 7"},
			&Compound{Name: "classify_between1", Usage: "min, max and class", Flag: "-classify_between", Default: "0.5 2 3"},
			&Compound{Name: "classify_between2", Usage: "min, max and class", Flag: "-classify_between", Default: "2 5 4"},
			&Compound{Name: "classify_above", Usage: "height and class for points above", Flag: "-classify_above", Default: "5 5"},
			OutputFile(),
			AdditionalOptions(),
		},
	}
}

func lasclassify() *Tool {
	return &Tool{
		Name:    "lasclassify",
		Group:   GroupTools,
		Summary: "classify buildings (6) and high vegetation (5)",
		Binary:  "lasclassify",
		Params: []Param{
			Verbose(),
			CPU64(),
			InputFile(),
			HorizontalFeet(),
			VerticalFeet(),
			IgnoreClass(1),
			&Bool{Name: "small_buildings", Usage: "also find small buildings", Tokens: []string{"-small_buildings"}},
			&Bool{Name: "small_trees", Usage: "also find small trees", Tokens: []string{"-small_trees"}},
			&Number{Name: "ground_offset", Usage: "minimum height above ground", Flag: "-ground_offset", Default: 2},
			&Number{Name: "planar", Usage: "planarity threshold for roofs", Flag: "-planar", Default: 0.1},
			&Number{Name: "rugged", Usage: "ruggedness threshold for trees", Flag: "-rugged", Default: 0.4},
			OutputFile(),
			AdditionalOptions(),
		},
	}
}

func lasthin() *Tool {
	return &Tool{
		Name:    "lasthin",
		Group:   GroupTools,
		Summary: "thin points with a grid keeping one point per cell",
		Binary:  "lasthin",
		Params: []Param{
			Verbose(),
			CPU64(),
			InputFile(),
			IgnoreClass(1),
			Step(1),
			&Enum{Name: "operation", Usage: "which point to keep", Choices: Choices("lowest", "random", "highest")},
			&Bool{Name: "withheld", Usage: "mark thinned points as withheld instead of removing", Tokens: []string{"-withheld"}},
			&Compound{Name: "classify_as", Usage: "classify surviving points as", Flag: "-classify_as", Default: "8"},
			OutputFile(),
			AdditionalOptions(),
		},
	}
}

func lasnoise() *Tool {
	return &Tool{
		Name:    "lasnoise",
		Group:   GroupTools,
		Summary: "flag or remove isolated noise points",
		Binary:  "lasnoise",
		Params: []Param{
			Verbose(),
			CPU64(),
			InputFile(),
			IgnoreClass(1),
			IgnoreClass(2),
			&Number{Name: "isolated", Usage: "maximum points in the neighbourhood", Flag: "-isolated", Default: 5},
			&Number{Name: "step_xy", Usage: "horizontal neighbourhood size", Flag: "-step_xy", Default: 4},
			&Number{Name: "step_z", Usage: "vertical neighbourhood size", Flag: "-step_z", Default: 4},
			&Enum{
				Name:  "operation",
				Usage: "classify noise as 7 or remove it",
				Choices: []Choice{
					{Key: "classify"},
					{Key: "remove", Tokens: []string{"-remove_noise"}},
				},
			},
			OutputFile(),
			AdditionalOptions(),
		},
	}
}

func lassort() *Tool {
	return &Tool{
		Name:    "lassort",
		Group:   GroupTools,
		Summary: "sort points along a space-filling curve or by attribute",
		Binary:  "lassort",
		Params: []Param{
			Verbose(),
			CPU64(),
			InputFile(),
			&Bool{Name: "by_gps_time", Usage: "sort by GPS time", Tokens: []string{"-gps_time"}},
			&Bool{Name: "by_point_source", Usage: "sort by point source ID", Tokens: []string{"-point_source"}},
			&Number{Name: "bucket_size", Usage: "bucket size of the space-filling curve", Flag: "-bucket_size", Default: 0},
			OutputFile(),
			AdditionalOptions(),
		},
	}
}

func lasduplicate() *Tool {
	return &Tool{
		Name:    "lasduplicate",
		Group:   GroupTools,
		Summary: "remove duplicate points",
		Binary:  "lasduplicate",
		Params: []Param{
			Verbose(),
			CPU64(),
			InputFile(),
			&Bool{Name: "lowest_z", Usage: "keep the lowest of xy duplicates", Tokens: []string{"-lowest_z"}},
			&Bool{Name: "unique_xyz", Usage: "only remove exact xyz duplicates", Tokens: []string{"-unique_xyz"}},
			&Bool{Name: "single_returns", Usage: "only consider single returns", Tokens: []string{"-single_returns"}},
			&Bool{Name: "record_removed", Usage: "write the removed duplicates to a second file", Tokens: []string{"-record_removed"}},
			OutputFile(),
			AdditionalOptions(),
		},
	}
}
