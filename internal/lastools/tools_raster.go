package lastools

var demAttributes = Choices("elevation", "slope", "intensity", "rgb")

var demProducts = []Choice{
	{Key: "actual_values"},
	{Key: "hillshade", Tokens: []string{"-hillshade"}},
	{Key: "gray", Tokens: []string{"-gray"}},
	{Key: "false", Tokens: []string{"-false"}},
}

var contourOps = []string{"iso_every", "iso_number", "iso_range"}

func lasgrid() *Tool {
	return &Tool{
		Name:    "lasgrid",
		Group:   GroupTools,
		Summary: "grid points into a raster of elevation, intensity or counts",
		Binary:  "lasgrid",
		Params: []Param{
			Verbose(),
			CPU64(),
			InputFile(),
			FilterReturnClassFlags(1),
			Step(1),
			&Enum{
				Name:    "attribute",
				Usage:   "attribute gridded",
				Choices: Choices("elevation", "intensity", "rgb", "scan_angle_abs", "number_returns", "counter"),
			},
			&Enum{
				Name:    "method",
				Usage:   "value kept per cell",
				Choices: Choices("lowest", "highest", "average", "stddev"),
				Default: 1,
				Always:  true,
			},
			&Bool{Name: "use_tile_bb", Usage: "raster only the tile bounding box", Tokens: []string{"-use_tile_bb"}},
			&Compound{Name: "fill", Usage: "fill empty cells within this many cells", Flag: "-fill", Default: "5"},
			OutputRasterFile(),
			AdditionalOptions(),
		},
	}
}

func lascanopy() *Tool {
	product := func(name, usage string) Param {
		return &Bool{Name: name, Usage: usage, Tokens: []string{"-" + name}}
	}
	return &Tool{
		Name:    "lascanopy",
		Group:   GroupTools,
		Summary: "compute forest metrics rasters from height-normalized points",
		Binary:  "lascanopy",
		Params: []Param{
			Verbose(),
			CPU64(),
			InputFile(),
			FilesArePlots(),
			Step(20),
			&Number{Name: "height_cutoff", Usage: "ignore points below this height", Flag: "-height_cutoff", Default: 1.37},
			product("min", "minimum height"),
			product("max", "maximum height"),
			product("avg", "average height"),
			product("std", "standard deviation of heights"),
			product("ske", "skewness of heights"),
			product("kur", "kurtosis of heights"),
			product("qav", "quadratic average height"),
			product("cov", "canopy cover"),
			product("dns", "canopy density"),
			&Compound{Name: "percentiles", Usage: "height percentiles", Flag: "-p", Default: "25 50 75"},
			&Compound{Name: "counts", Usage: "height break counts", Flag: "-c", Default: "2 4 10 50"},
			OutputRasterFile(),
			AdditionalOptions(),
		},
	}
}

func demParams(withSpikeFree bool) []Param {
	params := []Param{
		Verbose(),
		CPU64(),
		InputFile(),
		FilterReturnClassFlags(1),
		Step(1),
		&Number{Name: "kill", Usage: "drop triangles with edges longer than this", Flag: "-kill", Default: 50},
		&Enum{Name: "attribute", Usage: "attribute rastered", Choices: demAttributes},
		&Enum{Name: "product", Usage: "raster product", Choices: demProducts},
		&Bool{Name: "use_tile_bb", Usage: "raster only the tile bounding box", Tokens: []string{"-use_tile_bb"}},
	}
	if withSpikeFree {
		params = append(params, &Compound{Name: "spike_free", Usage: "spike-free freeze distance", Flag: "-spike_free", Default: "0.9"})
	}
	return append(params, OutputRasterFile(), AdditionalOptions())
}

func las2dem() *Tool {
	return &Tool{
		Name:    "las2dem",
		Group:   GroupTools,
		Summary: "raster a TIN of the points into a DEM",
		Binary:  "las2dem",
		Params:  demParams(true),
	}
}

func blast2dem() *Tool {
	return &Tool{
		Name:    "blast2dem",
		Group:   GroupTools,
		Summary: "raster a streamed TIN of a huge point cloud into a DEM",
		Binary:  "blast2dem",
		Params:  demParams(false),
	}
}

func isoParams() []Param {
	return []Param{
		Verbose(),
		CPU64(),
		InputFile(),
		&Number{Name: "smooth", Usage: "smooth the TIN before contouring", Flag: "-smooth", Default: 0},
		&Operation{Name: "contours", Usage: "contour spacing, count or range", Ops: contourOps},
		&Number{Name: "simplify_length", Usage: "remove segments shorter than this", Flag: "-simplify_length", Default: 0},
		&Number{Name: "simplify_area", Usage: "remove bumps smaller than this area", Flag: "-simplify_area", Default: 0},
		&Number{Name: "clean", Usage: "remove contours shorter than this", Flag: "-clean", Default: 0},
		OutputVectorFile(),
		AdditionalOptions(),
	}
}

func las2iso() *Tool {
	return &Tool{
		Name:    "las2iso",
		Group:   GroupTools,
		Summary: "extract elevation contours from a TIN of the points",
		Binary:  "las2iso",
		Params:  isoParams(),
	}
}

func blast2iso() *Tool {
	return &Tool{
		Name:    "blast2iso",
		Group:   GroupTools,
		Summary: "extract contours from a streamed TIN of a huge point cloud",
		Binary:  "blast2iso",
		Params:  isoParams(),
	}
}
