package lastools

func lasinfo() *Tool {
	return &Tool{
		Name:    "lasinfo",
		Group:   GroupTools,
		Summary: "report the header and content summary of a LAS/LAZ file",
		Binary:  "lasinfo",
		Params: []Param{
			Verbose(),
			CPU64(),
			GUI(),
			InputFile(),
			&Bool{Name: "compute_density", Usage: "compute the point density", Tokens: []string{"-cd"}},
			&Bool{Name: "repair_bb", Usage: "repair the bounding box in the header", Tokens: []string{"-repair_bb"}},
			&Bool{Name: "repair_counters", Usage: "repair the point counters in the header", Tokens: []string{"-repair_counters"}},
			&Compound{Name: "histo", Usage: "histogram of an attribute with a bin size", Flag: "-histo", Default: "z 1"},
			OutputGenericFile("output text file"),
			AdditionalOptions(),
		},
	}
}

func lasview() *Tool {
	return &Tool{
		Name:    "lasview",
		Group:   GroupTools,
		Summary: "open a LAS/LAZ file in the LAStools viewer",
		Binary:  "lasview",
		Params: []Param{
			Verbose(),
			InputFile(),
			&Int{Name: "points", Usage: "maximum number of points displayed", Flag: "-points", Default: 5000000},
			&Enum{
				Name:  "window",
				Usage: "viewer window size",
				Choices: []Choice{
					{Key: Sentinel},
					{Key: "small", Tokens: []string{"-win", "640", "480"}},
					{Key: "medium", Tokens: []string{"-win", "1024", "768"}},
					{Key: "large", Tokens: []string{"-win", "1600", "1200"}},
				},
			},
			AdditionalOptions(),
		},
	}
}

func lasindex() *Tool {
	return &Tool{
		Name:    "lasindex",
		Group:   GroupTools,
		Summary: "create a spatial index (.lax) for a LAS/LAZ file",
		Binary:  "lasindex",
		Params: []Param{
			Verbose(),
			CPU64(),
			InputFile(),
			&Bool{Name: "append", Usage: "append the index to the LAZ file", Tokens: []string{"-append"}},
			&Number{Name: "tile_size", Usage: "size of the index cells", Flag: "-tile_size", Default: 5},
			&Int{Name: "minimum_points", Usage: "minimum points per cell", Flag: "-minimum_points", Default: 1000},
			AdditionalOptions(),
		},
	}
}

func laszip() *Tool {
	return &Tool{
		Name:    "laszip",
		Group:   GroupTools,
		Summary: "compress LAS to LAZ or decompress LAZ to LAS",
		Binary:  "laszip",
		Params: []Param{
			Verbose(),
			CPU64(),
			InputFile(),
			&Bool{Name: "create_lax", Usage: "also create a spatial index", Tokens: []string{"-lax"}},
			&Bool{Name: "append_lax", Usage: "append the spatial index to the LAZ file", Tokens: []string{"-append"}},
			OutputFile(),
			AdditionalOptions(),
		},
	}
}

func lasvalidate() *Tool {
	return &Tool{
		Name:    "lasvalidate",
		Group:   GroupTools,
		Summary: "check a LAS/LAZ file against the ASPRS specification",
		Binary:  "lasvalidate",
		Params: []Param{
			Verbose(),
			InputFile(),
			&Bool{Name: "one_report_per_file", Usage: "write one XML report per input file", Tokens: []string{"-one_report_per_file"}},
			OutputGenericFile("output XML report"),
			AdditionalOptions(),
		},
	}
}

func lasprecision() *Tool {
	return &Tool{
		Name:    "lasprecision",
		Group:   GroupTools,
		Summary: "analyse and change the coordinate resolution of a LAS/LAZ file",
		Binary:  "lasprecision",
		Params: []Param{
			Verbose(),
			CPU64(),
			InputFile(),
			&Int{Name: "number", Usage: "number of points analysed", Flag: "-number", Default: 0},
			&Compound{Name: "rescale", Usage: "rescale to new x y z scale factors", Flag: "-rescale", Default: "0.01 0.01 0.01"},
			OutputFile(),
			AdditionalOptions(),
		},
	}
}

func lasmerge() *Tool {
	return &Tool{
		Name:    "lasmerge",
		Group:   GroupTools,
		Summary: "merge several LAS/LAZ files into one",
		Binary:  "lasmerge",
		Params: []Param{
			Verbose(),
			CPU64(),
			FilesAreFlightlines(),
			ApplyFileSourceID(),
			InputFile(),
			&File{Name: "input2", Usage: "second input file", Flag: "-i"},
			&File{Name: "input3", Usage: "third input file", Flag: "-i"},
			&File{Name: "input4", Usage: "fourth input file", Flag: "-i"},
			&File{Name: "input5", Usage: "fifth input file", Flag: "-i"},
			OutputFile(),
			AdditionalOptions(),
		},
	}
}

// lasmergePro merges a whole folder, so it is not derived with Production:
// the output stays a single file.
func lasmergePro() *Tool {
	return &Tool{
		Name:    "lasmerge_pro",
		Group:   GroupProduction,
		Summary: "merge a folder of LAS/LAZ files into one",
		Binary:  "lasmerge",
		Params: []Param{
			Verbose(),
			CPU64(),
			InputDirectory(),
			FilesAreFlightlines(),
			ApplyFileSourceID(),
			&File{Name: FlagOutput, Usage: "merged output file", Flag: "-o", Required: true},
			AdditionalOptions(),
		},
	}
}

func lasdiff() *Tool {
	return &Tool{
		Name:    "lasdiff",
		Group:   GroupTools,
		Summary: "compare the points of two LAS/LAZ files",
		Binary:  "lasdiff",
		Params: []Param{
			Verbose(),
			CPU64(),
			InputFile(),
			&File{Name: "input_other", Usage: "file to compare against", Flag: "-i", Required: true},
			&Bool{Name: "random_seeks", Usage: "compare using random seeks", Tokens: []string{"-random_seeks"}},
			AdditionalOptions(),
		},
	}
}
