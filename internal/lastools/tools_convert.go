package lastools

var sourceProjectionOps = []string{"epsg", "utm", "sp83", "sp27"}

var targetProjectionOps = []string{"target_epsg", "target_utm", "target_sp83", "target_sp27"}

var separatorChoices = []Choice{
	{Key: Sentinel},
	{Key: "comma", Tokens: []string{"-sep", "comma"}},
	{Key: "tab", Tokens: []string{"-sep", "tab"}},
	{Key: "semicolon", Tokens: []string{"-sep", "semicolon"}},
	{Key: "colon", Tokens: []string{"-sep", "colon"}},
	{Key: "hyphen", Tokens: []string{"-sep", "hyphen"}},
}

func las2lasFilter() *Tool {
	return &Tool{
		Name:    "las2las_filter",
		Group:   GroupTools,
		Summary: "filter points by return, classification, flags, coordinates or intensity",
		Binary:  "las2las",
		Params: []Param{
			Verbose(),
			CPU64(),
			InputFile(),
			FilterReturnClassFlags(1),
			FilterReturnClassFlags(2),
			FilterReturnClassFlags(3),
			FilterCoordsIntensity(1),
			FilterCoordsIntensity(2),
			OutputFile(),
			AdditionalOptions(),
		},
	}
}

func las2lasProject() *Tool {
	return &Tool{
		Name:    "las2las_project",
		Group:   GroupTools,
		Summary: "reproject points from one coordinate reference system to another",
		Binary:  "las2las",
		Params: []Param{
			Verbose(),
			CPU64(),
			InputFile(),
			&Operation{Name: "source_projection", Usage: "source projection and its zone or code", Ops: sourceProjectionOps},
			&Bool{Name: "source_longlat", Usage: "source is geographic longitude/latitude", Tokens: []string{"-longlat"}},
			&Operation{Name: "target_projection", Usage: "target projection and its zone or code", Ops: targetProjectionOps},
			&Bool{Name: "target_longlat", Usage: "target is geographic longitude/latitude", Tokens: []string{"-target_longlat"}},
			&Enum{
				Name:    "target_units",
				Usage:   "horizontal units of the target",
				Choices: Choices(Sentinel, "target_meter", "target_feet", "target_survey_feet"),
			},
			&Enum{
				Name:    "target_elevation_units",
				Usage:   "vertical units of the target",
				Choices: Choices(Sentinel, "target_elevation_meter", "target_elevation_feet", "target_elevation_survey_feet"),
			},
			OutputFile(),
			AdditionalOptions(),
		},
	}
}

func las2lasTransform() *Tool {
	return &Tool{
		Name:    "las2las_transform",
		Group:   GroupTools,
		Summary: "transform coordinates, intensities and other attributes",
		Binary:  "las2las",
		Params: []Param{
			Verbose(),
			CPU64(),
			InputFile(),
			TransformCoordinate(1),
			TransformCoordinate(2),
			TransformOther(1),
			TransformOther(2),
			&Int{Name: "set_point_type", Usage: "convert to this point data format", Flag: "-set_point_type", Default: -1, Above: -1},
			&Int{Name: "set_version_minor", Usage: "set the LAS minor version", Flag: "-set_version_minor", Default: -1, Above: -1},
			OutputFile(),
			AdditionalOptions(),
		},
	}
}

func las2txt() *Tool {
	return &Tool{
		Name:    "las2txt",
		Group:   GroupTools,
		Summary: "convert LAS/LAZ points to ASCII text",
		Binary:  "las2txt",
		Params: []Param{
			Verbose(),
			CPU64(),
			InputFile(),
			&Text{Name: "parse", Usage: "attributes to write, e.g. xyzi", Flag: "-parse", Default: "xyz"},
			&Enum{Name: "separator", Usage: "column separator", Choices: separatorChoices},
			&Bool{Name: "header", Usage: "write the header as comment lines", Tokens: []string{"-header", "pound"}},
			OutputGenericFile("output ASCII file"),
			AdditionalOptions(),
		},
	}
}

func txt2las() *Tool {
	return &Tool{
		Name:    "txt2las",
		Group:   GroupTools,
		Summary: "convert ASCII text to LAS/LAZ",
		Binary:  "txt2las",
		Params: []Param{
			Verbose(),
			CPU64(),
			InputGenericFile("input ASCII file"),
			&Text{Name: "parse", Usage: "columns to read, e.g. xyzi", Flag: "-parse", Default: "xyz"},
			&Int{Name: "skip", Usage: "number of header lines to skip", Flag: "-skip", Default: 0},
			&Compound{Name: "scale_factor", Usage: "x y z scale factors", Flag: "-set_scale", Default: "0.01 0.01 0.01"},
			&Operation{Name: "projection", Usage: "projection of the input coordinates", Ops: sourceProjectionOps},
			OutputFile(),
			AdditionalOptions(),
		},
	}
}

func las2shp() *Tool {
	return &Tool{
		Name:    "las2shp",
		Group:   GroupTools,
		Summary: "convert LAS/LAZ points to an ESRI shapefile",
		Binary:  "las2shp",
		Params: []Param{
			Verbose(),
			InputFile(),
			&Bool{Name: "single_points", Usage: "write single points instead of multipoints", Tokens: []string{"-single_points"}},
			&Int{Name: "record", Usage: "points per multipoint record", Flag: "-record", Default: 1024},
			OutputVectorFile(),
			AdditionalOptions(),
		},
	}
}

func shp2las() *Tool {
	return &Tool{
		Name:    "shp2las",
		Group:   GroupTools,
		Summary: "convert an ESRI shapefile of points to LAS/LAZ",
		Binary:  "shp2las",
		Params: []Param{
			Verbose(),
			InputGenericFile("input SHP file"),
			&Compound{Name: "scale_factor", Usage: "x y z scale factors", Flag: "-set_scale", Default: "0.01 0.01 0.01"},
			OutputFile(),
			AdditionalOptions(),
		},
	}
}

func e572las() *Tool {
	return &Tool{
		Name:    "e572las",
		Group:   GroupTools,
		Summary: "convert E57 scans to LAS/LAZ",
		Binary:  "e572las",
		Params: []Param{
			Verbose(),
			CPU64(),
			InputGenericFile("input E57 file"),
			&Bool{Name: "split_scans", Usage: "write one file per scan", Tokens: []string{"-split_scans"}},
			&Bool{Name: "include_unfilled", Usage: "include unfilled grid points", Tokens: []string{"-include_unfilled"}},
			OutputFile(),
			AdditionalOptions(),
		},
	}
}
