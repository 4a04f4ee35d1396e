package lastools

func lastile() *Tool {
	return &Tool{
		Name:    "lastile",
		Group:   GroupTools,
		Summary: "cut points into square tiles with an optional buffer",
		Binary:  "lastile",
		Params: []Param{
			Verbose(),
			CPU64(),
			InputFile(),
			FilesAreFlightlines(),
			ApplyFileSourceID(),
			&Number{Name: "tile_size", Usage: "tile edge length", Flag: "-tile_size", Default: 1000},
			&Number{Name: "buffer", Usage: "buffer around each tile", Flag: "-buffer", Default: 0},
			&Bool{Name: "flag_as_withheld", Usage: "flag buffer points as withheld", Tokens: []string{"-flag_as_withheld"}},
			&Bool{Name: "extra_pass", Usage: "count points per tile in an extra pass", Tokens: []string{"-extra_pass"}},
			OutputFile(),
			AdditionalOptions(),
		},
	}
}

func lassplit() *Tool {
	return &Tool{
		Name:    "lassplit",
		Group:   GroupTools,
		Summary: "split a file by flightline, classification or attribute interval",
		Binary:  "lassplit",
		Params: []Param{
			Verbose(),
			CPU64(),
			InputFile(),
			&Enum{Name: "split_by", Usage: "split criterion", Choices: Choices(Sentinel, "by_classification", "recover_flightlines")},
			&Operation{
				Name:  "split_interval",
				Usage: "split by attribute interval",
				Ops: []string{
					"by_gps_time_interval", "by_intensity_interval", "by_x_interval",
					"by_y_interval", "by_z_interval", "by_scan_angle_interval",
					"by_user_data_interval", "split",
				},
			},
			&Int{Name: "digits", Usage: "digits of the output file numbering", Flag: "-digits", Default: 7},
			OutputFile(),
			AdditionalOptions(),
		},
	}
}

func lasclip() *Tool {
	return &Tool{
		Name:    "lasclip",
		Group:   GroupTools,
		Summary: "clip or classify points with polygons",
		Binary:  "lasclip",
		Params: []Param{
			Verbose(),
			CPU64(),
			InputFile(),
			&File{Name: "polygon", Usage: "input polygon shapefile", Flag: "-poly", Required: true},
			&Bool{Name: "interior", Usage: "operate on points outside the polygons", Tokens: []string{"-interior"}},
			&Compound{Name: "classify", Usage: "classify points inside instead of clipping", Flag: "-classify", Default: "12"},
			OutputFile(),
			AdditionalOptions(),
		},
	}
}

func lascolor() *Tool {
	return &Tool{
		Name:    "lascolor",
		Group:   GroupTools,
		Summary: "colour points with RGB values from an orthophoto",
		Binary:  "lascolor",
		Params: []Param{
			Verbose(),
			CPU64(),
			InputFile(),
			&File{Name: "image", Usage: "input orthophoto", Flag: "-image", Required: true},
			&Bool{Name: "zero_rgb", Usage: "zero the RGB of points outside the image", Tokens: []string{"-zero_rgb"}},
			OutputFile(),
			AdditionalOptions(),
		},
	}
}

func lascontrol() *Tool {
	return &Tool{
		Name:    "lascontrol",
		Group:   GroupTools,
		Summary: "compare points against ground control points",
		Binary:  "lascontrol",
		Params: []Param{
			Verbose(),
			InputFile(),
			&File{Name: "control_points", Usage: "control point file", Flag: "-cp", Required: true},
			&Text{Name: "parse", Usage: "control point columns", Flag: "-parse", Default: "xyz"},
			&Enum{
				Name:  "use_points",
				Usage: "points used for the comparison",
				Choices: []Choice{
					{Key: Sentinel},
					{Key: "ground", Tokens: []string{"-keep_class", "2"}},
					{Key: "ground_keypoints", Tokens: []string{"-keep_class", "2", "8"}},
				},
			},
			&Bool{Name: "adjust_z", Usage: "adjust z by the average difference", Tokens: []string{"-adjust_z"}},
			&File{Name: "control_points_output", Usage: "write the differences to this file", Flag: "-cp_out"},
			AdditionalOptions(),
		},
	}
}

func lasintensity() *Tool {
	return &Tool{
		Name:    "lasintensity",
		Group:   GroupTools,
		Summary: "correct intensities for range and atmospheric attenuation",
		Binary:  "lasintensity",
		Params: []Param{
			Verbose(),
			CPU64(),
			InputFile(),
			&Number{Name: "scanner_height", Usage: "scanner height above ground", Flag: "-scanner_height", Default: 0},
			&Number{Name: "atmospheric_visibility", Usage: "atmospheric visibility in km", Flag: "-av", Default: 0},
			&Number{Name: "wavelength", Usage: "laser wavelength in micrometers", Flag: "-w", Default: 0},
			OutputFile(),
			AdditionalOptions(),
		},
	}
}

func lasoverlap() *Tool {
	return &Tool{
		Name:    "lasoverlap",
		Group:   GroupTools,
		Summary: "raster the flightline overlap and elevation differences",
		Binary:  "lasoverlap",
		Params: []Param{
			Verbose(),
			CPU64(),
			InputFile(),
			FilesAreFlightlines(),
			FilterReturnClassFlags(1),
			Step(2),
			&Number{Name: "min_diff", Usage: "difference shown as full blue/red", Flag: "-min_diff", Default: 5},
			&Number{Name: "max_diff", Usage: "difference shown as full saturation", Flag: "-max_diff", Default: 10},
			&Bool{Name: "no_diff", Usage: "skip the difference raster", Tokens: []string{"-no_diff"}},
			&Bool{Name: "no_over", Usage: "skip the overlap raster", Tokens: []string{"-no_over"}},
			OutputRasterFile(),
			AdditionalOptions(),
		},
	}
}

func lasoverage() *Tool {
	return &Tool{
		Name:    "lasoverage",
		Group:   GroupTools,
		Summary: "find and mark the overage points of overlapping flightlines",
		Binary:  "lasoverage",
		Params: []Param{
			Verbose(),
			CPU64(),
			InputFile(),
			FilesAreFlightlines(),
			HorizontalFeet(),
			Step(1),
			&Enum{
				Name:  "operation",
				Usage: "what to do with overage points",
				Choices: []Choice{
					{Key: "classify"},
					{Key: "flag", Tokens: []string{"-flag_as_overlap"}},
					{Key: "remove", Tokens: []string{"-remove_overage"}},
				},
			},
			OutputFile(),
			AdditionalOptions(),
		},
	}
}

func lasboundary() *Tool {
	return &Tool{
		Name:    "lasboundary",
		Group:   GroupTools,
		Summary: "compute a boundary polygon around the points",
		Binary:  "lasboundary",
		Params: []Param{
			Verbose(),
			CPU64(),
			InputFile(),
			FilterReturnClassFlags(1),
			&Number{Name: "concavity", Usage: "concavity of the boundary", Flag: "-concavity", Default: 50},
			&Bool{Name: "holes", Usage: "also compute interior holes", Tokens: []string{"-holes"}},
			&Bool{Name: "disjoint", Usage: "allow disjoint polygons", Tokens: []string{"-disjoint"}},
			&Bool{Name: "labels", Usage: "write labels", Tokens: []string{"-labels"}},
			OutputVectorFile(),
			AdditionalOptions(),
		},
	}
}
