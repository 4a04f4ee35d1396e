package lastools

// BaseTools returns a fresh instance of every single-file tool.
func BaseTools() []*Tool {
	return []*Tool{
		lasinfo(), lasview(), lasindex(), laszip(), lasvalidate(),
		lasprecision(), lasmerge(), lasdiff(),
		las2lasFilter(), las2lasProject(), las2lasTransform(),
		las2txt(), txt2las(), las2shp(), shp2las(), e572las(),
		lasground(), lasgroundNew(), lasheight(), lasheightClassify(),
		lasclassify(), lasthin(), lasnoise(), lassort(), lasduplicate(),
		lastile(), lassplit(), lasclip(), lascolor(), lascontrol(),
		lasintensity(), lasoverlap(), lasoverage(), lasboundary(),
		lasgrid(), lascanopy(), las2dem(), las2iso(), blast2dem(), blast2iso(),
	}
}

// ProductionTools returns the folder-processing variants.
func ProductionTools() []*Tool {
	points := func(t *Tool) *Tool { return Production(t, PointOutputFormat()) }
	rasters := func(t *Tool) *Tool { return Production(t, RasterOutputFormat()) }
	vectors := func(t *Tool) *Tool { return Production(t, VectorOutputFormat()) }
	texts := func(t *Tool) *Tool { return Production(t, nil) }

	return []*Tool{
		texts(lasinfo()), texts(lasindex()), points(laszip()),
		texts(lasvalidate()), lasmergePro(),
		points(las2lasFilter()), points(las2lasProject()), points(las2lasTransform()),
		texts(las2txt()), points(txt2las()), vectors(las2shp()),
		points(lasground()), points(lasgroundNew()), points(lasheight()),
		points(lasheightClassify()), points(lasclassify()), points(lasthin()),
		points(lasnoise()), points(lassort()), points(lasduplicate()),
		points(lastile()), points(lascolor()), points(lasintensity()),
		points(lasoverage()), rasters(lasoverlap()), vectors(lasboundary()),
		rasters(lasgrid()), rasters(lascanopy()), rasters(las2dem()),
		vectors(las2iso()), rasters(blast2dem()), vectors(blast2iso()),
	}
}
