package stage

import "strings"

// ResultType identifies an artifact a completed stage may leave in the job
// working directory.
type ResultType string

const (
	PointCloudPLY     ResultType = "point_cloud_ply"
	PointCloudLAZ     ResultType = "point_cloud_laz"
	PointCloudCSV     ResultType = "point_cloud_csv"
	TexturedModel     ResultType = "textured_model"
	TexturedModelGeo  ResultType = "textured_model_geo"
	OrthophotoGeoTIFF ResultType = "orthophoto_geotiff"
	OrthophotoWebP    ResultType = "orthophoto_webp"
	DSM               ResultType = "dsm"
	DTM               ResultType = "dtm"
	ProcessingReport  ResultType = "report"
)

// resultPaths maps each result type to its canonical path relative to the job
// working directory. These must match the engine's output layout bit-exact.
var resultPaths = map[ResultType]string{
	PointCloudPLY:     "odm_georeferencing/odm_georeferenced_model.ply",
	PointCloudLAZ:     "odm_georeferencing/odm_georeferenced_model.laz",
	PointCloudCSV:     "odm_georeferencing/odm_georeferenced_model.csv",
	TexturedModel:     "odm_texturing/odm_textured_model.obj",
	TexturedModelGeo:  "odm_texturing/odm_textured_model_geo.obj",
	OrthophotoGeoTIFF: "odm_orthophoto/odm_orthophoto.tif",
	OrthophotoWebP:    "odm_orthophoto/odm_orthophoto.webp",
	DSM:               "odm_dem/dsm.tif",
	DTM:               "odm_dem/dtm.tif",
	ProcessingReport:  "odm_georeferencing/odm_georeferencing_log.txt",
}

// stageResults maps producing stages to the artifact types they are
// responsible for. Stages absent from this table produce no artifacts.
var stageResults = map[Stage][]ResultType{
	Texturing:      {TexturedModel, TexturedModelGeo},
	Georeferencing: {PointCloudPLY, PointCloudLAZ, PointCloudCSV},
	DEM:            {DSM, DTM},
	Orthophoto:     {OrthophotoGeoTIFF, OrthophotoWebP},
	Report:         {ProcessingReport},
}

// RelPath returns the canonical relative path for a result type.
func (r ResultType) RelPath() (string, bool) {
	path, ok := resultPaths[r]
	return path, ok
}

// ParseResultType converts a string into a known ResultType.
func ParseResultType(value string) (ResultType, bool) {
	normalized := ResultType(strings.ToLower(strings.TrimSpace(value)))
	_, ok := resultPaths[normalized]
	return normalized, ok
}

// Results returns the ordered set of result types a stage is responsible for
// producing. Most stages return an empty slice.
func (s Stage) Results() []ResultType {
	types, ok := stageResults[s]
	if !ok {
		return nil
	}
	cp := make([]ResultType, len(types))
	copy(cp, types)
	return cp
}
