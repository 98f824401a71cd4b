package stage

import "strings"

// Stage identifies one step in the fixed linear processing pipeline.
type Stage string

const (
	Dataset        Stage = "dataset"
	Split          Stage = "split"
	Merge          Stage = "merge"
	OpenSFM        Stage = "opensfm"
	OpenMVS        Stage = "openmvs"
	FilterPoints   Stage = "odm_filterpoints"
	Meshing        Stage = "odm_meshing"
	Texturing      Stage = "mvs_texturing"
	Georeferencing Stage = "odm_georeferencing"
	DEM            Stage = "odm_dem"
	Orthophoto     Stage = "odm_orthophoto"
	Report         Stage = "odm_report"
	Postprocess    Stage = "odm_postprocess"
)

// pipeline is the authoritative stage ordering. Previous/Next navigation is
// derived from position in this slice.
var pipeline = []Stage{
	Dataset,
	Split,
	Merge,
	OpenSFM,
	OpenMVS,
	FilterPoints,
	Meshing,
	Texturing,
	Georeferencing,
	DEM,
	Orthophoto,
	Report,
	Postprocess,
}

var pipelineIndex = func() map[Stage]int {
	index := make(map[Stage]int, len(pipeline))
	for i, s := range pipeline {
		index[s] = i
	}
	return index
}()

// Pipeline returns the ordered list of stages.
func Pipeline() []Stage {
	cp := make([]Stage, len(pipeline))
	copy(cp, pipeline)
	return cp
}

// First returns the initial pipeline stage.
func First() Stage {
	return pipeline[0]
}

// Parse converts a string into a known Stage.
func Parse(value string) (Stage, bool) {
	normalized := Stage(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := pipelineIndex[normalized]
	return normalized, ok
}

// Valid reports whether s is a known pipeline stage.
func (s Stage) Valid() bool {
	_, ok := pipelineIndex[s]
	return ok
}

// Previous returns the preceding stage, or "" at the pipeline start.
func (s Stage) Previous() Stage {
	idx, ok := pipelineIndex[s]
	if !ok || idx == 0 {
		return ""
	}
	return pipeline[idx-1]
}

// Next returns the following stage, or "" at the pipeline end.
func (s Stage) Next() Stage {
	idx, ok := pipelineIndex[s]
	if !ok || idx == len(pipeline)-1 {
		return ""
	}
	return pipeline[idx+1]
}

// DisplayName returns a human-readable label for CLI and API output.
func (s Stage) DisplayName() string {
	name := strings.TrimPrefix(string(s), "odm_")
	name = strings.TrimPrefix(name, "mvs_")
	return strings.ReplaceAll(name, "_", " ")
}
