package stage

import (
	"sort"
	"strings"
)

// Quality names a predefined per-stage option profile.
type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
	QualityUltra  Quality = "ultra"
)

// ParseQuality converts a string into a known Quality level.
func ParseQuality(value string) (Quality, bool) {
	normalized := Quality(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case QualityLow, QualityMedium, QualityHigh, QualityUltra:
		return normalized, true
	}
	return "", false
}

// qualityProfiles maps each quality level to per-stage engine option
// defaults. Job-specific options always take precedence over these values.
var qualityProfiles = map[Quality]map[Stage]map[string]any{
	QualityLow: {
		OpenSFM:    {"feature-quality": "low"},
		OpenMVS:    {"pc-quality": "low"},
		Meshing:    {"mesh-size": 100000},
		DEM:        {"dem-resolution": 10.0},
		Orthophoto: {"orthophoto-resolution": 10.0},
		Report:     {"skip-report": true},
	},
	QualityMedium: {
		OpenSFM:    {"feature-quality": "medium"},
		OpenMVS:    {"pc-quality": "medium"},
		Meshing:    {"mesh-size": 200000},
		DEM:        {"dem-resolution": 5.0},
		Orthophoto: {"orthophoto-resolution": 5.0},
	},
	QualityHigh: {
		OpenSFM:    {"feature-quality": "high"},
		OpenMVS:    {"pc-quality": "high"},
		Meshing:    {"mesh-size": 300000},
		DEM:        {"dem-resolution": 2.5},
		Orthophoto: {"orthophoto-resolution": 2.5},
	},
	QualityUltra: {
		OpenSFM:    {"feature-quality": "ultra"},
		OpenMVS:    {"pc-quality": "ultra"},
		Meshing:    {"mesh-size": 600000},
		DEM:        {"dem-resolution": 1.0},
		Orthophoto: {"orthophoto-resolution": 1.0},
	},
}

// ProfileOptions returns the quality profile defaults for one stage. The
// returned map is a copy; callers may mutate it.
func ProfileOptions(level Quality, s Stage) map[string]any {
	profile, ok := qualityProfiles[level]
	if !ok {
		return map[string]any{}
	}
	defaults, ok := profile[s]
	if !ok {
		return map[string]any{}
	}
	cp := make(map[string]any, len(defaults))
	for name, value := range defaults {
		cp[name] = value
	}
	return cp
}

// MergeOptions overlays job-specific stage options onto the quality profile
// defaults for the stage. Job values win on conflicting keys.
func MergeOptions(level Quality, s Stage, jobOptions map[string]any) map[string]any {
	merged := ProfileOptions(level, s)
	for name, value := range jobOptions {
		merged[name] = value
	}
	return merged
}

// SortedOptionNames returns the option names of a merged set in stable order,
// so outbound engine payloads are deterministic.
func SortedOptionNames(options map[string]any) []string {
	names := make([]string, 0, len(options))
	for name := range options {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
