package main

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.Und)

// displayTitle renders identifiers like "odm_dem" or "point_cloud_laz" as
// human-readable labels.
func displayTitle(value string) string {
	cleaned := strings.ReplaceAll(strings.TrimSpace(value), "_", " ")
	if cleaned == "" {
		return value
	}
	return titleCaser.String(cleaned)
}
