package main

import "testing"

func TestDisplayTitle(t *testing.T) {
	cases := map[string]string{
		"odm_dem":         "Odm Dem",
		"point_cloud_laz": "Point Cloud Laz",
		"running":         "Running",
		"":                "",
	}
	for in, want := range cases {
		if got := displayTitle(in); got != want {
			t.Errorf("displayTitle(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestJobCountRowsOrdering(t *testing.T) {
	counts := map[string]int{
		"failed":  1,
		"running": 3,
		"queued":  2,
		"legacy":  1,
	}
	rows := jobCountRows(counts)
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}
	got := make([]string, 0, len(rows))
	for _, row := range rows {
		got = append(got, row[0])
	}
	want := []string{"Queued", "Running", "Failed", "Legacy"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("row order %v, want %v", got, want)
		}
	}
}

func TestMaskSecret(t *testing.T) {
	if got := maskSecret(""); got != "(not set)" {
		t.Fatalf("empty secret rendered as %q", got)
	}
	if got := maskSecret("hunter2"); got != "********" {
		t.Fatalf("secret leaked as %q", got)
	}
}
