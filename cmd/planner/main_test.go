package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/napolitain/upgrade-planner/internal/cost"
	"github.com/napolitain/upgrade-planner/internal/models"
	"github.com/napolitain/upgrade-planner/internal/resolver"
)

func TestParseSelections(t *testing.T) {
	got, err := parseSelections([]string{"1001=3", " 3001 = 2 "})
	if err != nil {
		t.Fatalf("parseSelections: %v", err)
	}
	if got[1001] != 3 || got[3001] != 2 {
		t.Errorf("selections = %v", got)
	}

	for _, bad := range []string{"1001", "x=1", "1001=high"} {
		if _, err := parseSelections([]string{bad}); err == nil {
			t.Errorf("%q should be rejected", bad)
		}
	}
}

func TestParseOwned(t *testing.T) {
	got, err := parseOwned([]string{"building:5=1", " research : 10 = 2 "})
	if err != nil {
		t.Fatalf("parseOwned: %v", err)
	}
	want := []models.Requirement{
		{Type: models.RequirementBuilding, ID: 5, Level: 1},
		{Type: models.RequirementResearch, ID: 10, Level: 2},
	}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("owned = %v, want %v", got, want)
	}

	for _, bad := range []string{"building=1", "5=1", "castle:5=1", "building:x=1", "building:5=max"} {
		if _, err := parseOwned([]string{bad}); err == nil {
			t.Errorf("%q should be rejected", bad)
		}
	}
}

func TestFormatTime(t *testing.T) {
	if got := formatTime(3723); got != "01:02:03" {
		t.Errorf("formatTime(3723) = %s", got)
	}
}

func TestRenderTree(t *testing.T) {
	root := &resolver.Node{
		Requirement: models.Requirement{Type: models.RequirementResearch, ID: 10, Level: 2},
		Name:        "Advanced Refining",
		Children: []*resolver.Node{{
			Requirement: models.Requirement{Type: models.RequirementBuilding, ID: 5, Level: 1},
			Name:        "Research Station",
		}},
	}
	out := renderTree(root)
	for _, want := range []string{"Advanced Refining L2", "Research Station L1 (building #5)"} {
		if !strings.Contains(out, want) {
			t.Errorf("tree is missing %q:\n%s", want, out)
		}
	}
}

func TestPrintCostTable(t *testing.T) {
	timeID, _ := models.TimeResource(models.TimeResearch, 0)
	agg := &cost.Aggregate{
		BaseCost: models.Counter{2453327618: 100},
		BaseTime: models.Counter{timeID: 90},
		NetCost:  models.Counter{2453327618: 80},
		NetTime:  models.Counter{timeID: 60},
	}
	s := &cost.Summary{Total: agg, ByType: map[models.RequirementType]*cost.Aggregate{models.RequirementResearch: agg}}

	var buf bytes.Buffer
	printCostTable(&buf, s, true)
	out := buf.String()
	for _, want := range []string{"2453327618", "00:01:30", "00:00:30", "20"} {
		if !strings.Contains(out, want) {
			t.Errorf("table is missing %q:\n%s", want, out)
		}
	}
}
