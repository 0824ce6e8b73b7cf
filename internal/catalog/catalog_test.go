package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tahcohcat/gamify-web/internal/models"
)

func TestDefaultCatalog(t *testing.T) {
	list, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}

	wantOrder := []string{
		"first-steps", "getting-started", "rising-star", "xp-collector",
		"streak-master", "first-quest", "quest-veteran", "busy-bee",
	}
	if len(list) != len(wantOrder) {
		t.Fatalf("len = %d, want %d", len(list), len(wantOrder))
	}
	for i, id := range wantOrder {
		if list[i].ID != id {
			t.Errorf("list[%d].ID = %q, want %q", i, list[i].ID, id)
		}
		if list[i].Position != i {
			t.Errorf("%s.Position = %d, want %d", id, list[i].Position, i)
		}
	}

	collector := list[3]
	if collector.RequirementType != models.RequirementCustom || collector.Rule != "total-xp" || collector.Threshold != 1000 {
		t.Errorf("xp-collector = %+v", collector)
	}
	if list[5].PointsReward != 1 {
		t.Errorf("first-quest points = %d, want 1", list[5].PointsReward)
	}
}

func TestLoadFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	data := `achievements:
  - id: one
    requirement_type: action-count
    threshold: 1
    xp_reward: 5
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	list, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(list) != 1 || list[0].ID != "one" || list[0].Name != "one" || list[0].XPReward != 5 {
		t.Errorf("list = %+v", list)
	}
}

func TestLoadEmptyPathUsesDefault(t *testing.T) {
	list, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(list) == 0 {
		t.Error("expected built-in catalog")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"empty", "achievements: []", "no achievements"},
		{"no id", "achievements:\n  - requirement_type: streak-length\n    threshold: 1", "no id"},
		{"zero threshold", "achievements:\n  - id: a\n    requirement_type: streak-length", "threshold"},
		{"bad type", "achievements:\n  - id: a\n    requirement_type: karma\n    threshold: 1", "unknown requirement type"},
		{"bad rule", "achievements:\n  - id: a\n    requirement_type: custom\n    rule: karma\n    threshold: 1", "unknown custom rule"},
		{"duplicate", "achievements:\n  - id: a\n    requirement_type: streak-length\n    threshold: 1\n  - id: a\n    requirement_type: streak-length\n    threshold: 2", "duplicate"},
		{"negative reward", "achievements:\n  - id: a\n    requirement_type: streak-length\n    threshold: 1\n    xp_reward: -1", "negative"},
		{"huge reward", "achievements:\n  - id: a\n    requirement_type: streak-length\n    threshold: 1\n    xp_reward: 5000000000000000000", "exceed"},
		{"not yaml", "achievements: [", "parse"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tc.want)
			}
		})
	}
}
