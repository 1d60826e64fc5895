package quest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadTemplates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.json")
	raw := `[{"id": "lost-parcel", "type": "side", "title": "The Lost Parcel",
		"steps": [{"id": "ask_clerk", "type": "talk", "required_count": 1}],
		"base_reward": {"money": 100, "exp": 50}, "time_limit": "15m"}]`
	if err := os.WriteFile(path, []byte(raw), 0644); err != nil {
		t.Fatalf("write templates: %v", err)
	}

	templates, err := LoadTemplates(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(templates) != 1 || templates[0].Steps[0].ID != "ask_clerk" || templates[0].BaseReward.Money != 100 {
		t.Errorf("unexpected templates %+v", templates)
	}
	if templates[0].TimeLimit.Std() != 15*time.Minute {
		t.Errorf("expected a 15m time limit, got %s", templates[0].TimeLimit.Std())
	}
}

func TestDuration_JSON(t *testing.T) {
	tests := map[string]time.Duration{
		`"90s"`:  90 * time.Second,
		`"1h5m"`: time.Hour + 5*time.Minute,
		`120`:    2 * time.Minute,
	}
	for raw, want := range tests {
		var d Duration
		if err := json.Unmarshal([]byte(raw), &d); err != nil {
			t.Fatalf("unmarshal %s: %v", raw, err)
		}
		if d.Std() != want {
			t.Errorf("%s: got %s, want %s", raw, d.Std(), want)
		}
	}

	out, err := json.Marshal(Template{ID: "t", TimeLimit: Duration(10 * time.Minute)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]interface{}
	json.Unmarshal(out, &raw)
	if raw["time_limit"] != "10m0s" {
		t.Errorf("time limit should be written as a duration string, got %v", raw["time_limit"])
	}

	var d Duration
	if err := json.Unmarshal([]byte(`"ten minutes"`), &d); err == nil {
		t.Errorf("expected error for unparsable duration")
	}
}

func TestLoadTemplates_Invalid(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"not json":   `{broken`,
		"missing id": `[{"title": "nameless"}]`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, "templates.json")
			os.WriteFile(path, []byte(body), 0644)
			if _, err := LoadTemplates(path); err == nil {
				t.Errorf("expected error")
			}
		})
	}
	if _, err := LoadTemplates(filepath.Join(dir, "missing.json")); err == nil {
		t.Errorf("expected error for missing file")
	}
}
