package quest

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadTemplates reads a JSON array of quest templates from disk
func LoadTemplates(path string) ([]Template, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read templates: %w", err)
	}
	var templates []Template
	if err := json.Unmarshal(raw, &templates); err != nil {
		return nil, fmt.Errorf("invalid templates format: %w", err)
	}
	for i, t := range templates {
		if t.ID == "" {
			return nil, fmt.Errorf("template %d has no id", i)
		}
	}
	return templates, nil
}
