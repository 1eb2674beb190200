package registry

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
)

//go:embed activities.json
var defaultActivities []byte

var activityIDPattern = regexp.MustCompile(`^[a-z]+\.[a-z]+\.[a-z]+$`)

// LoadRegistry reads a registry file from disk.
func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Default returns the registry compiled into the binary.
func Default() (*ActivityRegistry, error) {
	return Parse(defaultActivities)
}

// Parse decodes and validates a registry document.
func Parse(data []byte) (*ActivityRegistry, error) {
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("decode registry: %w", err)
	}

	seen := make(map[string]bool, len(reg.Activities))
	for _, a := range reg.Activities {
		if !activityIDPattern.MatchString(a.ID) {
			return nil, fmt.Errorf("activity %q: id must follow domain.subdomain.action", a.ID)
		}
		if a.TaskType == "" {
			return nil, fmt.Errorf("activity %q: taskType is required", a.ID)
		}
		if seen[a.TaskType] {
			return nil, fmt.Errorf("activity %q: duplicate taskType %q", a.ID, a.TaskType)
		}
		seen[a.TaskType] = true
	}
	return &reg, nil
}

// Lookup finds the activity served by taskType.
func (r *ActivityRegistry) Lookup(taskType string) (*Activity, bool) {
	if r == nil {
		return nil, false
	}
	for i := range r.Activities {
		if r.Activities[i].TaskType == taskType {
			return &r.Activities[i], true
		}
	}
	return nil, false
}

// TaskTypes lists the registered task types in registry order.
func (r *ActivityRegistry) TaskTypes() []string {
	types := make([]string, 0, len(r.Activities))
	for _, a := range r.Activities {
		types = append(types, a.TaskType)
	}
	return types
}
