// internal/common/validation/schema.go
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"mangastream-workers/pkg/registry"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ValidateInput checks data against a JSON schema expressed as a Go map.
// An empty schema accepts everything.
func ValidateInput(input map[string]interface{}, schema map[string]interface{}) (*ValidationResult, error) {
	if len(schema) == 0 {
		return &ValidationResult{Valid: true}, nil
	}

	loader, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return validate(loader, input)
}

func validate(schema *gojsonschema.Schema, input map[string]interface{}) (*ValidationResult, error) {
	if input == nil {
		input = map[string]interface{}{}
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(input))
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		field := contextField(desc.Context())
		// required errors are reported against the parent with the missing property in details
		if desc.Type() == "required" {
			if prop, ok := desc.Details()["property"].(string); ok {
				field = joinField(field, prop)
			}
		}
		out.Errors = append(out.Errors, ValidationError{
			Field:   field,
			Message: desc.Description(),
			Code:    desc.Type(),
		})
	}
	return out, nil
}

func contextField(ctx *gojsonschema.JsonContext) string {
	if ctx == nil {
		return ""
	}
	path := strings.TrimPrefix(ctx.String(), gojsonschema.STRING_ROOT_SCHEMA_PROPERTY)
	return strings.TrimPrefix(path, ".")
}

func joinField(parent, child string) string {
	if parent == "" {
		return child
	}
	return parent + "." + child
}

// Validator validates job variables against the input schema registered for a task type.
// Compiled schemas are cached per task type.
type Validator struct {
	registry *registry.ActivityRegistry

	mu       sync.RWMutex
	compiled map[string]*gojsonschema.Schema
}

func NewValidator(reg *registry.ActivityRegistry) *Validator {
	return &Validator{
		registry: reg,
		compiled: make(map[string]*gojsonschema.Schema),
	}
}

// ValidateJob validates variables for taskType. Task types without a registry entry pass.
func (v *Validator) ValidateJob(taskType string, variables map[string]interface{}) (*ValidationResult, error) {
	schema, err := v.schemaFor(taskType)
	if err != nil {
		return nil, err
	}
	if schema == nil {
		return &ValidationResult{Valid: true}, nil
	}
	return validate(schema, variables)
}

func (v *Validator) schemaFor(taskType string) (*gojsonschema.Schema, error) {
	v.mu.RLock()
	schema, ok := v.compiled[taskType]
	v.mu.RUnlock()
	if ok {
		return schema, nil
	}

	activity, found := v.registry.Lookup(taskType)
	if !found || len(activity.InputSchema) == 0 {
		return nil, nil
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(activity.InputSchema))
	if err != nil {
		return nil, fmt.Errorf("compile schema for %s: %w", taskType, err)
	}

	v.mu.Lock()
	v.compiled[taskType] = schema
	v.mu.Unlock()
	return schema, nil
}

func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}

// Summary joins every error message into one line.
func (vr *ValidationResult) Summary() string {
	return strings.Join(vr.GetErrorMessages(), "; ")
}

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phonePattern = regexp.MustCompile(`^\+[1-9]\d{7,14}$`)
)

func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidatePhone accepts E.164 numbers, the only format SNS delivers SMS to.
func ValidatePhone(phone string) bool {
	return phonePattern.MatchString(phone)
}
