package validation

import (
	"strings"
	"testing"

	"github.com/kbukum/featflow/errors"
)

type sampleConfig struct {
	Provider string `json:"provider" validate:"required,oneof=local s3"`
	Steps    int    `json:"steps" validate:"min=1"`
}

func TestValidate_Passes(t *testing.T) {
	if err := Validate(sampleConfig{Provider: "local", Steps: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_CollectsFieldErrors(t *testing.T) {
	err := Validate(sampleConfig{Provider: "", Steps: 0})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT, got %v", err)
	}
	if !strings.Contains(err.Error(), "provider") {
		t.Fatalf("expected provider field in message: %v", err)
	}
}

func TestValidate_OneOf(t *testing.T) {
	err := Validate(sampleConfig{Provider: "gcs", Steps: 1})
	if err == nil {
		t.Fatal("expected error for unsupported provider")
	}
	if !strings.Contains(err.Error(), "must be one of") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestToSnakeCase(t *testing.T) {
	if got := toSnakeCase("BasePath"); got != "base_path" {
		t.Fatalf("expected base_path, got %s", got)
	}
}
