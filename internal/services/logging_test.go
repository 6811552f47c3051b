package services

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureServiceLogger() (*ServiceLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	return NewServiceLogger(logger, LogConfig{Service: "reading-service", Component: "attempts"}), &buf
}

func TestServiceLogger_LogOperation(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantLevel  string
		wantStatus string
	}{
		{"success", nil, "INFO", "success"},
		{"validation failure is a warning", NewValidationError("title", "required", nil), "WARN", "validation_error"},
		{"permission failure is a warning", NewPermissionError("user-1", 3, "test", "delete", "not the creator"), "WARN", "unauthorized"},
		{"not found stays informational", ErrTestNotFound, "INFO", "not_found"},
		{"unexpected failure is an error", assert.AnError, "ERROR", "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sl, buf := captureServiceLogger()
			sl.LogOperation(context.Background(), "submit", "user-1", 42, "attempt", time.Second, tt.err)

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, tt.wantLevel, entry["level"])
			assert.Equal(t, tt.wantStatus, entry["status"])
			assert.Equal(t, "attempts", entry["component"])
		})
	}
}

func TestContextualLogger_LogResult(t *testing.T) {
	sl, buf := captureServiceLogger()

	op := sl.WithOperation(context.Background(), "create_test", "teacher-1")
	op.LogResult(7, "test", nil)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "create_test", entry["operation"])
	assert.Equal(t, "teacher-1", entry["user_id"])
	assert.Equal(t, float64(7), entry["resource_id"])
}

func TestFormatError(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		assert.Nil(t, FormatError(nil))
	})

	t.Run("validation errors carry field details", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "title", Message: "required"},
			{Field: "score", Message: "must be positive", Value: -1},
		}
		result := FormatError(errs)
		assert.Equal(t, "validation", result["type"])
		assert.Equal(t, 2, result["count"])
		assert.Len(t, result["errors"], 2)
	})

	t.Run("permission errors carry the denial context", func(t *testing.T) {
		result := FormatError(NewPermissionError("user-1", 3, "test", "export_results", "not the test creator"))
		assert.Equal(t, "permission", result["type"])
		assert.Equal(t, "export_results", result["action"])
	})

	t.Run("sentinels map to their class", func(t *testing.T) {
		assert.Equal(t, "not_found", FormatError(ErrTestNotFound)["type"])
		assert.Equal(t, "conflict", FormatError(ErrAttemptAlreadySubmitted)["type"])
	})
}
