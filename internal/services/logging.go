package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ServiceLogger provides structured logging for service layer operations
type ServiceLogger struct {
	logger *slog.Logger
	config LogConfig
}

type LogConfig struct {
	Service     string
	Component   string
	EnableDebug bool
}

func NewServiceLogger(logger *slog.Logger, config LogConfig) *ServiceLogger {
	return &ServiceLogger{
		logger: logger.With("service", config.Service, "component", config.Component),
		config: config,
	}
}

// LogOperation records one finished service operation. The log level
// follows the error class: validation and permission failures are warnings,
// not-found is informational, everything else is an error.
func (l *ServiceLogger) LogOperation(ctx context.Context, operation string, userID string, resourceID uint, resourceType string, duration time.Duration, err error) {
	level := slog.LevelInfo
	status := "success"

	if err != nil {
		level = slog.LevelError
		status = "error"

		if IsValidation(err) {
			level = slog.LevelWarn
			status = "validation_error"
		} else if IsUnauthorized(err) {
			level = slog.LevelWarn
			status = "unauthorized"
		} else if IsNotFound(err) {
			level = slog.LevelInfo
			status = "not_found"
		}
	}

	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.String("user_id", userID),
		slog.Uint64("resource_id", uint64(resourceID)),
		slog.String("resource_type", resourceType),
		slog.String("status", status),
		slog.Duration("duration", duration),
	}

	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}

	if requestID, ok := ctx.Value("request_id").(string); ok {
		attrs = append(attrs, slog.String("request_id", requestID))
	}

	l.logger.LogAttrs(ctx, level, fmt.Sprintf("%s operation %s", operation, status), attrs...)
}

func (l *ServiceLogger) LogValidationError(ctx context.Context, operation string, userID string, validationErrors ValidationErrors) {
	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.String("user_id", userID),
		slog.Int("error_count", len(validationErrors)),
	}

	// First 5 errors only, to keep log lines bounded
	for i, err := range validationErrors {
		if i >= 5 {
			break
		}
		attrs = append(attrs, slog.Group(fmt.Sprintf("error_%d", i+1),
			slog.String("field", err.Field),
			slog.String("message", err.Message),
			slog.Any("value", err.Value),
		))
	}

	l.logger.LogAttrs(ctx, slog.LevelWarn, "Validation failed", attrs...)
}

func (l *ServiceLogger) LogPermissionDenied(ctx context.Context, operation string, permError *PermissionError) {
	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.String("user_id", permError.UserID),
		slog.Uint64("resource_id", uint64(permError.ResourceID)),
		slog.String("resource_type", permError.Resource),
		slog.String("action", permError.Action),
		slog.String("reason", permError.Reason),
	}

	l.logger.LogAttrs(ctx, slog.LevelWarn, "Permission denied", attrs...)
}

// ===== MIDDLEWARE AND HELPERS =====

// ContextualLogger wraps one operation with timing and result logging
type ContextualLogger struct {
	logger    *ServiceLogger
	operation string
	userID    string
	startTime time.Time
	ctx       context.Context
}

func (l *ServiceLogger) WithOperation(ctx context.Context, operation string, userID string) *ContextualLogger {
	return &ContextualLogger{
		logger:    l,
		operation: operation,
		userID:    userID,
		startTime: time.Now(),
		ctx:       ctx,
	}
}

func (cl *ContextualLogger) LogResult(resourceID uint, resourceType string, err error) {
	duration := time.Since(cl.startTime)
	cl.logger.LogOperation(cl.ctx, cl.operation, cl.userID, resourceID, resourceType, duration, err)

	if err != nil {
		if validationErrors, ok := err.(ValidationErrors); ok {
			cl.logger.LogValidationError(cl.ctx, cl.operation, cl.userID, validationErrors)
		} else if permErr, ok := err.(*PermissionError); ok {
			cl.logger.LogPermissionDenied(cl.ctx, cl.operation, permErr)
		}
	}
}

// ===== ERROR FORMATTING HELPERS =====

// FormatError renders an error as a response-ready map with a stable type
// discriminator.
func FormatError(err error) map[string]interface{} {
	if err == nil {
		return nil
	}

	result := map[string]interface{}{
		"message": err.Error(),
		"type":    "unknown",
	}

	switch e := err.(type) {
	case ValidationErrors:
		result["type"] = "validation"
		result["count"] = len(e)

		fields := make([]map[string]interface{}, len(e))
		for i, validationErr := range e {
			fields[i] = map[string]interface{}{
				"field":   validationErr.Field,
				"message": validationErr.Message,
				"value":   validationErr.Value,
			}
		}
		result["errors"] = fields

	case *PermissionError:
		result["type"] = "permission"
		result["user_id"] = e.UserID
		result["resource_id"] = e.ResourceID
		result["resource"] = e.Resource
		result["action"] = e.Action
		result["reason"] = e.Reason

	default:
		if IsNotFound(err) {
			result["type"] = "not_found"
		} else if IsUnauthorized(err) {
			result["type"] = "unauthorized"
		} else if IsConflict(err) {
			result["type"] = "conflict"
		}
	}

	return result
}
