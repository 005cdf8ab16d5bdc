package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldProvider is the structured log field key for the AI provider name.
	FieldProvider = "ai_provider"
	// FieldModel is the structured log field key for the AI model identifier.
	FieldModel = "ai_model"
	// FieldCurrentUser identifies the user matches are computed for.
	FieldCurrentUser = "current_user"
	// FieldCandidate identifies the candidate profile being scored.
	FieldCandidate = "candidate"
	// FieldRequestID carries the id assigned to an HTTP request.
	FieldRequestID = "request_id"
	FieldAIState   = "ai_state"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		value := strings.TrimSpace(field.Value)
		if key == "" || value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields attaches fields to the logger, defaulting to a no-op logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// WithCommonFields attaches the AI provider and model to the logger.
func WithCommonFields(logger *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(logger, StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)...)
}

// WithPair attaches the ids of the two profiles being compared.
func WithPair(logger *zap.Logger, currentUser, candidate string) *zap.Logger {
	return WithFields(logger, StringFields(
		StringField{Key: FieldCurrentUser, Value: currentUser},
		StringField{Key: FieldCandidate, Value: candidate},
	)...)
}
