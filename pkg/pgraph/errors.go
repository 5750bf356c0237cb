package pgraph

import (
	"errors"
	"strings"

	"github.com/dan-solli/lwwgraph/pkg/ambient"
)

// Error type constants for metrics/trace classification.
const (
	ErrTypeStorage    = "storage"
	ErrTypeReentrant  = "reentrant"
	ErrTypeValidation = "validation"
	ErrTypeUnknown    = "unknown"
)

// ClassifyError inspects an error and returns its type classification,
// for grouping errors by category in metrics and traces.
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, ambient.ErrReentrant) {
		return ErrTypeReentrant
	}

	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "sql"), strings.Contains(lower, "database"), strings.Contains(lower, "constraint"):
		return ErrTypeStorage
	case strings.Contains(lower, "schema:"), strings.Contains(lower, "invalid"), strings.Contains(lower, "required"):
		return ErrTypeValidation
	default:
		return ErrTypeUnknown
	}
}
