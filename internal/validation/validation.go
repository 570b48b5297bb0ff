// Package validation checks set and tag form values before they reach a repository.
// Failures are reported per field as human-readable messages.
package validation

import (
	"fmt"
	"strings"

	"github.com/bcnelson/fulcrum-data-manager/internal/domain"
)

// Aspect value modes accepted by ParseMode.
const (
	ModeRange = "range"
	ModeExact = "exact"
)

// Schema holds the aspect value-count bounds. MinValues == MaxValues means an exact count.
type Schema struct {
	MinValues int
	MaxValues int
}

var (
	// RangeSchema accepts between 2 and 10 values per aspect.
	RangeSchema = Schema{MinValues: 2, MaxValues: 10}
	// ExactSchema requires exactly 5 values per aspect.
	ExactSchema = Schema{MinValues: 5, MaxValues: 5}
)

// ParseMode returns the schema for an aspect values mode.
func ParseMode(mode string) (Schema, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ModeRange:
		return RangeSchema, nil
	case ModeExact:
		return ExactSchema, nil
	default:
		return Schema{}, fmt.Errorf("unknown aspect values mode %q (want %q or %q)", mode, ModeRange, ModeExact)
	}
}

// Exact reports whether the schema requires a fixed number of values.
func (s Schema) Exact() bool {
	return s.MinValues == s.MaxValues
}

// ValidateSet validates set form values.
func (s Schema) ValidateSet(form domain.SetForm) ValidationErrors {
	var errs ValidationErrors

	if isBlank(form.Name) {
		errs.Add("name", form.Name, "Set name is required.")
	}

	for i, aspect := range form.Aspects {
		prefix := fmt.Sprintf("aspects[%d]", i)
		if isBlank(aspect.Name) {
			errs.Add(prefix+".name", aspect.Name, "Aspect name is required.")
		}
		if msg := s.checkValueCount(len(aspect.Values)); msg != "" {
			errs.Add(prefix+".values", fmt.Sprint(len(aspect.Values)), msg)
		}
	}

	return errs
}

func (s Schema) checkValueCount(n int) string {
	if s.Exact() {
		if n != s.MinValues {
			return fmt.Sprintf("There must be exactly %d values.", s.MinValues)
		}
		return ""
	}
	if n < s.MinValues {
		return fmt.Sprintf("There must be at least %d values.", s.MinValues)
	}
	if n > s.MaxValues {
		return fmt.Sprintf("There cannot be more than %d values.", s.MaxValues)
	}
	return ""
}

// ValidateTag validates tag form values. The set list is optional, but every
// entry present must reference a set.
func ValidateTag(form domain.TagForm) ValidationErrors {
	var errs ValidationErrors

	if isBlank(form.Name) {
		errs.Add("name", form.Name, "Tag name is required.")
	}

	for i, id := range form.SetIDs {
		if isBlank(id) {
			errs.Add(fmt.Sprintf("setIds[%d]", i), id, "Set is required.")
		}
	}

	return errs
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
