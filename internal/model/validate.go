package model

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string
	Message string
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// Field returns the first message recorded for field, or "".
func (e *ValidationError) Field(field string) string {
	for _, fe := range e.Errors {
		if fe.Field == field {
			return fe.Message
		}
	}
	return ""
}

func (e *ValidationError) add(field, msg string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: msg})
}

// dateLayouts are the ISO 8601 forms accepted for interaction dates, most precise first.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	time.DateOnly,
}

// ParseDate parses an ISO 8601 date or date-time. Values without a zone are read as UTC.
func ParseDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", v)
}

// ValidateDossier checks a Dossier for constraint violations.
// It returns a *ValidationError if any rules fail, or nil if the dossier is valid.
func ValidateDossier(d *Dossier) error {
	var ve ValidationError

	name := strings.TrimSpace(d.Name)
	if name == "" {
		ve.add("nom", "is required")
	} else if len([]rune(name)) > 200 {
		ve.add("nom", "must be 200 characters or fewer")
	}

	if !d.Type.IsValid() {
		ve.add("type", fmt.Sprintf("invalid value %q", d.Type))
	}
	if !d.Status.IsValid() {
		ve.add("statut", fmt.Sprintf("invalid value %q", d.Status))
	}
	if !d.Stage.IsValid() {
		ve.add("etape_kanban", fmt.Sprintf("invalid value %q", d.Stage))
	}
	if d.StartDate.IsZero() {
		ve.add("date_debut", "is required")
	}

	// CloseDate consistency with Status.
	if d.Status == StatusClosed && d.CloseDate == nil {
		ve.add("date_cloture", "is required when status is clos")
	}
	if d.Status != StatusClosed && d.CloseDate != nil {
		ve.add("date_cloture", "must be empty when status is not clos")
	}
	if d.CloseDate != nil && !d.StartDate.IsZero() && d.CloseDate.Before(d.StartDate) {
		ve.add("date_cloture", "must not be before date_debut")
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}

// ValidateInteraction checks an Interaction for constraint violations.
func ValidateInteraction(i *Interaction) error {
	var ve ValidationError

	if strings.TrimSpace(i.DossierID) == "" {
		ve.add("dossier_id", "is required")
	}
	if strings.TrimSpace(i.CompanyID) == "" {
		ve.add("societe_id", "is required")
	}
	if !i.Type.IsValid() {
		ve.add("type", fmt.Sprintf("invalid value %q", i.Type))
	}
	if i.Date.IsZero() {
		ve.add("date", "is required")
	}
	if strings.TrimSpace(i.Notes) == "" {
		ve.add("notes", "is required")
	}
	if strings.TrimSpace(i.Author) == "" {
		ve.add("auteur", "is required")
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}

// ValidateReminder checks a Reminder for constraint violations.
func ValidateReminder(r *Reminder) error {
	var ve ValidationError

	if strings.TrimSpace(r.Title) == "" {
		ve.add("titre", "is required")
	}
	if r.DueAt.IsZero() {
		ve.add("echeance", "is required")
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}
