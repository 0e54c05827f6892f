// Package validation checks timer forms before they reach the store.
package validation

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"timerdeck/internal/models"
	"timerdeck/pkg/logger"
)

// User-facing messages.
const (
	MsgTitleRequired = "Title is required"
	MsgTitleTooLong  = "Title must be less than 50 characters"
	MsgNegative      = "Time values cannot be negative"
	MsgOutOfRange    = "Minutes and seconds must be between 0 and 59"
	MsgZeroDuration  = "Please set a time greater than 0"
	MsgTooLong       = "Timer cannot exceed 24 hours"
)

// TimerForm is the raw add/edit input.
type TimerForm struct {
	Title       string `json:"title" validate:"notblank,max=50"`
	Description string `json:"description"`
	Hours       int    `json:"hours" validate:"gte=0,lte=24"`
	Minutes     int    `json:"minutes" validate:"gte=0,lte=59"`
	Seconds     int    `json:"seconds" validate:"gte=0,lte=59"`
}

// TotalSeconds is the duration the form describes.
func (f TimerForm) TotalSeconds() int {
	return f.Hours*3600 + f.Minutes*60 + f.Seconds
}

// ValidationError is a rejected form. Message is safe to show to users.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsValidationError reports whether err is (or wraps) a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Reporter receives user-facing failure messages (the notification surface).
type Reporter interface {
	ReportError(ctx context.Context, message string)
}

// Validator checks forms and reports failures.
type Validator struct {
	v        *validator.Validate
	reporter Reporter
}

// New returns a Validator. reporter may be nil.
func New(reporter Reporter) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return &Validator{v: v, reporter: reporter}
}

// Validate returns the total duration in seconds or a *ValidationError.
func (val *Validator) Validate(form TimerForm) (int, error) {
	if err := val.v.Struct(form); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return 0, err
		}
		return 0, firstByPriority(fieldErrs)
	}
	total := form.TotalSeconds()
	if total < models.MinDuration {
		return 0, &ValidationError{Field: "duration", Message: MsgZeroDuration}
	}
	if total > models.MaxDuration {
		return 0, &ValidationError{Field: "duration", Message: MsgTooLong}
	}
	return total, nil
}

// Check validates and, on failure, reports the message and logs it.
func (val *Validator) Check(ctx context.Context, form TimerForm) (int, error) {
	total, err := val.Validate(form)
	if err != nil {
		logger.Debug(ctx, "Timer form rejected", "error", err)
		if val.reporter != nil {
			val.reporter.ReportError(ctx, err.Error())
		}
	}
	return total, err
}

// firstByPriority picks the message checked first by the form: title
// presence, title length, negatives, then minute/second range.
func firstByPriority(errs validator.ValidationErrors) *ValidationError {
	var best *ValidationError
	bestRank := 99
	for _, fe := range errs {
		rank, msg := classify(fe)
		if rank < bestRank {
			bestRank = rank
			best = &ValidationError{Field: strings.ToLower(fe.Field()), Message: msg}
		}
	}
	return best
}

func classify(fe validator.FieldError) (int, string) {
	switch {
	case fe.Field() == "Title" && fe.Tag() == "notblank":
		return 0, MsgTitleRequired
	case fe.Field() == "Title":
		return 1, MsgTitleTooLong
	case fe.Tag() == "gte":
		return 2, MsgNegative
	case fe.Field() == "Hours":
		return 4, MsgTooLong
	default:
		return 3, MsgOutOfRange
	}
}

// SplitDuration breaks seconds into form fields.
func SplitDuration(seconds int) (hours, minutes, secs int) {
	return seconds / 3600, (seconds % 3600) / 60, seconds % 60
}

// FormFromTimer returns the form that would reproduce t.
func FormFromTimer(t models.Timer) TimerForm {
	h, m, s := SplitDuration(t.Duration)
	return TimerForm{Title: t.Title, Description: t.Description, Hours: h, Minutes: m, Seconds: s}
}

// FormPatch is a partial form: nil fields keep the current value.
type FormPatch struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Hours       *int    `json:"hours"`
	Minutes     *int    `json:"minutes"`
	Seconds     *int    `json:"seconds"`
}

// Apply returns form with the present fields of p copied over it.
func (p FormPatch) Apply(form TimerForm) TimerForm {
	if p.Title != nil {
		form.Title = *p.Title
	}
	if p.Description != nil {
		form.Description = *p.Description
	}
	if p.Hours != nil {
		form.Hours = *p.Hours
	}
	if p.Minutes != nil {
		form.Minutes = *p.Minutes
	}
	if p.Seconds != nil {
		form.Seconds = *p.Seconds
	}
	return form
}
