// Package feedback models in-app feedback submissions and delivers them to
// the team's notification channels.
package feedback

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Type discriminates the feedback union.
type Type string

const (
	TypePraise      Type = "praise"
	TypeFeature     Type = "feature-request"
	TypeImprovement Type = "improvement-request"
	TypeBug         Type = "bug-report"
)

var validate = validator.New()

// Feedback is one in-app feedback submission. The required-field set
// depends on Type: bug reports omit the personal-rating fields (they become
// nullable) and carry a stack trace instead; Validate enforces the variant
// rules after JSON decoding.
type Feedback struct {
	Type Type `json:"type"`

	// Technical info, present on every variant.
	OperatingSystem       string `json:"operatingSystem"`
	Device                string `json:"device"`
	AppVersion            string `json:"appVersion"`
	PaymentProviderUserID string `json:"paymentProviderUserId,omitempty"`

	// Personal fields. Required for praise/feature/improvement, nullable
	// for bug reports.
	Rating  *int    `json:"rating,omitempty"`
	Email   *string `json:"email,omitempty"`
	Name    *string `json:"name,omitempty"`
	Message *string `json:"message,omitempty"`

	// Category is required for every variant except praise.
	Category string `json:"category,omitempty"`

	// StackTrace is carried by bug reports only; null is a valid value.
	StackTrace *string `json:"stackTrace,omitempty"`
}

// Validate checks the variant-specific required-field set.
func (f *Feedback) Validate() error {
	if f.OperatingSystem == "" || f.Device == "" || f.AppVersion == "" {
		return fmt.Errorf("operatingSystem, device and appVersion are required")
	}

	switch f.Type {
	case TypePraise:
		return f.validatePersonal(true)
	case TypeFeature, TypeImprovement:
		if f.Category == "" {
			return fmt.Errorf("category is required for %s feedback", f.Type)
		}
		return f.validatePersonal(true)
	case TypeBug:
		if f.Category == "" {
			return fmt.Errorf("category is required for %s feedback", f.Type)
		}
		return f.validatePersonal(false)
	default:
		return fmt.Errorf("unknown feedback type %q", f.Type)
	}
}

// validatePersonal checks the personal fields. When required is false the
// fields may be nil, but present values must still be well-formed.
func (f *Feedback) validatePersonal(required bool) error {
	if required {
		if f.Email == nil || f.Name == nil {
			return fmt.Errorf("email and name are required for %s feedback", f.Type)
		}
	}
	if f.Email != nil {
		if err := validate.Var(*f.Email, "required,email"); err != nil {
			return fmt.Errorf("invalid email address")
		}
	}
	if f.Name != nil {
		if err := validate.Var(*f.Name, "required,min=2"); err != nil {
			return fmt.Errorf("name must be at least 2 characters")
		}
	}
	return nil
}

// Subject returns the notification subject line for the feedback type.
func (f *Feedback) Subject() string {
	switch f.Type {
	case TypePraise:
		return "🙏 New Praise"
	case TypeImprovement:
		return "🔧 New Improvement Request"
	case TypeFeature:
		return "🥠 New Feature Request"
	case TypeBug:
		return "🐞 New Bug Report"
	default:
		return "🤷 New Feedback"
	}
}
