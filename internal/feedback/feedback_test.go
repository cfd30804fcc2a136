package feedback

import (
	"strings"
	"testing"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func validPraise() *Feedback {
	return &Feedback{
		Type:            TypePraise,
		OperatingSystem: "iOS 17.4",
		Device:          "iPhone 15",
		AppVersion:      "2.1.0",
		Rating:          intPtr(5),
		Email:           strPtr("user@example.com"),
		Name:            strPtr("Jamie"),
		Message:         strPtr("Love the app!"),
	}
}

func validBugReport() *Feedback {
	return &Feedback{
		Type:            TypeBug,
		OperatingSystem: "Android 14",
		Device:          "Pixel 8",
		AppVersion:      "2.1.0",
		Category:        "crash",
		StackTrace:      strPtr("at main.go:42"),
	}
}

func TestFeedbackValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Feedback)
		base    func() *Feedback
		wantErr bool
	}{
		{
			name:   "valid praise",
			base:   validPraise,
			mutate: func(f *Feedback) {},
		},
		{
			name: "valid feature request",
			base: validPraise,
			mutate: func(f *Feedback) {
				f.Type = TypeFeature
				f.Category = "maps"
			},
		},
		{
			name: "valid improvement request",
			base: validPraise,
			mutate: func(f *Feedback) {
				f.Type = TypeImprovement
				f.Category = "widgets"
			},
		},
		{
			name:   "valid bug report",
			base:   validBugReport,
			mutate: func(f *Feedback) {},
		},
		{
			name: "bug report without personal fields",
			base: validBugReport,
			mutate: func(f *Feedback) {
				f.Email = nil
				f.Name = nil
				f.Rating = nil
			},
		},
		{
			name:    "missing technical info",
			base:    validPraise,
			mutate:  func(f *Feedback) { f.Device = "" },
			wantErr: true,
		},
		{
			name:    "praise without email",
			base:    validPraise,
			mutate:  func(f *Feedback) { f.Email = nil },
			wantErr: true,
		},
		{
			name:    "praise without name",
			base:    validPraise,
			mutate:  func(f *Feedback) { f.Name = nil },
			wantErr: true,
		},
		{
			name: "feature request without category",
			base: validPraise,
			mutate: func(f *Feedback) {
				f.Type = TypeFeature
				f.Category = ""
			},
			wantErr: true,
		},
		{
			name:    "bug report without category",
			base:    validBugReport,
			mutate:  func(f *Feedback) { f.Category = "" },
			wantErr: true,
		},
		{
			name:    "malformed email",
			base:    validPraise,
			mutate:  func(f *Feedback) { f.Email = strPtr("not-an-email") },
			wantErr: true,
		},
		{
			name:    "bug report with malformed email",
			base:    validBugReport,
			mutate:  func(f *Feedback) { f.Email = strPtr("not-an-email") },
			wantErr: true,
		},
		{
			name:    "name too short",
			base:    validPraise,
			mutate:  func(f *Feedback) { f.Name = strPtr("J") },
			wantErr: true,
		},
		{
			name:    "unknown type",
			base:    validPraise,
			mutate:  func(f *Feedback) { f.Type = "rant" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.base()
			tt.mutate(f)
			err := f.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFeedbackSubject(t *testing.T) {
	tests := []struct {
		typ  Type
		want string
	}{
		{TypePraise, "🙏 New Praise"},
		{TypeImprovement, "🔧 New Improvement Request"},
		{TypeFeature, "🥠 New Feature Request"},
		{TypeBug, "🐞 New Bug Report"},
		{Type("other"), "🤷 New Feedback"},
	}

	for _, tt := range tests {
		f := &Feedback{Type: tt.typ}
		if got := f.Subject(); got != tt.want {
			t.Errorf("Subject(%s) = %s, want %s", tt.typ, got, tt.want)
		}
	}
}

func TestFormatFeedback(t *testing.T) {
	msg := formatFeedback(validPraise())

	for _, want := range []string{
		"*Type*: praise",
		"*Name*: Jamie",
		"*Email*: user@example.com",
		"*Rating*: 5",
		"*OS*: iOS 17.4",
		"*Device*: iPhone 15",
		"*App Version*: 2.1.0",
		"*Message*: Love the app!",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("formatFeedback() missing %q:\n%s", want, msg)
		}
	}
	if strings.Contains(msg, "Stack Trace") {
		t.Error("praise message includes a stack trace section")
	}
}

func TestFormatFeedback_BugReport(t *testing.T) {
	msg := formatFeedback(validBugReport())

	for _, want := range []string{
		"*Name*: Anonymous",
		"*Email*: Anonymous",
		"*Rating*: (Not provided)",
		"*Category*: crash",
		"*Stack Trace*: \n```at main.go:42```",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("formatFeedback() missing %q:\n%s", want, msg)
		}
	}
}

func TestTemplateParams(t *testing.T) {
	params := templateParams(validBugReport())

	if params["type"] != "bug-report" {
		t.Errorf("type = %v, want bug-report", params["type"])
	}
	if params["stackTrace"] != "at main.go:42" {
		t.Errorf("stackTrace = %v", params["stackTrace"])
	}
	for _, absent := range []string{"name", "message", "rating"} {
		if _, ok := params[absent]; ok {
			t.Errorf("params contains %q for absent optional field", absent)
		}
	}
}
