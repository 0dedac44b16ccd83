package service

import (
	"net/mail"
	"strings"

	"github.com/and161185/gophpress/internal/errs"
	"github.com/and161185/gophpress/internal/model"
)

// MinPasswordLen is the shortest accepted password.
const MinPasswordLen = 8

func required(v *errs.ValidationError, field, value string) bool {
	if strings.TrimSpace(value) == "" {
		v.Add(field, "is required")
		return false
	}
	return true
}

func checkEmail(v *errs.ValidationError, field, value string) {
	if !required(v, field, value) {
		return
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(value))
	// reject display-name forms like "Jo <jo@example.com>"
	if err != nil || addr.Address != strings.TrimSpace(value) {
		v.Add(field, "is not a valid email")
	}
}

func checkNewPassword(v *errs.ValidationError, field, value string) {
	if value == "" {
		v.Add(field, "is required")
		return
	}
	if len([]rune(value)) < MinPasswordLen {
		v.Add(field, "must be at least 8 characters")
	}
}

func validateRegister(in RegisterInput) error {
	v := &errs.ValidationError{}
	required(v, "first_name", in.FirstName)
	required(v, "last_name", in.LastName)
	checkEmail(v, "email", in.Email)
	checkNewPassword(v, "password", in.Password)
	return v.OrNil()
}

func validateLogin(email, password string) error {
	v := &errs.ValidationError{}
	required(v, "email", email)
	if password == "" {
		v.Add("password", "is required")
	}
	return v.OrNil()
}

func validateSettings(in SettingsInput) error {
	v := &errs.ValidationError{}
	checkEmail(v, "email", in.Email)
	if in.OldPassword == "" {
		v.Add("old_password", "is required")
	}
	checkNewPassword(v, "new_password", in.NewPassword)
	return v.OrNil()
}

func validatePostFields(f model.PostFields) error {
	v := &errs.ValidationError{}
	required(v, "title", f.Title)
	required(v, "text", f.Text)
	if f.Status != "" && f.Status != model.StatusDraft && f.Status != model.StatusPublished {
		v.Add("status", "must be draft or published")
	}
	for _, tag := range f.Tags {
		if strings.TrimSpace(tag) == "" {
			v.Add("tags", "must not contain empty tags")
			break
		}
	}
	return v.OrNil()
}
