// Package validate holds the client-side form checks that run before any
// request is sent.
package validate

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxRoomNameLen is the longest room name accepted, in runes.
const MaxRoomNameLen = 30

// Language is a selectable source language for a room.
type Language struct {
	Tag   string
	Label string
}

// Languages is the fixed set offered when creating a room or signing up.
var Languages = []Language{
	{Tag: "en", Label: "English"},
	{Tag: "ko", Label: "Korean"},
}

// LanguageLabel returns the display label for tag, or tag itself if unknown.
func LanguageLabel(tag string) string {
	for _, l := range Languages {
		if l.Tag == tag {
			return l.Label
		}
	}
	return tag
}

// Field errors. Callers match with errors.Is.
var (
	ErrRoomNameRequired = errors.New("classroom name is required")
	ErrRoomNameTooLong  = fmt.Errorf("classroom name must be at most %d characters", MaxRoomNameLen)
	ErrLanguageRequired = errors.New("please select the original language")
	ErrLanguageUnknown  = errors.New("unsupported language")
	ErrEmailRequired    = errors.New("email is required")
	ErrEmailDomain      = errors.New("only institutional emails are allowed")
	ErrPasswordRequired = errors.New("password is required")
	ErrPasswordPolicy   = errors.New("password must be 6-15 characters long and contain letters and numbers")
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrUsernameRequired = errors.New("full name is required")
	ErrEmailNotVerified = errors.New("please verify your email first")
	ErrCodeRequired     = errors.New("enter the code")
	ErrCodeNotNumeric   = errors.New("the code must be numeric")
)

// RoomName trims name and checks it is non-empty and within the length cap.
func RoomName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrRoomNameRequired
	}
	if utf8.RuneCountInString(name) > MaxRoomNameLen {
		return "", ErrRoomNameTooLong
	}
	return name, nil
}

// LanguageTag checks tag is one of Languages.
func LanguageTag(tag string) error {
	if tag == "" {
		return ErrLanguageRequired
	}
	for _, l := range Languages {
		if l.Tag == tag {
			return nil
		}
	}
	return ErrLanguageUnknown
}

// Room validates a create-room form and returns the trimmed name.
func Room(name, tag string) (string, error) {
	name, err := RoomName(name)
	if err != nil {
		return "", err
	}
	if err := LanguageTag(tag); err != nil {
		return "", err
	}
	return name, nil
}

// Login checks both fields are present.
func Login(email, password string) error {
	if strings.TrimSpace(email) == "" {
		return ErrEmailRequired
	}
	if password == "" {
		return ErrPasswordRequired
	}
	return nil
}

// InstitutionEmail checks email ends with @domain. An empty domain accepts any
// address.
func InstitutionEmail(email, domain string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrEmailRequired
	}
	if domain == "" {
		return nil
	}
	if !strings.HasSuffix(strings.ToLower(email), "@"+strings.ToLower(domain)) {
		return ErrEmailDomain
	}
	return nil
}

// Password enforces 6-15 ASCII letters and digits with at least one of each.
func Password(p string) error {
	if len(p) < 6 || len(p) > 15 {
		return ErrPasswordPolicy
	}
	var letter, digit bool
	for _, r := range p {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			letter = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			return ErrPasswordPolicy
		}
	}
	if !letter || !digit {
		return ErrPasswordPolicy
	}
	return nil
}

// Code checks a verification code is present and numeric.
func Code(code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return ErrCodeRequired
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return ErrCodeNotNumeric
		}
	}
	return nil
}

// Signup is the full signup form.
type Signup struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
	Language        string
	Verified        bool
}

// Check runs the signup checks in the order the form presents them.
func (s Signup) Check(domain string) error {
	if strings.TrimSpace(s.Username) == "" {
		return ErrUsernameRequired
	}
	if err := InstitutionEmail(s.Email, domain); err != nil {
		return err
	}
	if !s.Verified {
		return ErrEmailNotVerified
	}
	if err := Password(s.Password); err != nil {
		return err
	}
	if s.Password != s.ConfirmPassword {
		return ErrPasswordMismatch
	}
	return LanguageTag(s.Language)
}
