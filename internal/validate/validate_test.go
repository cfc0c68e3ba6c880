package validate

import (
	"errors"
	"strings"
	"testing"
)

func TestRoomName(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{"trimmed", "  Algebra II ", "Algebra II", nil},
		{"empty", "", "", ErrRoomNameRequired},
		{"blank", "   ", "", ErrRoomNameRequired},
		{"at cap", strings.Repeat("a", 30), strings.Repeat("a", 30), nil},
		{"over cap", strings.Repeat("a", 31), "", ErrRoomNameTooLong},
		{"multibyte at cap", strings.Repeat("가", 30), strings.Repeat("가", 30), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RoomName(tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("name = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLanguageTag(t *testing.T) {
	if err := LanguageTag("en"); err != nil {
		t.Errorf("en: %v", err)
	}
	if err := LanguageTag("ko"); err != nil {
		t.Errorf("ko: %v", err)
	}
	if err := LanguageTag(""); !errors.Is(err, ErrLanguageRequired) {
		t.Errorf("empty: %v", err)
	}
	if err := LanguageTag("fr"); !errors.Is(err, ErrLanguageUnknown) {
		t.Errorf("fr: %v", err)
	}
	if LanguageLabel("ko") != "Korean" {
		t.Errorf("label(ko) = %q", LanguageLabel("ko"))
	}
}

func TestPassword(t *testing.T) {
	good := []string{"abc123", "A1b2C3d4E5f6G7h", "password1"}
	bad := []string{"", "abc12", "abcdefgh", "12345678", "abc 123", "abc123!", "a1234567890123456"}

	for _, p := range good {
		if err := Password(p); err != nil {
			t.Errorf("Password(%q) = %v, want nil", p, err)
		}
	}
	for _, p := range bad {
		if err := Password(p); !errors.Is(err, ErrPasswordPolicy) {
			t.Errorf("Password(%q) = %v, want policy error", p, err)
		}
	}
}

func TestInstitutionEmail(t *testing.T) {
	if err := InstitutionEmail("kim@kaist.ac.kr", "kaist.ac.kr"); err != nil {
		t.Errorf("kaist: %v", err)
	}
	if err := InstitutionEmail("Kim@KAIST.ac.kr", "kaist.ac.kr"); err != nil {
		t.Errorf("case: %v", err)
	}
	if err := InstitutionEmail("kim@gmail.com", "kaist.ac.kr"); !errors.Is(err, ErrEmailDomain) {
		t.Errorf("gmail: %v", err)
	}
	if err := InstitutionEmail("kim@notkaist.ac.kr", "kaist.ac.kr"); !errors.Is(err, ErrEmailDomain) {
		t.Errorf("suffix trick: %v", err)
	}
	if err := InstitutionEmail("", "kaist.ac.kr"); !errors.Is(err, ErrEmailRequired) {
		t.Errorf("empty: %v", err)
	}
}

func TestSignupCheckOrder(t *testing.T) {
	s := Signup{
		Username:        "Kim",
		Email:           "kim@kaist.ac.kr",
		Password:        "abc123",
		ConfirmPassword: "abc123",
		Language:        "ko",
		Verified:        true,
	}
	if err := s.Check("kaist.ac.kr"); err != nil {
		t.Fatalf("valid signup: %v", err)
	}

	unverified := s
	unverified.Verified = false
	if err := unverified.Check("kaist.ac.kr"); !errors.Is(err, ErrEmailNotVerified) {
		t.Errorf("unverified: %v", err)
	}

	mismatch := s
	mismatch.ConfirmPassword = "abc124"
	if err := mismatch.Check("kaist.ac.kr"); !errors.Is(err, ErrPasswordMismatch) {
		t.Errorf("mismatch: %v", err)
	}

	noName := s
	noName.Username = " "
	if err := noName.Check("kaist.ac.kr"); !errors.Is(err, ErrUsernameRequired) {
		t.Errorf("no name: %v", err)
	}
}

func TestCode(t *testing.T) {
	if err := Code("123456"); err != nil {
		t.Errorf("numeric: %v", err)
	}
	if err := Code(""); !errors.Is(err, ErrCodeRequired) {
		t.Errorf("empty: %v", err)
	}
	if err := Code("12a"); !errors.Is(err, ErrCodeNotNumeric) {
		t.Errorf("alpha: %v", err)
	}
}
