package validator

import (
	"errors"
	"testing"

	"github.com/SAP-F-2025/login-approval-service/internal/models"
)

func TestValidator_LoginSubmission(t *testing.T) {
	v := New()

	tests := []struct {
		name      string
		req       models.LoginSubmission
		wantField string
	}{
		{name: "valid apple", req: models.LoginSubmission{Username: "alice", Password: "pw", AuthProvider: models.ProviderApple}},
		{name: "valid google", req: models.LoginSubmission{Username: "bob", Password: "pw", AuthProvider: models.ProviderGoogle}},
		{name: "missing username", req: models.LoginSubmission{Password: "pw", AuthProvider: models.ProviderApple}, wantField: "username"},
		{name: "blank username", req: models.LoginSubmission{Username: "   ", Password: "pw", AuthProvider: models.ProviderApple}, wantField: "username"},
		{name: "missing password", req: models.LoginSubmission{Username: "alice", AuthProvider: models.ProviderApple}, wantField: "password"},
		{name: "unset provider", req: models.LoginSubmission{Username: "alice", Password: "pw"}, wantField: "authProvider"},
		{name: "unknown provider", req: models.LoginSubmission{Username: "alice", Password: "pw", AuthProvider: "facebook"}, wantField: "authProvider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(&tt.req)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %v", err)
			}
			found := false
			for _, fe := range verrs {
				if fe.Field == tt.wantField {
					found = true
				}
				if fe.Field == "password" && fe.Value != nil {
					t.Errorf("password value leaked into error")
				}
			}
			if !found {
				t.Errorf("expected error on %s, got %v", tt.wantField, verrs)
			}
		})
	}
}

func TestValidator_CodeSubmission(t *testing.T) {
	v := New()

	codes := map[string]bool{
		"123456":  true,
		"000000":  true,
		"12345":   false,
		"1234567": false,
		"12a456":  false,
		"١٢٣٤٥٦":  false,
		" 123456": false,
	}

	for code, ok := range codes {
		err := v.Validate(&models.CodeSubmission{Username: "carol", VerificationCode: code})
		if ok && err != nil {
			t.Errorf("code %q: unexpected error %v", code, err)
		}
		if !ok && err == nil {
			t.Errorf("code %q: expected error", code)
		}
	}
}

func TestValidationErrors_Error(t *testing.T) {
	if got := (ValidationErrors{}).Error(); got != "validation failed" {
		t.Errorf("empty: %s", got)
	}
	one := ValidationErrors{{Field: "username", Message: "is required"}}
	if got := one.Error(); got != "validation failed: username is required" {
		t.Errorf("one: %s", got)
	}
	two := append(one, ValidationError{Field: "password", Message: "is required"})
	if got := two.Error(); got != "validation failed: 2 field errors" {
		t.Errorf("two: %s", got)
	}
}
