package service

import (
	"sync"

	"github.com/go-playground/validator/v10"
)

// CredentialField holds the optional encryption password typed for a submission.
// The report list manager resets it after every submission attempt.
type CredentialField struct {
	mu    sync.Mutex
	value string
}

// NewCredentialField wraps value.
func NewCredentialField(value string) *CredentialField {
	return &CredentialField{value: value}
}

// Value returns the current password.
func (f *CredentialField) Value() string {
	if f == nil {
		return ""
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

// Set replaces the password.
func (f *CredentialField) Set(value string) {
	if f == nil {
		return
	}
	f.mu.Lock()
	f.value = value
	f.mu.Unlock()
}

// Reset clears the password.
func (f *CredentialField) Reset() {
	f.Set("")
}

// IsEmpty reports whether no password is held.
func (f *CredentialField) IsEmpty() bool {
	return f.Value() == ""
}

type credentialInput struct {
	Password string `validate:"required,min=6,alphanum"`
}

func validateCredential(v *validator.Validate, value string) error {
	return v.Struct(credentialInput{Password: value})
}
