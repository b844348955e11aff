package handler

import (
	"strings"

	"github.com/asaskevich/govalidator"

	dErrors "concierge/pkg/domain-errors"
)

// ExternalLoginRequest is the HTTP request body for POST /auth/external.
type ExternalLoginRequest struct {
	Credential string `json:"credential"`
}

func (r *ExternalLoginRequest) Normalize() {
	r.Credential = strings.TrimSpace(r.Credential)
}

func (r *ExternalLoginRequest) Validate() error {
	if r.Credential == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "credential is required")
	}
	return nil
}

// LocalLoginRequest is the HTTP request body for POST /auth/login.
type LocalLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LocalLoginRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

func (r *LocalLoginRequest) Validate() error {
	if r.Email == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "email is required")
	}
	if !govalidator.IsEmail(r.Email) {
		return dErrors.New(dErrors.CodeInvalidInput, "email is not valid")
	}
	if r.Password == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "password is required")
	}
	return nil
}

// UpdateProfileRequest is the HTTP request body for PATCH /me. Absent fields
// are left untouched.
type UpdateProfileRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

func (r *UpdateProfileRequest) Normalize() {
	if r.Name != nil {
		trimmed := strings.TrimSpace(*r.Name)
		r.Name = &trimmed
	}
	if r.Email != nil {
		normalized := strings.ToLower(strings.TrimSpace(*r.Email))
		r.Email = &normalized
	}
}

func (r *UpdateProfileRequest) Validate() error {
	if r.Name == nil && r.Email == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "nothing to update")
	}
	if r.Name != nil && *r.Name == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "name must not be empty")
	}
	if r.Email != nil && !govalidator.IsEmail(*r.Email) {
		return dErrors.New(dErrors.CodeInvalidInput, "email is not valid")
	}
	return nil
}
