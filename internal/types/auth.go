// Package types provides type definitions for structured data shared across the SpaniSami UI layer.
package types

import (
	"github.com/go-playground/validator/v10"
)

// SignupRequest is the first auth step: who is signing up and where to send the code.
type SignupRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required"`
	Phone string `json:"phone" validate:"required"`
}

// VerifyRequest carries the code typed on the verify step.
type VerifyRequest struct {
	Code string `json:"code" validate:"required"`
}

// PasswordRequest sets the local password after phone verification.
type PasswordRequest struct {
	Password string `json:"password"`
	Confirm  string `json:"confirm"`
}

// LoginRequest represents the login request.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// GotoLoginRequest carries any email already typed on the signup step.
type GotoLoginRequest struct {
	Email string `json:"email,omitempty"`
}

// AuthRecord is what a completed signup persists to the session store.
// PasswordHash is a bcrypt hash, never the plaintext.
type AuthRecord struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	PasswordHash string `json:"-"`
	LoggedIn     bool   `json:"logged_in"`
}

// PendingSignup is held between signup submission and password-set completion.
type PendingSignup struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Code  string `json:"-"`
}

// Validate validates the SignupRequest using the validator.
func (r *SignupRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the VerifyRequest using the validator.
func (r *VerifyRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the LoginRequest using the validator.
func (r *LoginRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
