// Package auth implements the local account modal: phone verification,
// password setup, login, guest access and logout.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/jonathan/spanisami/internal/backend"
	"github.com/jonathan/spanisami/internal/config"
	"github.com/jonathan/spanisami/internal/session"
	"github.com/jonathan/spanisami/internal/types"
)

// Step is the visible step of the auth modal.
type Step string

const (
	StepSignup        Step = "signup"
	StepVerify        Step = "verify"
	StepPassword      Step = "password"
	StepLogin         Step = "login"
	StepAuthenticated Step = "authenticated"
)

// GuestName is the display name used when no name is known.
const GuestName = "Guest user"

// Messages shown by the modal.
const (
	MsgCodeRequestFailed = "Could not request verification code."
	MsgCodeSendFailed    = "Could not send code. Please try again."
	MsgCodeIncorrect     = "That code is not correct. Please try again."
	MsgCodeCheckFailed   = "Could not check the code right now. Please try again."
	MsgPasswordInvalid   = "Password must be at least 6 characters and both entries must match."
	MsgLoginFailed       = "Email or password is incorrect."
	MaskedCode           = "••••••"
)

var (
	ErrBusy               = errors.New("auth request already in progress")
	ErrWrongStep          = errors.New("action not available on this step")
	ErrInvalidPassword    = errors.New("password too short or does not match")
	ErrInvalidCredentials = errors.New("email or password is incorrect")
	ErrNoPendingSignup    = errors.New("no signup in progress")
)

// Backend is the subset of the backend client used for phone verification.
type Backend interface {
	RequestVerificationCode(ctx context.Context, phone string) (string, error)
	VerifyCode(ctx context.Context, phone, code string) (string, error)
}

// ProfileSink receives a profile id discovered during verification.
type ProfileSink interface {
	AdoptProfileID(id string)
}

// Alerter shows a blocking message to the user.
type Alerter interface {
	Alert(msg string)
}

// ReloadFunc rebuilds the session's controllers after logout.
type ReloadFunc func(ctx context.Context) error

// Flow is the auth modal controller for one UI session.
type Flow struct {
	store     session.Store
	backend   Backend
	passwords *config.PasswordConfig
	alerts    Alerter
	profiles  ProfileSink
	reload    ReloadFunc

	mu            sync.Mutex
	step          Step
	pending       types.PendingSignup
	loginEmail    string
	displayName   string
	verifyError   string
	passwordError string
	loginError    string
	signingUp     bool
	verifying     bool
}

// New creates a flow on the signup step. Call Load to restore stored state.
func New(store session.Store, be Backend, passwords *config.PasswordConfig, alerts Alerter, profiles ProfileSink, reload ReloadFunc) *Flow {
	return &Flow{
		store:     store,
		backend:   be,
		passwords: passwords,
		alerts:    alerts,
		profiles:  profiles,
		reload:    reload,
		step:      StepSignup,
	}
}

// Step returns the current step.
func (f *Flow) Step() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

// Load picks the starting step from the session store.
func (f *Flow) Load(ctx context.Context) (Step, error) {
	loggedIn, err := session.GetString(ctx, f.store, session.KeyLoggedIn)
	if err != nil {
		return "", fmt.Errorf("load auth state: %w", err)
	}
	name, err := session.GetString(ctx, f.store, session.KeyName)
	if err != nil {
		return "", fmt.Errorf("load auth state: %w", err)
	}
	email, err := session.GetString(ctx, f.store, session.KeyEmail)
	if err != nil {
		return "", fmt.Errorf("load auth state: %w", err)
	}
	hash, err := session.GetString(ctx, f.store, session.KeyPassword)
	if err != nil {
		return "", fmt.Errorf("load auth state: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case loggedIn == "true" && name != "":
		f.step = StepAuthenticated
		f.displayName = name
	case email != "" && hash != "":
		f.step = StepLogin
		f.loginEmail = email
	default:
		f.step = StepSignup
	}
	return f.step, nil
}

func (f *Flow) requireStep(steps ...Step) error {
	for _, s := range steps {
		if f.step == s {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrWrongStep, f.step)
}

// Signup requests a verification code for the given phone and moves to verify.
func (f *Flow) Signup(ctx context.Context, req types.SignupRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	if err := req.Validate(); err != nil {
		return err
	}

	f.mu.Lock()
	if err := f.requireStep(StepSignup); err != nil {
		f.mu.Unlock()
		return err
	}
	if f.signingUp {
		f.mu.Unlock()
		return ErrBusy
	}
	f.signingUp = true
	f.pending = types.PendingSignup{Name: req.Name, Email: req.Email, Phone: req.Phone}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.signingUp = false
		f.mu.Unlock()
	}()

	code, err := f.backend.RequestVerificationCode(ctx, req.Phone)
	if err != nil {
		log.Printf("[auth] request_code failed: %v", err)
		msg := MsgCodeSendFailed
		var be *backend.Error
		if errors.As(err, &be) && !be.Transport {
			msg = backend.UserMessage(err, MsgCodeRequestFailed)
		}
		f.alerts.Alert(msg)
		return fmt.Errorf("request verification code: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending.Code = code
	f.verifyError = ""
	f.step = StepVerify
	return nil
}

// Verify checks the typed code with the backend.
func (f *Flow) Verify(ctx context.Context, req types.VerifyRequest) error {
	req.Code = strings.TrimSpace(req.Code)
	if err := req.Validate(); err != nil {
		return err
	}

	f.mu.Lock()
	if err := f.requireStep(StepVerify); err != nil {
		f.mu.Unlock()
		return err
	}
	phone := f.pending.Phone
	if phone == "" {
		f.mu.Unlock()
		return ErrNoPendingSignup
	}
	if f.verifying {
		f.mu.Unlock()
		return ErrBusy
	}
	f.verifying = true
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.verifying = false
		f.mu.Unlock()
	}()

	profileID, err := f.backend.VerifyCode(ctx, phone, req.Code)
	if err != nil {
		log.Printf("[auth] verify_code failed: %v", err)
		f.mu.Lock()
		if errors.Is(err, backend.ErrCodeMismatch) {
			f.verifyError = MsgCodeIncorrect
		} else {
			f.verifyError = MsgCodeCheckFailed
		}
		f.mu.Unlock()
		return err
	}

	if profileID != "" {
		if err := f.store.Set(ctx, session.KeyProfileID, profileID); err != nil {
			return fmt.Errorf("cache profile id: %w", err)
		}
		if err := f.store.Set(ctx, session.KeyPhone, phone); err != nil {
			return fmt.Errorf("cache phone: %w", err)
		}
		f.profiles.AdoptProfileID(profileID)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyError = ""
	f.passwordError = ""
	f.step = StepPassword
	return nil
}

// Back returns from verify to signup, keeping the typed name and email.
func (f *Flow) Back() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.requireStep(StepVerify); err != nil {
		return err
	}
	f.step = StepSignup
	return nil
}

// SetPassword finishes signup by storing the account locally.
func (f *Flow) SetPassword(ctx context.Context, req types.PasswordRequest) error {
	pass := strings.TrimSpace(req.Password)
	confirm := strings.TrimSpace(req.Confirm)

	f.mu.Lock()
	if err := f.requireStep(StepPassword); err != nil {
		f.mu.Unlock()
		return err
	}
	if len(pass) < config.MinPasswordLength || pass != confirm {
		f.passwordError = MsgPasswordInvalid
		f.mu.Unlock()
		return ErrInvalidPassword
	}
	pending := f.pending
	f.mu.Unlock()

	hash, err := f.passwords.HashPassword(pass)
	if err != nil {
		return err
	}

	name := pending.Name
	if name == "" {
		name = GuestName
	}
	values := []struct{ key, value string }{
		{session.KeyName, name},
		{session.KeyEmail, pending.Email},
		{session.KeyPhone, pending.Phone},
		{session.KeyPassword, hash},
		{session.KeyLoggedIn, "true"},
	}
	for _, v := range values {
		if err := f.store.Set(ctx, v.key, v.value); err != nil {
			return fmt.Errorf("save account: %w", err)
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.passwordError = ""
	f.displayName = name
	f.pending = types.PendingSignup{}
	f.step = StepAuthenticated
	log.Printf("[auth] account created for %s", pending.Email)
	return nil
}

// GotoLogin switches from signup to login, carrying over a typed email.
func (f *Flow) GotoLogin(req types.GotoLoginRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.requireStep(StepSignup); err != nil {
		return err
	}
	if email := strings.TrimSpace(req.Email); email != "" {
		f.loginEmail = email
	}
	f.loginError = ""
	f.step = StepLogin
	return nil
}

// Login checks the credentials against the locally stored account.
func (f *Flow) Login(ctx context.Context, req types.LoginRequest) error {
	email := strings.TrimSpace(req.Email)
	pass := strings.TrimSpace(req.Password)

	f.mu.Lock()
	if err := f.requireStep(StepLogin); err != nil {
		f.mu.Unlock()
		return err
	}
	f.loginEmail = email
	f.mu.Unlock()

	savedEmail, err := session.GetString(ctx, f.store, session.KeyEmail)
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}
	savedHash, err := session.GetString(ctx, f.store, session.KeyPassword)
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}
	savedName, err := session.GetString(ctx, f.store, session.KeyName)
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}

	if email == "" || email != savedEmail || !f.passwords.VerifyPassword(pass, savedHash) {
		f.mu.Lock()
		f.loginError = MsgLoginFailed
		f.mu.Unlock()
		return ErrInvalidCredentials
	}

	if err := f.store.Set(ctx, session.KeyLoggedIn, "true"); err != nil {
		return fmt.Errorf("save login: %w", err)
	}
	if savedName == "" {
		savedName = GuestName
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginError = ""
	f.displayName = savedName
	f.step = StepAuthenticated
	return nil
}

// Guest skips account creation. Any stored password and email are removed.
func (f *Flow) Guest(ctx context.Context) error {
	f.mu.Lock()
	if err := f.requireStep(StepSignup, StepLogin); err != nil {
		f.mu.Unlock()
		return err
	}
	f.mu.Unlock()

	if err := f.store.Set(ctx, session.KeyLoggedIn, "true"); err != nil {
		return fmt.Errorf("save guest: %w", err)
	}
	if err := f.store.Set(ctx, session.KeyName, GuestName); err != nil {
		return fmt.Errorf("save guest: %w", err)
	}
	if err := session.RemoveAll(ctx, f.store, session.KeyPassword, session.KeyEmail); err != nil {
		return fmt.Errorf("save guest: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.displayName = GuestName
	f.step = StepAuthenticated
	return nil
}

// Logout clears the stored identity and reloads the session.
func (f *Flow) Logout(ctx context.Context) error {
	err := session.RemoveAll(ctx, f.store,
		session.KeyLoggedIn, session.KeyName, session.KeyEmail,
		session.KeyPassword, session.KeyPhone, session.KeyProfileID)
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}

	f.mu.Lock()
	f.step = StepSignup
	f.displayName = ""
	f.pending = types.PendingSignup{}
	f.loginEmail = ""
	f.verifyError, f.passwordError, f.loginError = "", "", ""
	f.mu.Unlock()

	if f.reload != nil {
		return f.reload(ctx)
	}
	return nil
}

// Initials returns the avatar initials for a display name.
func Initials(name string) string {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "SS"
	}
	first := []rune(parts[0])
	if len(parts) == 1 {
		return strings.ToUpper(string(first[0]))
	}
	last := []rune(parts[len(parts)-1])
	return strings.ToUpper(string(first[0]) + string(last[0]))
}

// View is the renderable state of the auth modal and profile menu.
type View struct {
	Step          Step   `json:"step"`
	ModalOpen     bool   `json:"modal_open"`
	DisplayName   string `json:"display_name"`
	Initials      string `json:"initials"`
	SignupName    string `json:"signup_name,omitempty"`
	SignupEmail   string `json:"signup_email,omitempty"`
	VerifyPhone   string `json:"verify_phone,omitempty"`
	DemoCode      string `json:"demo_code,omitempty"`
	VerifyError   string `json:"verify_error,omitempty"`
	PasswordError string `json:"password_error,omitempty"`
	LoginEmail    string `json:"login_email,omitempty"`
	LoginError    string `json:"login_error,omitempty"`
	SigningUp     bool   `json:"signing_up"`
	Verifying     bool   `json:"verifying"`
}

// View returns a snapshot of the auth state.
func (f *Flow) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()

	name := f.displayName
	if name == "" {
		name = GuestName
	}
	v := View{
		Step:          f.step,
		ModalOpen:     f.step != StepAuthenticated,
		DisplayName:   name,
		Initials:      Initials(name),
		SignupName:    f.pending.Name,
		SignupEmail:   f.pending.Email,
		VerifyError:   f.verifyError,
		PasswordError: f.passwordError,
		LoginEmail:    f.loginEmail,
		LoginError:    f.loginError,
		SigningUp:     f.signingUp,
		Verifying:     f.verifying,
	}
	if f.step == StepVerify {
		v.VerifyPhone = f.pending.Phone
		v.DemoCode = f.pending.Code
		if v.DemoCode == "" {
			v.DemoCode = MaskedCode
		}
	}
	return v
}
