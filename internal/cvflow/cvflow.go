// Package cvflow drives the profile and CV builder: free text to structured
// profile, profile to CV text, CV text to PDF.
package cvflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/jonathan/spanisami/internal/backend"
	"github.com/jonathan/spanisami/internal/ingest"
	"github.com/jonathan/spanisami/internal/rendering"
	"github.com/jonathan/spanisami/internal/schemas"
	"github.com/jonathan/spanisami/internal/session"
)

// User-visible messages.
const (
	MsgEmptyInput      = "Please tell SpaniSami a bit about yourself first."
	MsgThinking        = "SpaniSami is thinking..."
	MsgProfileFailed   = "Eish, something went wrong talking to the backend."
	MsgNoProfile       = "First create a profile."
	MsgBuildingCV      = "SpaniSami is building your CV..."
	MsgCVFailed        = "Error generating CV. Please check the backend logs."
	MsgNoCVText        = "No CV text returned from backend."
	MsgGenerateFirst   = "Please generate a CV first."
	MsgRendererMissing = "PDF library not loaded."
	MsgDocumentFailed  = "Could not read that document. Try a PDF, Word (.docx) or text file."

	LabelCreate     = "Create Profile"
	LabelCreating   = "Creating profile..."
	LabelGenerate   = "Generate CV"
	LabelGenerating = "Generating CV..."
)

// DefaultPreferredLanguage is sent with every profile request unless overridden.
const DefaultPreferredLanguage = "en"

var (
	ErrBusy                = errors.New("operation already in progress")
	ErrEmptyInput          = errors.New("profile text is empty")
	ErrNoProfile           = errors.New("no profile to generate a CV from")
	ErrNoCV                = errors.New("no CV text to export")
	ErrRendererUnavailable = errors.New("pdf renderer unavailable")
)

// Backend is the subset of the backend client used by the flow.
type Backend interface {
	CreateProfile(ctx context.Context, rawText, preferredLanguage, profileID, phone string) (*backend.Profile, error)
	GenerateCV(ctx context.Context, profileID string, profile any, targetRole string) (string, error)
}

// Renderer turns CV text into a PDF.
type Renderer interface {
	RenderCV(ctx context.Context, text string) ([]byte, error)
}

// Archiver stores exported PDFs.
type Archiver interface {
	StoreCV(ctx context.Context, profileID, filename string, pdf []byte) (string, error)
}

// Alerter shows a blocking message to the user.
type Alerter interface {
	Alert(msg string)
}

// Options configures optional collaborators.
type Options struct {
	PreferredLanguage string
	Renderer          Renderer // nil means PDF export is unavailable
	Archiver          Archiver // nil disables archiving
}

// Controller holds the CV builder state for one UI session.
type Controller struct {
	store    session.Store
	backend  Backend
	alerts   Alerter
	renderer Renderer
	archiver Archiver
	lang     string

	mu            sync.Mutex
	profileID     string
	profile       any // map[string]any when parsed, string when kept raw
	cvText        string
	targetRole    string
	profileOutput string
	cvOutput      string
	creating      bool
	generating    bool
	exporting     bool
	exportEnabled bool
}

// New creates a controller.
func New(store session.Store, be Backend, alerts Alerter, opts Options) *Controller {
	lang := opts.PreferredLanguage
	if lang == "" {
		lang = DefaultPreferredLanguage
	}
	return &Controller{
		store:    store,
		backend:  be,
		alerts:   alerts,
		renderer: opts.Renderer,
		archiver: opts.Archiver,
		lang:     lang,
	}
}

// View is the renderable state of the CV builder.
type View struct {
	ProfileID       string `json:"profile_id,omitempty"`
	ProfileOutput   string `json:"profile_output"`
	CVOutput        string `json:"cv_output"`
	TargetRole      string `json:"target_role"`
	CreateLabel     string `json:"create_label"`
	CreateEnabled   bool   `json:"create_enabled"`
	GenerateLabel   string `json:"generate_label"`
	GenerateEnabled bool   `json:"generate_enabled"`
	ExportEnabled   bool   `json:"export_enabled"`
}

// View returns a snapshot of the current state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		ProfileID:       c.profileID,
		ProfileOutput:   c.profileOutput,
		CVOutput:        c.cvOutput,
		TargetRole:      c.targetRole,
		CreateLabel:     LabelCreate,
		CreateEnabled:   !c.creating,
		GenerateLabel:   LabelGenerate,
		GenerateEnabled: !c.generating && c.hasProfileLocked(),
		ExportEnabled:   c.exportEnabled && !c.exporting,
	}
	if c.creating {
		v.CreateLabel = LabelCreating
	}
	if c.generating {
		v.GenerateLabel = LabelGenerating
	}
	return v
}

func (c *Controller) hasProfileLocked() bool {
	return c.profileID != "" || c.profile != nil
}

// SetTargetRole sets the role the next CV is tailored to.
func (c *Controller) SetTargetRole(role string) {
	c.mu.Lock()
	c.targetRole = role
	c.mu.Unlock()
}

// AdoptProfileID points the flow at a profile created elsewhere, such as
// during phone verification.
func (c *Controller) AdoptProfileID(id string) {
	c.mu.Lock()
	c.profileID = id
	c.mu.Unlock()
}

// ProfileID returns the current profile id.
func (c *Controller) ProfileID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profileID
}

// Profile returns the parsed profile, the raw string fallback, or nil.
func (c *Controller) Profile() any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profile
}

// CVText returns the last generated CV text.
func (c *Controller) CVText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cvText
}

// CreateProfile sends the user's description to the backend and stores the
// resulting profile.
func (c *Controller) CreateProfile(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		c.alerts.Alert(MsgEmptyInput)
		return ErrEmptyInput
	}

	c.mu.Lock()
	if c.creating {
		c.mu.Unlock()
		return ErrBusy
	}
	c.creating = true
	c.profileOutput = MsgThinking
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.creating = false
		c.mu.Unlock()
	}()

	cachedID, err := session.GetString(ctx, c.store, session.KeyProfileID)
	if err != nil {
		log.Printf("[cv] failed to read cached profile id: %v", err)
	}
	phone, err := session.GetString(ctx, c.store, session.KeyPhone)
	if err != nil {
		log.Printf("[cv] failed to read cached phone: %v", err)
	}

	result, err := c.backend.CreateProfile(ctx, text, c.lang, cachedID, phone)
	if err != nil {
		log.Printf("[cv] build_profile failed: %v", err)
		c.mu.Lock()
		c.profileOutput = MsgProfileFailed
		c.mu.Unlock()
		return fmt.Errorf("create profile: %w", err)
	}

	profile := parseProfile(result.Profile)

	output, err := json.MarshalIndent(map[string]any{
		"profile_id": nullable(result.ProfileID),
		"profile":    profile,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("format profile: %w", err)
	}

	c.mu.Lock()
	c.profileID = result.ProfileID
	c.profile = profile
	c.profileOutput = string(output)
	c.mu.Unlock()

	log.Printf("[cv] profile created (id=%q)", result.ProfileID)
	return nil
}

// CreateProfileFromDocument extracts text from an uploaded CV and creates a
// profile from it.
func (c *Controller) CreateProfileFromDocument(ctx context.Context, mimeType string, data []byte) error {
	text, err := ingest.ExtractText(mimeType, data)
	if err != nil {
		log.Printf("[cv] document extraction failed (%s): %v", mimeType, err)
		c.alerts.Alert(MsgDocumentFailed)
		return fmt.Errorf("extract document: %w", err)
	}
	return c.CreateProfile(ctx, text)
}

// parseProfile decodes the backend's profile JSON. Undecodable content is
// kept as the raw string; schema violations are only logged.
func parseProfile(raw string) any {
	if raw == "" {
		return nil
	}
	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		log.Printf("[cv] could not parse profile JSON, keeping raw text: %v", err)
		return raw
	}
	if err := schemas.ValidateProfile(parsed); err != nil {
		log.Printf("[cv] profile does not match schema: %v", err)
	}
	return parsed
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// GenerateCV asks the backend for CV text for the current profile.
func (c *Controller) GenerateCV(ctx context.Context, targetRole string) error {
	c.mu.Lock()
	if !c.hasProfileLocked() {
		c.mu.Unlock()
		c.alerts.Alert(MsgNoProfile)
		return ErrNoProfile
	}
	if c.generating {
		c.mu.Unlock()
		return ErrBusy
	}
	c.generating = true
	c.targetRole = targetRole
	c.cvOutput = MsgBuildingCV
	profileID, profile := c.profileID, c.profile
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.generating = false
		c.mu.Unlock()
	}()

	cv, err := c.backend.GenerateCV(ctx, profileID, profile, strings.TrimSpace(targetRole))

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		log.Printf("[cv] generate_cv failed: %v", err)
		c.cvText = ""
		c.cvOutput = MsgCVFailed
		c.exportEnabled = false
		return fmt.Errorf("generate cv: %w", err)
	}

	c.cvText = cv
	if cv == "" {
		c.cvOutput = MsgNoCVText
		c.exportEnabled = false
		return nil
	}
	c.cvOutput = cv
	c.exportEnabled = true
	return nil
}

// ExportPDF renders the current CV text and returns the PDF with its filename.
func (c *Controller) ExportPDF(ctx context.Context) ([]byte, string, error) {
	c.mu.Lock()
	text, profileID := c.cvText, c.profileID
	if text == "" {
		c.mu.Unlock()
		c.alerts.Alert(MsgGenerateFirst)
		return nil, "", ErrNoCV
	}
	if c.renderer == nil {
		c.mu.Unlock()
		c.alerts.Alert(MsgRendererMissing)
		return nil, "", ErrRendererUnavailable
	}
	if c.exporting {
		c.mu.Unlock()
		return nil, "", ErrBusy
	}
	c.exporting = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.exporting = false
		c.mu.Unlock()
	}()

	pdf, err := c.renderer.RenderCV(ctx, text)
	if err != nil {
		if errors.Is(err, rendering.ErrEngineUnavailable) {
			c.alerts.Alert(MsgRendererMissing)
			return nil, "", ErrRendererUnavailable
		}
		return nil, "", fmt.Errorf("export pdf: %w", err)
	}

	if c.archiver != nil {
		if _, err := c.archiver.StoreCV(ctx, profileID, rendering.CVFilename, pdf); err != nil {
			log.Printf("[cv] archive upload failed: %v", err)
		}
	}

	return pdf, rendering.CVFilename, nil
}
