// Package app composes the controllers that make up one UI session.
package app

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jonathan/spanisami/internal/auth"
	"github.com/jonathan/spanisami/internal/backend"
	"github.com/jonathan/spanisami/internal/config"
	"github.com/jonathan/spanisami/internal/cvflow"
	"github.com/jonathan/spanisami/internal/hero"
	"github.com/jonathan/spanisami/internal/jobscanner"
	"github.com/jonathan/spanisami/internal/router"
	"github.com/jonathan/spanisami/internal/session"
	"github.com/jonathan/spanisami/internal/types"
	"github.com/jonathan/spanisami/internal/voice"
)

// Backend is everything the session's controllers ask of the remote backend.
type Backend interface {
	CreateProfile(ctx context.Context, rawText, preferredLanguage, profileID, phone string) (*backend.Profile, error)
	GenerateCV(ctx context.Context, profileID string, profile any, targetRole string) (string, error)
	Chat(ctx context.Context, sessionID, message, language, mode string) (*backend.ChatReply, error)
	RequestVerificationCode(ctx context.Context, phone string) (string, error)
	VerifyCode(ctx context.Context, phone, code string) (string, error)
}

// Deps are the collaborators shared by every controller of a session.
type Deps struct {
	Store     session.Store
	Backend   Backend
	Passwords *config.PasswordConfig
	Catalog   *jobscanner.Catalog // nil uses the embedded catalog

	Renderer cvflow.Renderer // nil disables PDF export
	Archiver cvflow.Archiver // nil disables archiving

	PreferredLanguage string
	VoiceMode         string

	// Browser capabilities reported when the session was created.
	CanRecognize bool
	CanSpeak     bool
	MapAvailable bool

	RotationInterval time.Duration
}

type controllers struct {
	cv      *cvflow.Controller
	engine  *voice.RemoteEngine
	voice   *voice.Assistant
	mapView jobscanner.MapView
	scanner *jobscanner.Scanner
	router  *router.Router
	auth    *auth.Flow
}

// App owns the state of one UI session.
type App struct {
	deps    Deps
	catalog *jobscanner.Catalog
	alerts  *AlertQueue
	changes *broadcaster
	hero    *hero.Rotator
	cancel  context.CancelFunc

	mu sync.RWMutex
	c  *controllers
}

// New builds the session's controllers, restores the auth step from the store
// and starts the testimonial rotation. The rotation stops when ctx is
// cancelled or Close is called.
func New(ctx context.Context, deps Deps) (*App, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("app: session store is required")
	}
	if deps.Backend == nil {
		return nil, fmt.Errorf("app: backend is required")
	}
	if deps.Passwords == nil {
		passwords, err := config.NewPasswordConfigWithCost(config.MinBcryptCost, "")
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		deps.Passwords = passwords
	}
	if deps.VoiceMode == "" {
		deps.VoiceMode = config.DefaultVoiceMode
	}

	catalog := deps.Catalog
	if catalog == nil {
		var err error
		catalog, err = jobscanner.DefaultCatalog()
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
	}

	a := &App{
		deps:    deps,
		catalog: catalog,
		changes: newBroadcaster(),
	}
	a.alerts = NewAlertQueue(a.changes.publish)
	a.hero = hero.NewRotator(deps.RotationInterval, func(int) { a.changes.publish() })

	if err := a.Reload(ctx); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.cancel = cancel
	go a.hero.Run(runCtx)

	return a, nil
}

// Close stops background work.
func (a *App) Close() {
	if a.cancel != nil {
		a.cancel()
	}
}

// Reload rebuilds every controller over the same store, as a full page
// reload would.
func (a *App) Reload(ctx context.Context) error {
	c := &controllers{}

	c.cv = cvflow.New(a.deps.Store, a.deps.Backend, a.alerts, cvflow.Options{
		PreferredLanguage: a.deps.PreferredLanguage,
		Renderer:          a.deps.Renderer,
		Archiver:          a.deps.Archiver,
	})

	c.engine = voice.NewRemoteEngine(a.deps.CanRecognize, a.deps.CanSpeak)
	c.voice = voice.NewAssistant(c.engine.Recognizer(), c.engine.Synthesizer(), a.deps.Backend, a.alerts, a.deps.VoiceMode)

	if a.deps.MapAvailable {
		c.mapView = jobscanner.NewRecordingMap()
	} else {
		c.mapView = jobscanner.UnavailableMap{}
	}
	nav := jobscanner.NavigatorFunc(func(s types.Section) error { return c.router.Show(s) })
	c.scanner = jobscanner.New(a.catalog, c.mapView, jobscanner.NoLocator{}, a.alerts, c.cv, nav)
	c.router = router.New(c.scanner)

	c.auth = auth.New(a.deps.Store, a.deps.Backend, a.deps.Passwords, a.alerts, c.cv, a.Reload)
	step, err := c.auth.Load(ctx)
	if err != nil {
		return fmt.Errorf("app: %w", err)
	}

	a.mu.Lock()
	a.c = c
	a.mu.Unlock()

	log.Printf("[app] session loaded (auth step %s)", step)
	a.changes.publish()
	return nil
}

func (a *App) current() *controllers {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.c
}

// CV returns the profile and CV controller.
func (a *App) CV() *cvflow.Controller { return a.current().cv }

// Voice returns the voice assistant.
func (a *App) Voice() *voice.Assistant { return a.current().voice }

// SpeechEngine returns the command queue for the browser's speech engines.
func (a *App) SpeechEngine() *voice.RemoteEngine { return a.current().engine }

// Scanner returns the job scanner.
func (a *App) Scanner() *jobscanner.Scanner { return a.current().scanner }

// Router returns the section router.
func (a *App) Router() *router.Router { return a.current().router }

// Auth returns the auth flow.
func (a *App) Auth() *auth.Flow { return a.current().auth }

// Hero returns the testimonial rotator.
func (a *App) Hero() *hero.Rotator { return a.hero }

// Alert queues a user-facing message.
func (a *App) Alert(msg string) { a.alerts.Alert(msg) }

// DrainAlerts returns and clears pending alerts.
func (a *App) DrainAlerts() []string { return a.alerts.Drain() }

// Subscribe returns a channel that receives a value after state changes and
// a function that ends the subscription.
func (a *App) Subscribe() (<-chan struct{}, func()) { return a.changes.subscribe() }

// Subscribers returns the number of live subscriptions.
func (a *App) Subscribers() int { return a.changes.count() }

// Changed tells subscribers that state may have changed.
func (a *App) Changed() { a.changes.publish() }

// View is the whole UI state of a session.
type View struct {
	Section       types.Section   `json:"section"`
	MapsLoaded    bool            `json:"maps_loaded"`
	Hero          hero.View       `json:"hero"`
	CV            cvflow.View     `json:"cv"`
	Voice         voice.View      `json:"voice"`
	Jobs          jobscanner.View `json:"jobs"`
	Auth          auth.View       `json:"auth"`
	PendingAlerts int             `json:"pending_alerts"`
}

// View returns a snapshot of every controller.
func (a *App) View() View {
	c := a.current()
	return View{
		Section:       c.router.Active(),
		MapsLoaded:    c.router.MapsLoaded(),
		Hero:          a.hero.View(),
		CV:            c.cv.View(),
		Voice:         c.voice.View(),
		Jobs:          c.scanner.View(),
		Auth:          c.auth.View(),
		PendingAlerts: a.alerts.Len(),
	}
}
