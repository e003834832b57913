// Package router tracks which page section is visible and brings up the job
// map lazily once both the section and the map provider are ready.
package router

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/jonathan/spanisami/internal/types"
)

// ErrUnknownSection is returned by Show for names that are not page sections.
var ErrUnknownSection = errors.New("unknown section")

// Initializer is a component that needs a one-time setup, such as the job scanner.
type Initializer interface {
	Initialized() bool
	Init() error
}

// Router holds the active section for one UI session.
type Router struct {
	scanner Initializer

	mu        sync.Mutex
	active    types.Section
	mapsReady bool
}

// New creates a router showing the hero section.
func New(scanner Initializer) *Router {
	return &Router{scanner: scanner, active: types.SectionHero}
}

// Active returns the visible section.
func (r *Router) Active() types.Section {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// MapsLoaded reports whether the map provider has signalled readiness.
func (r *Router) MapsLoaded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mapsReady
}

// Show makes section the only visible section.
func (r *Router) Show(section types.Section) error {
	if !section.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownSection, section)
	}

	r.mu.Lock()
	r.active = section
	initNow := section == types.SectionJobScanner && r.mapsReady
	r.mu.Unlock()

	if initNow {
		r.initScanner()
	}
	return nil
}

// MapsReady records that the map provider finished loading.
func (r *Router) MapsReady() {
	r.mu.Lock()
	r.mapsReady = true
	initNow := r.active == types.SectionJobScanner
	r.mu.Unlock()

	if initNow {
		r.initScanner()
	}
}

// initScanner failures leave the rest of the page usable.
func (r *Router) initScanner() {
	if r.scanner == nil || r.scanner.Initialized() {
		return
	}
	if err := r.scanner.Init(); err != nil {
		log.Printf("[router] job scanner init failed: %v", err)
	}
}
