package voice

import (
	"errors"
	"sync"
)

// Recognizer is a speech-to-text engine. Results arrive as Assistant events.
type Recognizer interface {
	Supported() bool
	Start(locale string) error
	Abort()
}

// Synthesizer is a text-to-speech engine. Completion arrives as OnSpeechEnd.
type Synthesizer interface {
	Supported() bool
	Speak(text, locale string) error
	Cancel()
}

// ErrEngineUnsupported is returned by the unsupported engines.
var ErrEngineUnsupported = errors.New("speech engine not supported")

// UnsupportedRecognizer stands in when the client has no speech recognition.
type UnsupportedRecognizer struct{}

func (UnsupportedRecognizer) Supported() bool    { return false }
func (UnsupportedRecognizer) Start(string) error { return ErrEngineUnsupported }
func (UnsupportedRecognizer) Abort()             {}

// UnsupportedSynthesizer stands in when the client has no speech synthesis.
type UnsupportedSynthesizer struct{}

func (UnsupportedSynthesizer) Supported() bool            { return false }
func (UnsupportedSynthesizer) Speak(string, string) error { return ErrEngineUnsupported }
func (UnsupportedSynthesizer) Cancel()                    {}

// Command types executed by the browser.
const (
	CommandStart  = "start"
	CommandAbort  = "abort"
	CommandSpeak  = "speak"
	CommandCancel = "cancel"
)

// Command is one instruction for the browser's speech engines.
type Command struct {
	Type   string `json:"type"`
	Locale string `json:"locale,omitempty"`
	Text   string `json:"text,omitempty"`
}

// RemoteEngine implements Recognizer and Synthesizer by queueing commands
// for the browser, which reports engine events back.
type RemoteEngine struct {
	mu           sync.Mutex
	canRecognize bool
	canSpeak     bool
	queue        []Command
}

// NewRemoteEngine creates an engine with the client's reported capabilities.
func NewRemoteEngine(canRecognize, canSpeak bool) *RemoteEngine {
	return &RemoteEngine{canRecognize: canRecognize, canSpeak: canSpeak}
}

// Recognizer returns the recognition half of the engine.
func (e *RemoteEngine) Recognizer() Recognizer { return remoteRecognizer{e} }

// Synthesizer returns the synthesis half of the engine.
func (e *RemoteEngine) Synthesizer() Synthesizer { return remoteSynthesizer{e} }

// Drain returns and clears the queued commands.
func (e *RemoteEngine) Drain() []Command {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.queue
	e.queue = nil
	return out
}

func (e *RemoteEngine) push(c Command) {
	e.mu.Lock()
	e.queue = append(e.queue, c)
	e.mu.Unlock()
}

type remoteRecognizer struct{ e *RemoteEngine }

func (r remoteRecognizer) Supported() bool {
	r.e.mu.Lock()
	defer r.e.mu.Unlock()
	return r.e.canRecognize
}

func (r remoteRecognizer) Start(locale string) error {
	if !r.Supported() {
		return ErrEngineUnsupported
	}
	r.e.push(Command{Type: CommandStart, Locale: locale})
	return nil
}

func (r remoteRecognizer) Abort() { r.e.push(Command{Type: CommandAbort}) }

type remoteSynthesizer struct{ e *RemoteEngine }

func (s remoteSynthesizer) Supported() bool {
	s.e.mu.Lock()
	defer s.e.mu.Unlock()
	return s.e.canSpeak
}

func (s remoteSynthesizer) Speak(text, locale string) error {
	if !s.Supported() {
		return ErrEngineUnsupported
	}
	s.e.push(Command{Type: CommandSpeak, Text: text, Locale: locale})
	return nil
}

func (s remoteSynthesizer) Cancel() { s.e.push(Command{Type: CommandCancel}) }
