// Package voice runs the spoken conversation loop: listen, transcribe, ask
// the backend, speak the reply.
package voice

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/jonathan/spanisami/internal/backend"
)

// State is the visual state of the voice control.
type State string

const (
	StateIdle       State = "idle"
	StateListening  State = "listening"
	StateProcessing State = "processing"
	StateSpeaking   State = "speaking"
)

// Conversation modes.
const (
	ModeCV        = "cv"
	ModeInterview = "interview"
)

// Status and alert messages.
const (
	MsgUnsupported  = "Your browser does not support speech recognition. Use Chrome on desktop."
	MsgListening    = "Listening..."
	MsgStartFailed  = "Could not start microphone. Check permissions."
	MsgNoMatch      = "I could not understand what you said. Please try again."
	MsgCancelled    = "Mic stopped. Tap Start talking to try again."
	MsgHeardNothing = "I didn't hear anything. Try again."
	MsgThinking     = "SpaniSami is thinking..."
	MsgDone         = "Done. Tap the mic to answer the next question."
	MsgChatFailed   = "Something went wrong. Please try again."

	LabelStart = "Start talking"
	LabelStop  = "Stop talking"
)

var (
	ErrUnsupported = errors.New("speech recognition not supported")
	ErrBusy        = errors.New("voice assistant is processing")
)

// Senders in the chat log.
const (
	SenderUser = "user"
	SenderBot  = "bot"
)

// Message is one chat log entry.
type Message struct {
	Sender string `json:"sender"`
	Label  string `json:"label"`
	Text   string `json:"text"`
}

// ChatBackend is the subset of the backend client used by the assistant.
type ChatBackend interface {
	Chat(ctx context.Context, sessionID, message, language, mode string) (*backend.ChatReply, error)
}

// Alerter shows a blocking message to the user.
type Alerter interface {
	Alert(msg string)
}

// Assistant is the voice conversation controller for one UI session.
type Assistant struct {
	rec     Recognizer
	syn     Synthesizer
	backend ChatBackend
	alerts  Alerter
	mode    string

	mu         sync.Mutex
	language   string
	state      State
	listening  bool // a recognition session is active
	cancelled  bool
	errored    bool
	transcript string
	status     string
	sessionID  string
	log        []Message
}

// NewAssistant creates an assistant. A nil recognizer or synthesizer is
// treated as unsupported.
func NewAssistant(rec Recognizer, syn Synthesizer, be ChatBackend, alerts Alerter, mode string) *Assistant {
	if rec == nil {
		rec = UnsupportedRecognizer{}
	}
	if syn == nil {
		syn = UnsupportedSynthesizer{}
	}
	if mode == "" {
		mode = ModeCV
	}
	a := &Assistant{
		rec:      rec,
		syn:      syn,
		backend:  be,
		alerts:   alerts,
		mode:     mode,
		language: "en",
		state:    StateIdle,
	}
	if !rec.Supported() {
		a.status = MsgUnsupported
	}
	return a
}

// View is the renderable state of the voice panel.
type View struct {
	State         State      `json:"state"`
	Status        string     `json:"status"`
	Language      string     `json:"language"`
	Languages     []Language `json:"languages"`
	ToggleLabel   string     `json:"toggle_label"`
	ToggleEnabled bool       `json:"toggle_enabled"`
	Recording     bool       `json:"recording"`
	SessionID     string     `json:"session_id,omitempty"`
	Log           []Message  `json:"log"`
}

// View returns a snapshot of the assistant.
func (a *Assistant) View() View {
	a.mu.Lock()
	defer a.mu.Unlock()

	label := LabelStart
	if a.listening {
		label = LabelStop
	}
	logCopy := make([]Message, len(a.log))
	copy(logCopy, a.log)

	return View{
		State:         a.state,
		Status:        a.status,
		Language:      a.language,
		Languages:     Languages(),
		ToggleLabel:   label,
		ToggleEnabled: a.rec.Supported(),
		Recording:     a.listening,
		SessionID:     a.sessionID,
		Log:           logCopy,
	}
}

// State returns the current visual state.
func (a *Assistant) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// SetLanguage selects the conversation language by code.
func (a *Assistant) SetLanguage(code string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if code == "" {
		code = "en"
	}
	a.language = code
}

// Toggle starts listening, or stops an active recognition session.
func (a *Assistant) Toggle() error {
	if !a.rec.Supported() {
		a.mu.Lock()
		a.status = MsgUnsupported
		a.mu.Unlock()
		return ErrUnsupported
	}

	a.mu.Lock()
	if a.listening {
		a.cancelled = true
		a.mu.Unlock()
		a.rec.Abort()
		return nil
	}
	if a.state == StateProcessing {
		a.mu.Unlock()
		return ErrBusy
	}
	speaking := a.state == StateSpeaking
	locale := LocaleFor(a.language)
	// Claimed before Start so a concurrent toggle stops instead of starting twice.
	a.listening = true
	a.cancelled = false
	a.errored = false
	a.transcript = ""
	a.mu.Unlock()

	if speaking {
		a.syn.Cancel()
	}

	if err := a.rec.Start(locale); err != nil {
		log.Printf("[voice] failed to start recognition: %v", err)
		a.mu.Lock()
		a.listening = false
		a.status = MsgStartFailed
		if speaking {
			a.state = StateIdle
		}
		a.mu.Unlock()
		return fmt.Errorf("start recognition: %w", err)
	}

	a.mu.Lock()
	if a.listening {
		a.status = MsgListening
	}
	if speaking {
		a.state = StateIdle
	}
	a.mu.Unlock()
	return nil
}

// OnStart handles the recognizer's start event.
func (a *Assistant) OnStart() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listening = true
	a.cancelled = false
	a.errored = false
	a.transcript = ""
	a.state = StateListening
}

// OnResult handles an interim or final result. segments are the transcripts
// from the event's result index onward.
func (a *Assistant) OnResult(segments []string) {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	transcript := strings.Join(parts, " ")

	a.mu.Lock()
	defer a.mu.Unlock()
	a.transcript = transcript
	if transcript != "" {
		a.status = `I heard: "` + transcript + `"`
	}
}

// OnNoMatch handles a recognition pass that matched nothing.
func (a *Assistant) OnNoMatch() {
	a.mu.Lock()
	a.status = MsgNoMatch
	a.mu.Unlock()
}

// OnError handles a recognition error. The following end event will not
// contact the backend.
func (a *Assistant) OnError(code string) {
	if code == "" {
		code = "unknown error"
	}
	log.Printf("[voice] recognition error: %s", code)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.listening = false
	a.errored = true
	a.status = "Mic error: " + code
	a.state = StateIdle
}

// OnSpeechEnd handles the end of an utterance.
func (a *Assistant) OnSpeechEnd() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == StateSpeaking {
		a.state = StateIdle
	}
}

// OnEnd handles the end of a recognition session and, when a transcript was
// captured, runs one chat turn.
func (a *Assistant) OnEnd(ctx context.Context) error {
	a.mu.Lock()
	if a.state == StateProcessing {
		a.mu.Unlock()
		return nil
	}
	a.listening = false

	switch {
	case a.cancelled:
		a.cancelled = false
		a.status = MsgCancelled
		a.state = StateIdle
		a.transcript = ""
		a.mu.Unlock()
		return nil
	case a.errored:
		a.errored = false
		a.state = StateIdle
		a.transcript = ""
		a.mu.Unlock()
		return nil
	case a.transcript == "":
		a.status = MsgHeardNothing
		a.state = StateIdle
		a.mu.Unlock()
		return nil
	}

	text := a.transcript
	a.transcript = ""
	a.state = StateProcessing
	a.log = append(a.log, Message{Sender: SenderUser, Label: "You", Text: text})
	a.status = MsgThinking
	sessionID, language := a.sessionID, a.language
	a.mu.Unlock()

	reply, err := a.backend.Chat(ctx, sessionID, text, language, a.mode)
	if err != nil {
		log.Printf("[voice] chat failed: %v", err)
		a.mu.Lock()
		a.status = MsgChatFailed
		a.state = StateIdle
		a.mu.Unlock()
		a.alerts.Alert("Voice chat failed: " + backend.UserMessage(err, err.Error()))
		return fmt.Errorf("chat: %w", err)
	}

	a.mu.Lock()
	if reply.SessionID != "" {
		a.sessionID = reply.SessionID
	}
	a.status = MsgDone
	if reply.Reply == "" {
		a.state = StateIdle
		a.mu.Unlock()
		return nil
	}
	a.log = append(a.log, Message{Sender: SenderBot, Label: "SpaniSami", Text: reply.Reply})
	canSpeak := a.syn.Supported()
	if canSpeak {
		a.state = StateSpeaking
	} else {
		a.state = StateIdle
	}
	a.mu.Unlock()

	if canSpeak {
		if err := a.syn.Speak(Speakable(reply.Reply), LocaleFor(language)); err != nil {
			log.Printf("[voice] speak failed: %v", err)
			a.mu.Lock()
			a.state = StateIdle
			a.mu.Unlock()
		}
	}
	return nil
}
