package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/spanisami/internal/app"
	"github.com/jonathan/spanisami/internal/auth"
	"github.com/jonathan/spanisami/internal/backend"
	"github.com/jonathan/spanisami/internal/config"
	"github.com/jonathan/spanisami/internal/cvflow"
	"github.com/jonathan/spanisami/internal/server/ratelimit"
	"github.com/jonathan/spanisami/internal/session"
	"github.com/jonathan/spanisami/internal/types"
	"github.com/jonathan/spanisami/internal/voice"
)

type testBackend struct{}

func (testBackend) CreateProfile(_ context.Context, rawText, _, _, _ string) (*backend.Profile, error) {
	return &backend.Profile{ProfileID: "p-1", Profile: `{"name":"Thandi","skills":["cooking"]}`}, nil
}

func (testBackend) GenerateCV(_ context.Context, _ string, _ any, role string) (string, error) {
	return "THANDI\nTarget role: " + role, nil
}

func (testBackend) Chat(_ context.Context, _, message, _, _ string) (*backend.ChatReply, error) {
	return &backend.ChatReply{SessionID: "s-1", Reply: "You said " + message}, nil
}

func (testBackend) RequestVerificationCode(context.Context, string) (string, error) {
	return "123456", nil
}

func (testBackend) VerifyCode(_ context.Context, _, code string) (string, error) {
	if code != "123456" {
		return "", fmt.Errorf("%w: %w", backend.ErrCodeMismatch, &backend.Error{Endpoint: backend.EndpointVerifyCode, Status: 400, Message: "Invalid code"})
	}
	return "p-1", nil
}

type testRenderer struct{}

func (testRenderer) RenderCV(_ context.Context, text string) ([]byte, error) {
	return []byte("%PDF-1.4 " + text), nil
}

func newTestServer(t *testing.T, rl *ratelimit.Config) *Server {
	t.Helper()
	if rl == nil {
		rl = &ratelimit.Config{Enabled: false}
	}
	s, err := New(Config{
		JWT:       &config.JWTConfig{Secret: testSecret, ExpirationHours: 24},
		RateLimit: rl,
	}, Deps{
		Store: session.NewMemoryBackend(),
		App: app.Deps{
			Backend:          testBackend{},
			Renderer:         testRenderer{},
			RotationInterval: time.Hour,
		},
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func call(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func createSession(t *testing.T, h http.Handler, body any) CreateSessionResponse {
	t.Helper()
	rec := call(t, h, http.MethodPost, "/api/sessions", "", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp CreateSessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp
}

func decodeAction(t *testing.T, rec *httptest.ResponseRecorder) ActionResponse {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp ActionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder, status int) ErrorResponse {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Error)
	return resp
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, nil).Handler()
	rec := call(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAPI_RequiresToken(t *testing.T) {
	h := newTestServer(t, nil).Handler()
	assert.Equal(t, http.StatusUnauthorized, call(t, h, http.MethodGet, "/api/state", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, call(t, h, http.MethodGet, "/api/state", "garbage", nil).Code)
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(t, nil).Handler()
	rec := call(t, h, http.MethodOptions, "/api/state", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestCreateSession(t *testing.T) {
	h := newTestServer(t, nil).Handler()
	resp := createSession(t, h, nil)

	assert.Equal(t, types.SectionHero, resp.State.Section)
	assert.Equal(t, auth.StepSignup, resp.State.Auth.Step)
	assert.True(t, resp.State.Voice.ToggleEnabled)

	rec := call(t, h, http.MethodGet, "/api/state", resp.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view app.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, types.SectionHero, view.Section)
}

func TestProfileCVAndPDF(t *testing.T) {
	s := newTestServer(t, nil)
	h := s.Handler()
	token := createSession(t, h, nil).Token

	resp := decodeAction(t, call(t, h, http.MethodPost, "/api/profile", token, CreateProfileRequest{Text: "I cook for events"}))
	assert.Equal(t, "p-1", resp.State.CV.ProfileID)
	assert.True(t, resp.State.CV.GenerateEnabled)
	assert.False(t, resp.State.CV.ExportEnabled)

	role := "Kitchen assistant"
	resp = decodeAction(t, call(t, h, http.MethodPost, "/api/cv", token, GenerateCVRequest{TargetRole: &role}))
	assert.True(t, resp.State.CV.ExportEnabled)
	assert.Contains(t, resp.State.CV.CVOutput, "Target role: Kitchen assistant")

	rec := call(t, h, http.MethodGet, "/api/cv/pdf", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "SpaniSami_CV.pdf")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))

	rec = call(t, h, http.MethodGet, "/api/stats", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats StatsView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, StatsView{ProfilesCreated: 1, CVsGenerated: 1, PDFsExported: 1, SessionsCreated: 1, ActiveSessions: 1}, stats)
}

func TestProfileErrors(t *testing.T) {
	h := newTestServer(t, nil).Handler()
	token := createSession(t, h, nil).Token

	errResp := decodeError(t, call(t, h, http.MethodPost, "/api/profile", token, CreateProfileRequest{Text: "  "}), http.StatusBadRequest)
	assert.Equal(t, []string{cvflow.MsgEmptyInput}, errResp.Alerts)

	errResp = decodeError(t, call(t, h, http.MethodPost, "/api/cv", token, nil), http.StatusBadRequest)
	assert.Equal(t, []string{cvflow.MsgNoProfile}, errResp.Alerts)

	errResp = decodeError(t, call(t, h, http.MethodGet, "/api/cv/pdf", token, nil), http.StatusBadRequest)
	assert.Equal(t, []string{cvflow.MsgGenerateFirst}, errResp.Alerts)

	req := httptest.NewRequest(http.MethodPost, "/api/profile", strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProfileFromDocument(t *testing.T) {
	h := newTestServer(t, nil).Handler()
	token := createSession(t, h, nil).Token

	upload := func(filename, content string) *httptest.ResponseRecorder {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/profile/document", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	resp := decodeAction(t, upload("cv.txt", "Thandi, cook and cashier"))
	assert.True(t, resp.State.CV.GenerateEnabled)

	assert.Equal(t, http.StatusUnsupportedMediaType, upload("cv.png", "\x89PNG").Code)
}

func TestAuthFlow(t *testing.T) {
	h := newTestServer(t, nil).Handler()
	token := createSession(t, h, nil).Token

	resp := decodeAction(t, call(t, h, http.MethodPost, "/api/auth/signup", token,
		types.SignupRequest{Name: "Thandi Mokoena", Email: "thandi@example.com", Phone: "+27821234567"}))
	assert.Equal(t, auth.StepVerify, resp.State.Auth.Step)
	assert.Equal(t, "123456", resp.State.Auth.DemoCode)

	decodeError(t, call(t, h, http.MethodPost, "/api/auth/verify", token, types.VerifyRequest{Code: "000000"}), http.StatusUnauthorized)

	resp = decodeAction(t, call(t, h, http.MethodPost, "/api/auth/verify", token, types.VerifyRequest{Code: "123456"}))
	assert.Equal(t, auth.StepPassword, resp.State.Auth.Step)
	assert.Equal(t, "p-1", resp.State.CV.ProfileID)

	decodeError(t, call(t, h, http.MethodPost, "/api/auth/password", token,
		types.PasswordRequest{Password: "abc123", Confirm: "xyz999"}), http.StatusBadRequest)

	resp = decodeAction(t, call(t, h, http.MethodPost, "/api/auth/password", token,
		types.PasswordRequest{Password: "abc123", Confirm: "abc123"}))
	assert.Equal(t, auth.StepAuthenticated, resp.State.Auth.Step)
	assert.Equal(t, "TM", resp.State.Auth.Initials)

	resp = decodeAction(t, call(t, h, http.MethodPost, "/api/auth/logout", token, nil))
	assert.Equal(t, auth.StepSignup, resp.State.Auth.Step)
	assert.Empty(t, resp.State.CV.ProfileID)
}

func TestAuth_WrongStep(t *testing.T) {
	h := newTestServer(t, nil).Handler()
	token := createSession(t, h, nil).Token

	decodeError(t, call(t, h, http.MethodPost, "/api/auth/verify", token, types.VerifyRequest{Code: "123456"}), http.StatusConflict)
	decodeError(t, call(t, h, http.MethodPost, "/api/auth/signup", token, types.SignupRequest{Name: "x"}), http.StatusBadRequest)

	resp := decodeAction(t, call(t, h, http.MethodPost, "/api/auth/guest", token, nil))
	assert.Equal(t, auth.StepAuthenticated, resp.State.Auth.Step)
	assert.Equal(t, auth.GuestName, resp.State.Auth.DisplayName)
}

func TestJobScanner(t *testing.T) {
	h := newTestServer(t, nil).Handler()
	token := createSession(t, h, nil).Token

	decodeError(t, call(t, h, http.MethodPost, "/api/jobs/radius", token, RadiusRequest{RadiusKm: 10}), http.StatusConflict)

	resp := decodeAction(t, call(t, h, http.MethodPost, "/api/view/job-scanner", token, nil))
	assert.Equal(t, types.SectionJobScanner, resp.State.Section)
	assert.False(t, resp.State.Jobs.Initialized)

	resp = decodeAction(t, call(t, h, http.MethodPost, "/api/maps/ready", token, nil))
	assert.True(t, resp.State.Jobs.Initialized)
	assert.Equal(t, 2, resp.State.Jobs.InRangeCount)

	decodeError(t, call(t, h, http.MethodPost, "/api/jobs/radius", token, RadiusRequest{RadiusKm: 0}), http.StatusBadRequest)

	resp = decodeAction(t, call(t, h, http.MethodPost, "/api/jobs/select/3", token, nil))
	require.NotNil(t, resp.State.Jobs.Selected)
	assert.Equal(t, "After-school Programme · Alexandra · approx 11.9 km from centre", resp.State.Jobs.Selected.Meta)

	decodeError(t, call(t, h, http.MethodPost, "/api/jobs/select/99", token, nil), http.StatusNotFound)
	decodeError(t, call(t, h, http.MethodPost, "/api/jobs/select/abc", token, nil), http.StatusBadRequest)

	resp = decodeAction(t, call(t, h, http.MethodPost, "/api/jobs/apply", token, nil))
	assert.Contains(t, resp.Message, "Application feature coming soon.")
	assert.Equal(t, []string{resp.Message}, resp.Alerts)

	title := resp.State.Jobs.Selected.Job.Title
	resp = decodeAction(t, call(t, h, http.MethodPost, "/api/jobs/build-cv", token, nil))
	assert.Equal(t, types.SectionCVBuilder, resp.State.Section)
	assert.Equal(t, title, resp.State.CV.TargetRole)
	assert.Nil(t, resp.State.Jobs.Selected)

	resp = decodeAction(t, call(t, h, http.MethodPost, "/api/jobs/locate", token, LocateRequest{Error: "denied"}))
	assert.Equal(t, "jhb", resp.State.Jobs.City)
	assert.Equal(t, []string{"Could not get your location. Using Johannesburg instead."}, resp.Alerts)

	resp = decodeAction(t, call(t, h, http.MethodPost, "/api/jobs/city", token, CityRequest{City: "pta"}))
	assert.Equal(t, "pta", resp.State.Jobs.City)
}

func TestSections(t *testing.T) {
	h := newTestServer(t, nil).Handler()
	token := createSession(t, h, nil).Token

	resp := decodeAction(t, call(t, h, http.MethodPost, "/api/view/voice", token, nil))
	assert.Equal(t, types.SectionVoice, resp.State.Section)

	decodeError(t, call(t, h, http.MethodPost, "/api/view/settings", token, nil), http.StatusBadRequest)

	resp = decodeAction(t, call(t, h, http.MethodPost, "/api/hero/select/2", token, nil))
	assert.Equal(t, 2, resp.State.Hero.Index)
	decodeError(t, call(t, h, http.MethodPost, "/api/hero/select/7", token, nil), http.StatusBadRequest)
}

func TestVoiceTurn(t *testing.T) {
	h := newTestServer(t, nil).Handler()
	token := createSession(t, h, nil).Token

	decodeAction(t, call(t, h, http.MethodPost, "/api/voice/language", token, VoiceLanguageRequest{Language: "zu"}))

	resp := decodeAction(t, call(t, h, http.MethodPost, "/api/voice/toggle", token, nil))
	require.Len(t, resp.Commands, 1)
	assert.Equal(t, voice.CommandStart, resp.Commands[0].Type)
	assert.Equal(t, "zu-ZA", resp.Commands[0].Locale)

	decodeAction(t, call(t, h, http.MethodPost, "/api/voice/events", token, VoiceEventRequest{Type: VoiceEventStart}))
	decodeAction(t, call(t, h, http.MethodPost, "/api/voice/events", token, VoiceEventRequest{Type: VoiceEventResult, Segments: []string{"I sell", "vetkoek"}}))

	resp = decodeAction(t, call(t, h, http.MethodPost, "/api/voice/events", token, VoiceEventRequest{Type: VoiceEventEnd}))
	assert.Equal(t, "s-1", resp.State.Voice.SessionID)
	assert.Equal(t, voice.StateSpeaking, resp.State.Voice.State)
	require.Len(t, resp.State.Voice.Log, 2)
	assert.Equal(t, "You said I sell vetkoek", resp.State.Voice.Log[1].Text)
	require.Len(t, resp.Commands, 1)
	assert.Equal(t, voice.CommandSpeak, resp.Commands[0].Type)

	decodeError(t, call(t, h, http.MethodPost, "/api/voice/events", token, VoiceEventRequest{Type: "explode"}), http.StatusBadRequest)
}

func TestVoiceUnsupported(t *testing.T) {
	h := newTestServer(t, nil).Handler()
	no := false
	token := createSession(t, h, CreateSessionRequest{SpeechRecognition: &no}).Token

	decodeError(t, call(t, h, http.MethodPost, "/api/voice/toggle", token, nil), http.StatusServiceUnavailable)
}

func TestSessionRestoreAndDelete(t *testing.T) {
	s := newTestServer(t, nil)
	h := s.Handler()
	token := createSession(t, h, nil).Token
	decodeAction(t, call(t, h, http.MethodPost, "/api/auth/guest", token, nil))

	s.sessions.closeAll()
	assert.Equal(t, 0, s.sessions.count())

	rec := call(t, h, http.MethodGet, "/api/state", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view app.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, auth.StepAuthenticated, view.Auth.Step, "auth state is restored from the store")
	assert.Equal(t, 1, s.sessions.count())

	assert.Equal(t, http.StatusNoContent, call(t, h, http.MethodDelete, "/api/sessions", token, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, call(t, h, http.MethodGet, "/api/state", token, nil).Code)
}

func TestSessionSweep(t *testing.T) {
	s := newTestServer(t, nil)
	createSession(t, s.Handler(), nil)

	s.sessions.now = func() time.Time { return time.Now().Add(DefaultSessionIdleTTL + time.Minute) }
	assert.Equal(t, 1, s.sessions.sweep())
	assert.Equal(t, 0, s.sessions.count())
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, &ratelimit.Config{
		Enabled:       true,
		DefaultLimit:  100,
		DefaultWindow: time.Minute,
		Rules:         []ratelimit.Rule{{Method: "POST", Path: "/api/sessions", Limit: 1, Window: time.Hour}},
	})
	h := s.Handler()
	createSession(t, h, nil)

	rec := call(t, h, http.MethodPost, "/api/sessions", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestEvents(t *testing.T) {
	s := newTestServer(t, nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()
	token := createSession(t, s.Handler(), nil).Token

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events?access_token="+token, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readEvent := func() app.View {
		var event, data string
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimRight(line, "\n")
			switch {
			case strings.HasPrefix(line, "event: "):
				event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			case line == "" && data != "":
				require.Equal(t, "state", event)
				var v app.View
				require.NoError(t, json.Unmarshal([]byte(data), &v))
				return v
			}
		}
	}

	assert.Equal(t, types.SectionHero, readEvent().Section)

	decodeAction(t, call(t, s.Handler(), http.MethodPost, "/api/view/voice", token, nil))
	found := false
	for i := 0; i < 5 && !found; i++ {
		found = readEvent().Section == types.SectionVoice
	}
	assert.True(t, found)
}
