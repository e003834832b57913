// Package backend is the JSON HTTP client for the remote profile, CV, chat and
// phone-verification service.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jonathan/spanisami/internal/types"
)

// Endpoint paths relative to the base URL.
const (
	EndpointBuildProfile = "/build_profile"
	EndpointGenerateCV   = "/generate_cv"
	EndpointChat         = "/chat"
	EndpointRequestCode  = "/request_code"
	EndpointVerifyCode   = "/verify_code"
)

// Client talks to the backend. It configures no timeout and never retries;
// callers bound a request only through its context.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a backend client for baseURL. A nil httpClient uses a default client.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Profile is the result of CreateProfile.
type Profile struct {
	ProfileID string
	Profile   string // JSON-encoded profile, as sent by the backend
}

// CreateProfile asks the backend to extract a structured profile from free text.
func (c *Client) CreateProfile(ctx context.Context, rawText, preferredLanguage, profileID, phone string) (*Profile, error) {
	req := types.BuildProfileRequest{
		RawText:           rawText,
		PreferredLanguage: preferredLanguage,
		ProfileID:         profileID,
		Phone:             phone,
	}
	var resp types.BuildProfileResponse
	if err := c.post(ctx, EndpointBuildProfile, req, &resp); err != nil {
		return nil, err
	}
	return &Profile{ProfileID: resp.ProfileID, Profile: resp.Profile}, nil
}

// GenerateCV drafts CV text for a profile. An empty string means the backend
// produced no content; it is not an error.
func (c *Client) GenerateCV(ctx context.Context, profileID string, profile any, targetRole string) (string, error) {
	req := types.GenerateCVRequest{
		ProfileID:  profileID,
		Profile:    profile,
		TargetRole: targetRole,
	}
	var resp types.GenerateCVResponse
	if err := c.post(ctx, EndpointGenerateCV, req, &resp); err != nil {
		return "", err
	}
	return resp.CV, nil
}

// RequestVerificationCode starts phone verification. The returned code is
// non-empty only when the backend fell back from SMS delivery.
func (c *Client) RequestVerificationCode(ctx context.Context, phone string) (string, error) {
	var resp types.RequestCodeResponse
	if err := c.post(ctx, EndpointRequestCode, types.RequestCodeRequest{Phone: phone}, &resp); err != nil {
		return "", err
	}
	return resp.Code, nil
}

// VerifyCode checks a phone verification code. A rejected code (non-2xx
// status) returns an error matching ErrCodeMismatch; transport failures and
// malformed replies do not.
func (c *Client) VerifyCode(ctx context.Context, phone, code string) (string, error) {
	var resp types.VerifyCodeResponse
	err := c.post(ctx, EndpointVerifyCode, types.VerifyCodeRequest{Phone: phone, Code: code}, &resp)
	if err != nil {
		var be *Error
		if errors.As(err, &be) && !be.Transport && (be.Status < 200 || be.Status > 299) {
			return "", fmt.Errorf("%w: %v", ErrCodeMismatch, err)
		}
		return "", err
	}
	return resp.ProfileID, nil
}

// ChatReply is the result of one chat turn.
type ChatReply struct {
	SessionID string
	Reply     string
}

// Chat sends one conversational turn. sessionID is sent as null when empty.
func (c *Client) Chat(ctx context.Context, sessionID, message, language, mode string) (*ChatReply, error) {
	req := types.ChatRequest{
		Message:  message,
		Language: language,
		Mode:     mode,
	}
	if sessionID != "" {
		req.SessionID = &sessionID
	}
	var resp types.ChatResponse
	if err := c.post(ctx, EndpointChat, req, &resp); err != nil {
		return nil, err
	}
	return &ChatReply{SessionID: resp.SessionID, Reply: resp.Reply}, nil
}

// post sends body as JSON and decodes a successful reply into out.
func (c *Client) post(ctx context.Context, endpoint string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("backend %s: marshal request: %w", endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("backend %s: build request: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Endpoint: endpoint, Transport: true, Cause: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Endpoint: endpoint, Status: resp.StatusCode, Transport: true, Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &e)
		return &Error{Endpoint: endpoint, Status: resp.StatusCode, Message: e.Error}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Endpoint: endpoint, Status: resp.StatusCode, Message: "malformed response", Cause: err}
	}
	return nil
}
