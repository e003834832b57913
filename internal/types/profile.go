package types

// BuildProfileRequest is the body of POST /build_profile.
type BuildProfileRequest struct {
	RawText           string `json:"raw_text"`
	PreferredLanguage string `json:"preferred_language"`
	ProfileID         string `json:"profile_id,omitempty"`
	Phone             string `json:"phone,omitempty"`
}

// BuildProfileResponse is the reply of POST /build_profile.
// Profile is the backend's JSON-encoded profile as a string.
type BuildProfileResponse struct {
	ProfileID string `json:"profile_id"`
	Profile   string `json:"profile"`
	Error     string `json:"error,omitempty"`
}

// GenerateCVRequest is the body of POST /generate_cv.
// Profile holds either the parsed profile map or the raw profile string.
type GenerateCVRequest struct {
	ProfileID  string `json:"profile_id,omitempty"`
	Profile    any    `json:"profile,omitempty"`
	TargetRole string `json:"target_role,omitempty"`
}

// GenerateCVResponse is the reply of POST /generate_cv.
type GenerateCVResponse struct {
	CV    string `json:"cv"`
	Error string `json:"error,omitempty"`
}

// ChatRequest is the body of POST /chat. SessionID is null until the backend assigns one.
type ChatRequest struct {
	SessionID *string `json:"session_id"`
	Message   string  `json:"message"`
	Language  string  `json:"language"`
	Mode      string  `json:"mode"`
}

// ChatResponse is the reply of POST /chat.
type ChatResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply,omitempty"`
	Error     string `json:"error,omitempty"`
}

// RequestCodeRequest is the body of POST /request_code.
type RequestCodeRequest struct {
	Phone string `json:"phone"`
}

// RequestCodeResponse is the reply of POST /request_code.
// Code is only present when the backend fell back from SMS delivery.
type RequestCodeResponse struct {
	Code  string `json:"code,omitempty"`
	Error string `json:"error,omitempty"`
}

// VerifyCodeRequest is the body of POST /verify_code.
type VerifyCodeRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

// VerifyCodeResponse is the reply of POST /verify_code.
type VerifyCodeResponse struct {
	ProfileID string `json:"profile_id,omitempty"`
	Error     string `json:"error,omitempty"`
}
