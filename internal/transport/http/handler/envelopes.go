package handler

import (
	"encoding/json"
	"net/http"
)

const maxBodyBytes = 1 << 16

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// OTPRequestEnvelope answers a successful OTP request.
type OTPRequestEnvelope struct {
	UserID string `json:"userId"`
}

// SuccessEnvelope answers a successful sign-in.
type SuccessEnvelope struct {
	Success bool   `json:"success"`
	UserID  string `json:"userId,omitempty"`
}

// SessionEnvelope describes the current session claims.
type SessionEnvelope struct {
	UserID      string `json:"userId"`
	GithubURL   string `json:"githubUrl,omitempty"`
	LinkedinURL string `json:"linkedinUrl,omitempty"`
	ExpiresAt   int64  `json:"expiresAt"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
}
