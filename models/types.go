package models

import "time"

// ServiceInfo describes the service on the root endpoint
type ServiceInfo struct {
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Status    string            `json:"status"`
	Endpoints map[string]string `json:"endpoints"`
}

// StatusResponse is the connection status snapshot returned by /status
type StatusResponse struct {
	Connected   bool    `json:"connected"`
	PhoneNumber *string `json:"phoneNumber"`
	HasQR       bool    `json:"hasQR"`
}

// QRResponse is the pairing code response returned by /qr
type QRResponse struct {
	Success   bool   `json:"success"`
	QRCode    string `json:"qrCode,omitempty"`
	QRCodePNG string `json:"qrCodePng,omitempty"` // Base64 encoded PNG image
	Message   string `json:"message,omitempty"`
}

// SendRequest is a single outbound voice-note intent
type SendRequest struct {
	Phone     string // raw phone string, normalized by the gateway
	Name      string // optional contact/company display name
	AudioPath string // temporary payload file, owned by the gateway
}

// SendOutcome is the structured result of one delivery attempt.
// Err is nil on success; on failure it carries one of the gateway's
// sentinel error kinds or the wrapped transport error.
type SendOutcome struct {
	Success    bool
	Phone      string
	Name       string
	Transcoded bool
	Timestamp  time.Time
	Err        error
}

// SendPTTResponse is the wire form of a SendOutcome on /send-ptt
type SendPTTResponse struct {
	Success   bool   `json:"success"`
	Phone     string `json:"phone,omitempty"`
	Empresa   string `json:"empresa"`
	Timestamp string `json:"timestamp,omitempty"`
	Error     string `json:"error,omitempty"`
}

// LogoutResponse is returned by /logout
type LogoutResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}
