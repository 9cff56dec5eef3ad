package whatsapp

import (
	"sync"

	"github.com/fernandosena/bot-whatsapp/models"
)

// ConnectionState is the single source of truth for transport status.
// It is written only by the session Manager's event loop; the delivery
// gateway and the API read snapshots.
type ConnectionState struct {
	mu          sync.RWMutex
	connected   bool
	pairingCode string
	phoneNumber string
}

// NewConnectionState creates a state starting disconnected
func NewConnectionState() *ConnectionState {
	return &ConnectionState{}
}

// setPairingCode stores the latest pairing code. Codes are last-write-wins:
// an earlier code becomes invalid the instant a newer one arrives.
func (s *ConnectionState) setPairingCode(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pairingCode = code
}

// setConnected marks the session authenticated. The pairing code is
// cleared here and nowhere else on the connect path, keeping the
// "code cleared exactly when connected" invariant in one place.
func (s *ConnectionState) setConnected(phoneNumber string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	s.pairingCode = ""
	s.phoneNumber = phoneNumber
}

// setDisconnected marks the transport closed, dropping the device identity
func (s *ConnectionState) setDisconnected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	s.phoneNumber = ""
}

// reset returns to the initial disconnected state (logout path)
func (s *ConnectionState) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	s.pairingCode = ""
	s.phoneNumber = ""
}

// Connected reports whether the session is currently authenticated
func (s *ConnectionState) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// PairingCode returns the current unconsumed pairing code, if any
func (s *ConnectionState) PairingCode() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pairingCode, s.pairingCode != ""
}

// Snapshot returns the status view served by /status
func (s *ConnectionState) Snapshot() models.StatusResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resp := models.StatusResponse{
		Connected: s.connected,
		HasQR:     s.pairingCode != "",
	}
	if s.phoneNumber != "" {
		phone := s.phoneNumber
		resp.PhoneNumber = &phone
	}
	return resp
}
