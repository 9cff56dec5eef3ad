package whatsapp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mdp/qrterminal/v3"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"

	_ "github.com/mattn/go-sqlite3"

	"github.com/fernandosena/bot-whatsapp/utils"
)

type eventKind int

const (
	eventPairingCode eventKind = iota
	eventConnected
	eventDisconnected
	eventLoggedOut
)

// transportEvent is the internal form of a connection-lifecycle event.
// Funneling everything through one channel keeps state transitions
// serialized in a single loop.
type transportEvent struct {
	kind  eventKind
	code  string // pairing payload, eventPairingCode only
	phone string // device identity, eventConnected only
}

// Manager owns the single authenticated WhatsApp session for this process:
// credential persistence, pairing, reconnection and logout.
type Manager struct {
	state          *ConnectionState
	authDir        string
	reconnectDelay time.Duration

	container *sqlstore.Container
	client    *whatsmeow.Client

	events chan transportEvent
	ctx    context.Context
	cancel context.CancelFunc

	mu             sync.Mutex
	loggedOut      bool
	reconnectTimer *time.Timer
}

// NewManager creates a session manager persisting credentials under authDir
func NewManager(authDir string, reconnectDelay time.Duration) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		state:          NewConnectionState(),
		authDir:        authDir,
		reconnectDelay: reconnectDelay,
		events:         make(chan transportEvent, 16),
		ctx:            ctx,
		cancel:         cancel,
	}
}

// State returns the shared connection state (read-only for callers)
func (m *Manager) State() *ConnectionState {
	return m.state
}

// Client returns the underlying whatsmeow client. Valid after Start.
func (m *Manager) Client() *whatsmeow.Client {
	return m.client
}

// Start loads persisted credentials and opens the transport connection.
// An error here is fatal to the bootstrap; once connected, all later
// transport failures are absorbed by the reconnect policy.
func (m *Manager) Start(ctx context.Context) error {
	if err := os.MkdirAll(m.authDir, 0755); err != nil {
		return fmt.Errorf("failed to create auth directory: %w", err)
	}

	dbLog := waLog.Stdout("Database", "ERROR", true)
	dbPath := filepath.Join(m.authDir, "session.db")
	container, err := sqlstore.New(ctx, "sqlite3", fmt.Sprintf("file:%s?_foreign_keys=on", dbPath), dbLog)
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}
	m.container = container

	// Loads the existing session if one was paired before
	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		utils.Logger.Info("No existing device found, starting fresh pairing")
		deviceStore = container.NewDevice()
	}

	m.client = whatsmeow.NewClient(deviceStore, waLog.Noop)
	// Reconnection is our policy, driven by close events
	m.client.EnableAutoReconnect = false
	m.client.AddEventHandler(m.forwardTransportEvent)

	go m.run()

	if err := m.connect(); err != nil {
		return fmt.Errorf("initial WhatsApp connection failed: %w", err)
	}
	return nil
}

// connect opens the transport, arming the QR channel first when the
// device has never been paired
func (m *Manager) connect() error {
	if m.client.Store.ID == nil {
		qrChan, err := m.client.GetQRChannel(m.ctx)
		if err != nil {
			utils.Logger.Warn("Failed to open QR channel", "error", err)
		} else {
			go m.forwardPairingCodes(qrChan)
		}
	}
	return m.client.Connect()
}

// forwardPairingCodes converts QR channel items into pairing events
func (m *Manager) forwardPairingCodes(qrChan <-chan whatsmeow.QRChannelItem) {
	for evt := range qrChan {
		switch evt.Event {
		case "code":
			m.dispatch(transportEvent{kind: eventPairingCode, code: evt.Code})
		case "success":
			// The Connected event carries the transition
		default:
			utils.Logger.Debug("QR channel event", "event", evt.Event)
		}
	}
}

// forwardTransportEvent converts whatsmeow events into internal events
func (m *Manager) forwardTransportEvent(evt interface{}) {
	switch evt.(type) {
	case *events.Connected:
		phone := ""
		if id := m.client.Store.ID; id != nil {
			phone = id.User
		} else {
			utils.Logger.Error("Connected without a device identity")
		}
		m.dispatch(transportEvent{kind: eventConnected, phone: phone})
	case *events.Disconnected, *events.StreamReplaced:
		m.dispatch(transportEvent{kind: eventDisconnected})
	case *events.LoggedOut:
		m.dispatch(transportEvent{kind: eventLoggedOut})
	case *events.ConnectFailure:
		utils.Logger.Warn("WhatsApp connect failure", "event", evt)
	}
}

func (m *Manager) dispatch(evt transportEvent) {
	select {
	case m.events <- evt:
	case <-m.ctx.Done():
	}
}

// run serializes all state transitions onto one goroutine
func (m *Manager) run() {
	for {
		select {
		case <-m.ctx.Done():
			return
		case evt := <-m.events:
			m.handleEvent(evt)
		}
	}
}

// handleEvent is the single transition function of the session machine
func (m *Manager) handleEvent(evt transportEvent) {
	switch evt.kind {
	case eventPairingCode:
		// Last-write-wins: a new code invalidates the previous one
		m.state.setPairingCode(evt.code)
		utils.Logger.Info("New pairing code issued, scan it via /qr")
		qrterminal.GenerateHalfBlock(evt.code, qrterminal.H, os.Stdout)

	case eventConnected:
		m.stopReconnectTimer()
		m.state.setConnected(evt.phone)
		utils.Logger.Info("WhatsApp connected", "phone", evt.phone)

	case eventDisconnected:
		m.state.setDisconnected()
		if m.isLoggedOut() {
			return
		}
		utils.Logger.Warn("Connection closed, scheduling reconnect", "delay", m.reconnectDelay)
		m.scheduleReconnect()

	case eventLoggedOut:
		m.setLoggedOut()
		m.stopReconnectTimer()
		m.state.reset()
		utils.Logger.Warn("Device logged out, not reconnecting")
	}
}

// scheduleReconnect arms a one-shot reconnect attempt. There is no retry
// budget: every failed attempt or subsequent close re-arms the same
// policy until logout or shutdown cancels it.
func (m *Manager) scheduleReconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loggedOut {
		return
	}
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
	}
	m.reconnectTimer = time.AfterFunc(m.reconnectDelay, m.reconnect)
}

func (m *Manager) reconnect() {
	select {
	case <-m.ctx.Done():
		return
	default:
	}
	if m.isLoggedOut() {
		return
	}

	utils.Logger.Info("Reconnecting to WhatsApp")
	if err := m.connect(); err != nil {
		utils.Logger.Warn("Reconnect attempt failed", "error", err)
		m.scheduleReconnect()
	}
}

func (m *Manager) stopReconnectTimer() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
}

func (m *Manager) reconnectPending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reconnectTimer != nil
}

func (m *Manager) isLoggedOut() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loggedOut
}

func (m *Manager) setLoggedOut() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loggedOut = true
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
}

// Logout terminates the session, wipes the credential store and leaves
// the machine in its terminal logged-out state. Idempotent when the
// device is already unpaired; a fresh login requires a process restart.
func (m *Manager) Logout(ctx context.Context) error {
	// Block any pending reconnect from racing the wipe
	m.setLoggedOut()

	if m.client != nil && m.client.Store.ID != nil {
		if err := m.client.Logout(ctx); err != nil {
			return fmt.Errorf("failed to log out: %w", err)
		}
	}
	if m.client != nil {
		m.client.Disconnect()
	}
	m.state.reset()

	if m.container != nil {
		if err := m.container.Close(); err != nil {
			utils.Logger.Warn("Failed to close credential store", "error", err)
		}
	}
	if err := os.RemoveAll(m.authDir); err != nil {
		utils.Logger.Warn("Failed to remove auth directory", "path", m.authDir, "error", err)
	}

	utils.Logger.Info("Logout completed, credential store wiped")
	return nil
}

// Shutdown disconnects the session and cancels any pending reconnect
func (m *Manager) Shutdown() {
	m.cancel()
	m.stopReconnectTimer()
	if m.client != nil {
		m.client.Disconnect()
	}
	if m.container != nil {
		_ = m.container.Close()
	}
}
