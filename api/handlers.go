package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fernandosena/bot-whatsapp/models"
	"github.com/fernandosena/bot-whatsapp/utils"
	"github.com/fernandosena/bot-whatsapp/whatsapp"
)

// StateReader provides connection status snapshots
type StateReader interface {
	Snapshot() models.StatusResponse
	PairingCode() (string, bool)
}

// VoiceSender executes a single voice-note delivery
type VoiceSender interface {
	SendVoice(ctx context.Context, req models.SendRequest) models.SendOutcome
}

// SessionController is the slice of the session manager the API drives
type SessionController interface {
	Logout(ctx context.Context) error
}

// DeliveryLog records and reads delivery history
type DeliveryLog interface {
	RecordDelivery(delivery *models.Delivery) error
	GetRecentDeliveries(limit int) ([]models.Delivery, error)
	GetDeliveriesByPhone(phone string, limit int) ([]models.Delivery, error)
	GetStats() (*models.DeliveryStats, error)
}

// Handler handles HTTP requests
type Handler struct {
	state       StateReader
	sender      VoiceSender
	session     SessionController
	deliveryLog DeliveryLog
	uploadDir   string
	maxUploadMB int
}

// NewHandler creates a new API handler
func NewHandler(state StateReader, sender VoiceSender, session SessionController, deliveryLog DeliveryLog, uploadDir string, maxUploadMB int) *Handler {
	return &Handler{
		state:       state,
		sender:      sender,
		session:     session,
		deliveryLog: deliveryLog,
		uploadDir:   uploadDir,
		maxUploadMB: maxUploadMB,
	}
}

// HandleRoot serves the service descriptor
func (h *Handler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	writeJSON(w, http.StatusOK, models.ServiceInfo{
		Service: "WhatsApp PTT Service",
		Version: "1.0.0",
		Status:  "running",
		Endpoints: map[string]string{
			"status":     "GET /status",
			"qr":         "GET /qr",
			"sendPTT":    "POST /send-ptt",
			"logout":     "POST /logout",
			"deliveries": "GET /deliveries",
			"stats":      "GET /stats",
		},
	})
}

// HandleStatus serves the current connection snapshot
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, h.state.Snapshot())
}

// HandleQR serves the current unconsumed pairing code
func (h *Handler) HandleQR(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	code, ok := h.state.PairingCode()
	if !ok {
		writeJSON(w, http.StatusNotFound, models.QRResponse{
			Success: false,
			Message: "Nenhum QR Code disponível. WhatsApp pode já estar conectado ou aguardando conexão.",
		})
		return
	}

	resp := models.QRResponse{Success: true, QRCode: code}
	if png, err := whatsapp.QRCodePNGBase64(code); err == nil {
		resp.QRCodePNG = png
	} else {
		utils.Logger.Warn("Failed to render QR PNG", "error", err)
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleSendPTT accepts a multipart voice-note request and delegates it
// to the delivery gateway. The stored upload is owned by the gateway
// from the moment SendVoice is called, whatever the outcome.
func (h *Handler) HandleSendPTT(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	maxBytes := int64(h.maxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, models.SendPTTResponse{
			Success: false,
			Error:   "Requisição multipart inválida",
		})
		return
	}

	phone := r.FormValue("phone")
	name := r.FormValue("name")

	audioPath, fileName, err := h.saveUpload(r)
	if err != nil {
		utils.Logger.Debug("No audio file in request", "error", err)
	}

	outcome := h.sender.SendVoice(r.Context(), models.SendRequest{
		Phone:     phone,
		Name:      name,
		AudioPath: audioPath,
	})

	h.recordOutcome(outcome, fileName)

	if !outcome.Success {
		writeJSON(w, statusForError(outcome.Err), models.SendPTTResponse{
			Success: false,
			Error:   outcome.Err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, models.SendPTTResponse{
		Success:   true,
		Phone:     outcome.Phone,
		Empresa:   outcome.Name,
		Timestamp: outcome.Timestamp.UTC().Format(time.RFC3339),
	})
}

// HandleLogout terminates the session and wipes stored credentials
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := h.session.Logout(r.Context()); err != nil {
		utils.Logger.Error("Logout failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, models.LogoutResponse{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, models.LogoutResponse{
		Success: true,
		Message: "Logout realizado com sucesso",
	})
}

// HandleDeliveries serves recent delivery history
func (h *Handler) HandleDeliveries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	var deliveries []models.Delivery
	var err error
	if phone := r.URL.Query().Get("phone"); phone != "" {
		deliveries, err = h.deliveryLog.GetDeliveriesByPhone(phone, limit)
	} else {
		deliveries, err = h.deliveryLog.GetRecentDeliveries(limit)
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.LogoutResponse{
			Success: false,
			Error:   fmt.Sprintf("Failed to get deliveries: %v", err),
		})
		return
	}

	writeJSON(w, http.StatusOK, deliveries)
}

// HandleStats serves delivery counters
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats, err := h.deliveryLog.GetStats()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.LogoutResponse{
			Success: false,
			Error:   fmt.Sprintf("Failed to get stats: %v", err),
		})
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// saveUpload stores the multipart audio field under the upload dir with
// a unique name, mirroring how the web backend expects temp files laid out
func (h *Handler) saveUpload(r *http.Request) (string, string, error) {
	file, header, err := r.FormFile("audio")
	if err != nil {
		return "", "", err
	}
	defer file.Close()

	if err := os.MkdirAll(h.uploadDir, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	name := fmt.Sprintf("audio-%d-%d%s", time.Now().UnixMilli(), rand.Intn(1_000_000_000), filepath.Ext(header.Filename))
	dst := filepath.Join(h.uploadDir, name)

	out, err := os.Create(dst)
	if err != nil {
		return "", "", fmt.Errorf("failed to store upload: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		os.Remove(dst)
		return "", "", fmt.Errorf("failed to store upload: %w", err)
	}

	return dst, header.Filename, nil
}

// recordOutcome appends the attempt to the delivery log, best-effort
func (h *Handler) recordOutcome(outcome models.SendOutcome, fileName string) {
	if h.deliveryLog == nil {
		return
	}

	delivery := &models.Delivery{
		Phone:      outcome.Phone,
		JID:        whatsapp.FormatJID(outcome.Phone).String(),
		Name:       outcome.Name,
		FileName:   fileName,
		Transcoded: outcome.Transcoded,
		Success:    outcome.Success,
		Timestamp:  outcome.Timestamp,
	}
	if outcome.Err != nil {
		delivery.Error = outcome.Err.Error()
	}

	if err := h.deliveryLog.RecordDelivery(delivery); err != nil {
		utils.Logger.Warn("Failed to record delivery", "error", err)
	}
}

// statusForError maps the gateway error taxonomy onto HTTP status codes
func statusForError(err error) int {
	var invalid *whatsapp.InvalidRequestError
	if errors.Is(err, whatsapp.ErrNotConnected) || errors.As(err, &invalid) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		utils.Logger.Error("Failed to encode response", "error", err)
	}
}
