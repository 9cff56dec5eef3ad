package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"google.golang.org/protobuf/proto"

	"github.com/fernandosena/bot-whatsapp/media"
	"github.com/fernandosena/bot-whatsapp/models"
	"github.com/fernandosena/bot-whatsapp/utils"
)

const voiceNoteMimeType = "audio/ogg; codecs=opus"

// maxPayloadBytes is the upload ceiling for a single voice note
const maxPayloadBytes = 16 << 20

// ErrNotConnected is returned while the session is not authenticated.
// The message doubles as the user-facing API error.
var ErrNotConnected = errors.New("WhatsApp não está conectado. Faça login primeiro.")

// InvalidRequestError marks caller-fixable request-shape problems
type InvalidRequestError struct {
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return e.Reason
}

// VoiceTransport is the slice of the whatsmeow client the gateway needs
type VoiceTransport interface {
	Upload(ctx context.Context, plaintext []byte, appInfo whatsmeow.MediaType) (whatsmeow.UploadResponse, error)
	SendMessage(ctx context.Context, to types.JID, message *waE2E.Message, extra ...whatsmeow.SendRequestExtra) (whatsmeow.SendResponse, error)
}

// AudioTranscoder converts a payload file to the voice-note codec profile
type AudioTranscoder interface {
	ToOpusOgg(ctx context.Context, inputPath string) media.Result
}

// Gateway executes one voice-note delivery to completion with isolated
// failure: every error is captured in the outcome, never raised.
type Gateway struct {
	state      *ConnectionState
	transport  VoiceTransport
	transcoder AudioTranscoder
}

// NewGateway creates a delivery gateway reading connection state owned
// by the session manager
func NewGateway(state *ConnectionState, transport VoiceTransport, transcoder AudioTranscoder) *Gateway {
	return &Gateway{
		state:      state,
		transport:  transport,
		transcoder: transcoder,
	}
}

// SendVoice delivers the request's audio file as a PTT voice note.
// The temporary payload file is owned by the gateway and deleted on
// every exit path, including precondition failures.
func (g *Gateway) SendVoice(ctx context.Context, req models.SendRequest) models.SendOutcome {
	outcome := models.SendOutcome{
		Phone:     req.Phone,
		Name:      req.Name,
		Timestamp: time.Now(),
	}

	if !g.state.Connected() {
		outcome.Err = ErrNotConnected
		g.cleanup(req.AudioPath)
		return outcome
	}

	if strings.TrimSpace(req.Phone) == "" {
		outcome.Err = &InvalidRequestError{Reason: "Número de telefone é obrigatório"}
		g.cleanup(req.AudioPath)
		return outcome
	}

	info, err := os.Stat(req.AudioPath)
	if err != nil {
		outcome.Err = &InvalidRequestError{Reason: "Arquivo de áudio é obrigatório"}
		return outcome
	}
	if info.Size() > maxPayloadBytes {
		outcome.Err = &InvalidRequestError{Reason: "Arquivo de áudio excede o limite de 16 MB"}
		g.cleanup(req.AudioPath)
		return outcome
	}

	jid := FormatJID(req.Phone)
	utils.Logger.Info("Sending PTT", "phone", req.Phone, "name", req.Name, "jid", jid.String())

	// Best-effort transcode: on failure the original file is sent as-is
	result := g.transcoder.ToOpusOgg(ctx, req.AudioPath)
	outcome.Transcoded = result.Transcoded

	// The working file (transcoded or original) never outlives the request
	defer g.cleanup(result.Path)

	data, err := os.ReadFile(result.Path)
	if err != nil {
		outcome.Err = fmt.Errorf("failed to read audio payload: %w", err)
		return outcome
	}

	uploaded, err := g.transport.Upload(ctx, data, whatsmeow.MediaAudio)
	if err != nil {
		outcome.Err = fmt.Errorf("falha ao enviar áudio PTT: %w", err)
		return outcome
	}

	msg := &waE2E.Message{
		AudioMessage: &waE2E.AudioMessage{
			URL:           proto.String(uploaded.URL),
			DirectPath:    proto.String(uploaded.DirectPath),
			MediaKey:      uploaded.MediaKey,
			Mimetype:      proto.String(voiceNoteMimeType),
			FileEncSHA256: uploaded.FileEncSHA256,
			FileSHA256:    uploaded.FileSHA256,
			FileLength:    proto.Uint64(uploaded.FileLength),
			// PTT is what makes the receiving client render a playable
			// voice message instead of a file attachment
			PTT: proto.Bool(true),
		},
	}

	if _, err := g.transport.SendMessage(ctx, jid, msg); err != nil {
		outcome.Err = fmt.Errorf("falha ao enviar áudio PTT: %w", err)
		return outcome
	}

	outcome.Success = true
	utils.Logger.Info("PTT sent", "phone", req.Phone, "transcoded", result.Transcoded,
		"file", filepath.Base(result.Path))
	return outcome
}

// cleanup removes a temporary payload file, tolerating it being gone
func (g *Gateway) cleanup(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		utils.Logger.Warn("Failed to remove temporary file", "path", path, "error", err)
	}
}
