package whatsapp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"

	"github.com/fernandosena/bot-whatsapp/media"
	"github.com/fernandosena/bot-whatsapp/models"
)

type fakeTransport struct {
	uploadCalled bool
	uploaded     []byte
	sendCalled   bool
	sentTo       types.JID
	sentMsg      *waE2E.Message
	uploadErr    error
	sendErr      error
}

func (f *fakeTransport) Upload(ctx context.Context, plaintext []byte, appInfo whatsmeow.MediaType) (whatsmeow.UploadResponse, error) {
	f.uploadCalled = true
	f.uploaded = plaintext
	if f.uploadErr != nil {
		return whatsmeow.UploadResponse{}, f.uploadErr
	}
	return whatsmeow.UploadResponse{
		URL:           "https://mmg.whatsapp.net/test",
		DirectPath:    "/v/t62.7117-24/test",
		MediaKey:      []byte("media-key"),
		FileEncSHA256: []byte("enc-sha"),
		FileSHA256:    []byte("plain-sha"),
		FileLength:    uint64(len(plaintext)),
	}, nil
}

func (f *fakeTransport) SendMessage(ctx context.Context, to types.JID, message *waE2E.Message, extra ...whatsmeow.SendRequestExtra) (whatsmeow.SendResponse, error) {
	f.sendCalled = true
	f.sentTo = to
	f.sentMsg = message
	if f.sendErr != nil {
		return whatsmeow.SendResponse{}, f.sendErr
	}
	return whatsmeow.SendResponse{}, nil
}

// fakeTranscoder mimics the transcoder contract: on success the input is
// replaced by a new .ogg file, on failure the original is left untouched.
type fakeTranscoder struct {
	called bool
	fail   bool
}

func (f *fakeTranscoder) ToOpusOgg(ctx context.Context, inputPath string) media.Result {
	f.called = true
	if f.fail {
		return media.Result{Path: inputPath, Transcoded: false}
	}
	out := strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ".ogg"
	if err := os.WriteFile(out, []byte("ogg-data"), 0644); err != nil {
		return media.Result{Path: inputPath, Transcoded: false}
	}
	os.Remove(inputPath)
	return media.Result{Path: out, Transcoded: true}
}

func writeTempAudio(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("wav-data"), 0644))
	return path
}

func TestSendVoiceNotConnected(t *testing.T) {
	state := NewConnectionState()
	transport := &fakeTransport{}
	transcoder := &fakeTranscoder{}
	gw := NewGateway(state, transport, transcoder)
	audioPath := writeTempAudio(t, "voice.wav")

	outcome := gw.SendVoice(context.Background(), models.SendRequest{
		Phone:     "(11) 98765-4321",
		AudioPath: audioPath,
	})

	assert.False(t, outcome.Success)
	assert.True(t, errors.Is(outcome.Err, ErrNotConnected))
	// No partial work: neither transcode nor upload happened
	assert.False(t, transcoder.called)
	assert.False(t, transport.uploadCalled)
	// The stored upload is still cleaned up
	assert.NoFileExists(t, audioPath)
}

func TestSendVoiceMissingPhone(t *testing.T) {
	state := NewConnectionState()
	state.setConnected("5511900000000")
	gw := NewGateway(state, &fakeTransport{}, &fakeTranscoder{})
	audioPath := writeTempAudio(t, "voice.wav")

	outcome := gw.SendVoice(context.Background(), models.SendRequest{
		Phone:     "   ",
		AudioPath: audioPath,
	})

	assert.False(t, outcome.Success)
	var invalid *InvalidRequestError
	require.True(t, errors.As(outcome.Err, &invalid))
	assert.Equal(t, "Número de telefone é obrigatório", invalid.Reason)
	assert.NoFileExists(t, audioPath)
}

func TestSendVoiceMissingAudio(t *testing.T) {
	state := NewConnectionState()
	state.setConnected("5511900000000")
	gw := NewGateway(state, &fakeTransport{}, &fakeTranscoder{})

	outcome := gw.SendVoice(context.Background(), models.SendRequest{
		Phone:     "11987654321",
		AudioPath: filepath.Join(t.TempDir(), "missing.wav"),
	})

	assert.False(t, outcome.Success)
	var invalid *InvalidRequestError
	require.True(t, errors.As(outcome.Err, &invalid))
	assert.Equal(t, "Arquivo de áudio é obrigatório", invalid.Reason)
}

func TestSendVoicePayloadTooLarge(t *testing.T) {
	state := NewConnectionState()
	state.setConnected("5511900000000")
	transcoder := &fakeTranscoder{}
	gw := NewGateway(state, &fakeTransport{}, transcoder)

	audioPath := filepath.Join(t.TempDir(), "big.wav")
	require.NoError(t, os.WriteFile(audioPath, make([]byte, maxPayloadBytes+1), 0644))

	outcome := gw.SendVoice(context.Background(), models.SendRequest{
		Phone:     "11987654321",
		AudioPath: audioPath,
	})

	assert.False(t, outcome.Success)
	var invalid *InvalidRequestError
	require.True(t, errors.As(outcome.Err, &invalid))
	assert.False(t, transcoder.called)
	assert.NoFileExists(t, audioPath)
}

func TestSendVoiceSuccess(t *testing.T) {
	state := NewConnectionState()
	state.setConnected("5511900000000")
	transport := &fakeTransport{}
	transcoder := &fakeTranscoder{}
	gw := NewGateway(state, transport, transcoder)
	audioPath := writeTempAudio(t, "voice.wav")

	outcome := gw.SendVoice(context.Background(), models.SendRequest{
		Phone:     "(11) 98765-4321",
		Name:      "Empresa Teste",
		AudioPath: audioPath,
	})

	require.Nil(t, outcome.Err)
	assert.True(t, outcome.Success)
	assert.True(t, outcome.Transcoded)
	assert.Equal(t, "(11) 98765-4321", outcome.Phone)
	assert.Equal(t, "Empresa Teste", outcome.Name)

	require.True(t, transport.sendCalled)
	assert.Equal(t, "5511987654321", transport.sentTo.User)
	assert.Equal(t, types.DefaultUserServer, transport.sentTo.Server)

	audio := transport.sentMsg.GetAudioMessage()
	require.NotNil(t, audio)
	assert.True(t, audio.GetPTT())
	assert.Equal(t, "audio/ogg; codecs=opus", audio.GetMimetype())
	assert.Equal(t, []byte("ogg-data"), transport.uploaded)

	// Both the original and the transcoded file are gone
	assert.NoFileExists(t, audioPath)
	assert.NoFileExists(t, strings.TrimSuffix(audioPath, ".wav")+".ogg")
}

func TestSendVoiceTranscodeFallback(t *testing.T) {
	state := NewConnectionState()
	state.setConnected("5511900000000")
	transport := &fakeTransport{}
	gw := NewGateway(state, transport, &fakeTranscoder{fail: true})
	audioPath := writeTempAudio(t, "voice.wav")

	outcome := gw.SendVoice(context.Background(), models.SendRequest{
		Phone:     "11987654321",
		AudioPath: audioPath,
	})

	// Encoder failure degrades to sending the original, still flagged PTT
	assert.True(t, outcome.Success)
	assert.False(t, outcome.Transcoded)
	require.True(t, transport.sendCalled)
	assert.True(t, transport.sentMsg.GetAudioMessage().GetPTT())
	assert.Equal(t, []byte("wav-data"), transport.uploaded)
	assert.NoFileExists(t, audioPath)
}

func TestSendVoiceSendFailure(t *testing.T) {
	state := NewConnectionState()
	state.setConnected("5511900000000")
	transport := &fakeTransport{sendErr: errors.New("stream closed")}
	gw := NewGateway(state, transport, &fakeTranscoder{})
	audioPath := writeTempAudio(t, "voice.wav")

	outcome := gw.SendVoice(context.Background(), models.SendRequest{
		Phone:     "11987654321",
		AudioPath: audioPath,
	})

	assert.False(t, outcome.Success)
	require.Error(t, outcome.Err)
	assert.Contains(t, outcome.Err.Error(), "stream closed")
	// Cleanup still happens on the failure path
	assert.NoFileExists(t, audioPath)
	assert.NoFileExists(t, strings.TrimSuffix(audioPath, ".wav")+".ogg")
}

func TestSendVoiceUploadFailure(t *testing.T) {
	state := NewConnectionState()
	state.setConnected("5511900000000")
	transport := &fakeTransport{uploadErr: errors.New("upload rejected")}
	gw := NewGateway(state, transport, &fakeTranscoder{})
	audioPath := writeTempAudio(t, "voice.wav")

	outcome := gw.SendVoice(context.Background(), models.SendRequest{
		Phone:     "11987654321",
		AudioPath: audioPath,
	})

	assert.False(t, outcome.Success)
	assert.False(t, transport.sendCalled)
	assert.NoFileExists(t, audioPath)
	assert.NoFileExists(t, strings.TrimSuffix(audioPath, ".wav")+".ogg")
}
