package media

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fernandosena/bot-whatsapp/utils"
)

func TestMain(m *testing.M) {
	utils.Init("error")
	os.Exit(m.Run())
}

// writeStubEncoder creates a fake encoder that just creates its last
// argument (the output path), standing in for a successful ffmpeg run.
func writeStubEncoder(t *testing.T) string {
	t.Helper()
	script := filepath.Join(t.TempDir(), "ffmpeg-stub")
	content := "#!/bin/sh\neval \"out=\\${$#}\"\n: > \"$out\"\n"
	require.NoError(t, os.WriteFile(script, []byte(content), 0755))
	return script
}

func writeInput(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("raw-audio"), 0644))
	return path
}

func TestToOpusOggSuccess(t *testing.T) {
	tr := NewTranscoder(writeStubEncoder(t))
	input := writeInput(t, "voice.wav")

	result := tr.ToOpusOgg(context.Background(), input)

	assert.True(t, result.Transcoded)
	assert.Equal(t, ".ogg", filepath.Ext(result.Path))
	assert.FileExists(t, result.Path)
	// The original is consumed on success
	assert.NoFileExists(t, input)
}

func TestToOpusOggEncoderMissing(t *testing.T) {
	tr := NewTranscoder(filepath.Join(t.TempDir(), "no-such-encoder"))
	input := writeInput(t, "voice.wav")

	result := tr.ToOpusOgg(context.Background(), input)

	// Spawn failure falls back to the original file, untouched
	assert.False(t, result.Transcoded)
	assert.Equal(t, input, result.Path)
	assert.FileExists(t, input)
}

func TestToOpusOggEncoderFails(t *testing.T) {
	script := filepath.Join(t.TempDir(), "ffmpeg-fail")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\nexit 1\n"), 0755))
	tr := NewTranscoder(script)
	input := writeInput(t, "voice.wav")

	result := tr.ToOpusOgg(context.Background(), input)

	assert.False(t, result.Transcoded)
	assert.Equal(t, input, result.Path)
	assert.FileExists(t, input)
}

func TestOutputPathAvoidsCollision(t *testing.T) {
	tr := NewTranscoder("ffmpeg")

	assert.Equal(t, "/tmp/a.ogg", tr.outputPathFor("/tmp/a.wav"))
	assert.Equal(t, "/tmp/a.ogg", tr.outputPathFor("/tmp/a.mp3"))
	assert.Equal(t, "/tmp/a.opus.ogg", tr.outputPathFor("/tmp/a.ogg"))
	assert.Equal(t, "/tmp/noext.ogg", tr.outputPathFor("/tmp/noext"))
}
