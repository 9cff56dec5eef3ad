// Package media converts uploaded audio into the Opus/OGG profile
// WhatsApp expects for voice notes.
package media

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/fernandosena/bot-whatsapp/utils"
)

// Result reports where the payload ended up after a transcode attempt.
// When Transcoded is false the original file is untouched and Path still
// points at it; no new file was created.
type Result struct {
	Path       string
	Transcoded bool
}

// Transcoder runs an external encoder to produce voice-note audio
type Transcoder struct {
	encoderPath string
}

// NewTranscoder creates a transcoder using the given ffmpeg binary
func NewTranscoder(encoderPath string) *Transcoder {
	return &Transcoder{encoderPath: encoderPath}
}

// ToOpusOgg converts the input file to a mono 48 kHz 32 kbps Opus stream
// in an OGG container. On success the input file is removed and Result
// points at the new file. Encoder failure is not an error: the original
// path is returned unchanged so delivery can proceed best-effort.
func (t *Transcoder) ToOpusOgg(ctx context.Context, inputPath string) Result {
	outputPath := t.outputPathFor(inputPath)

	args := []string{
		"-y",
		"-i", inputPath,
		"-c:a", "libopus",
		"-b:a", "32k",
		"-vbr", "on",
		"-compression_level", "10",
		"-ar", "48000",
		"-ac", "1",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, t.encoderPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		utils.Logger.Warn("Audio transcode failed, sending original file",
			"input", inputPath, "error", err, "stderr", stderr.String())
		return Result{Path: inputPath, Transcoded: false}
	}

	if err := os.Remove(inputPath); err != nil {
		utils.Logger.Warn("Failed to remove original audio file", "path", inputPath, "error", err)
	}

	utils.Logger.Info("Audio converted to OGG Opus", "output", outputPath)
	return Result{Path: outputPath, Transcoded: true}
}

// outputPathFor swaps the input extension for .ogg, avoiding a collision
// when the upload is already named .ogg
func (t *Transcoder) outputPathFor(inputPath string) string {
	outputPath := strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ".ogg"
	if outputPath == inputPath {
		outputPath = strings.TrimSuffix(inputPath, ".ogg") + ".opus.ogg"
	}
	return outputPath
}
