package whatsapp

import (
	"encoding/base64"
	"fmt"

	"github.com/skip2/go-qrcode"
)

// QRCodePNGBase64 renders a pairing code as a base64-encoded PNG so the
// web backend can embed it directly in an <img> tag.
func QRCodePNGBase64(code string) (string, error) {
	qr, err := qrcode.New(code, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("failed to generate QR code: %w", err)
	}

	pngData, err := qr.PNG(256)
	if err != nil {
		return "", fmt.Errorf("failed to render QR code PNG: %w", err)
	}

	return base64.StdEncoding.EncodeToString(pngData), nil
}
