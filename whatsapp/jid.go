package whatsapp

import (
	"strings"

	"go.mau.fi/whatsmeow/types"
)

// FormatJID maps a loosely formatted phone number to its WhatsApp JID.
// Every non-digit is stripped; 11-digit local numbers get the Brazilian
// country code prepended. No length validation beyond that: short or
// otherwise malformed numbers pass through and the transport rejects
// them at send time.
func FormatJID(raw string) types.JID {
	digits := stripNonDigits(raw)

	if len(digits) == 11 && !strings.HasPrefix(digits, "55") {
		digits = "55" + digits
	}

	return types.JID{
		User:   digits,
		Server: types.DefaultUserServer,
	}
}

func stripNonDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
