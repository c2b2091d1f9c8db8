package notify

import (
	"encoding/json"
	"fmt"

	"github.com/skip2/go-qrcode"
)

// QRPayload is the JSON encoded into a participant's QR code. Scanners read
// the secret and pair it with the color shown around the code.
type QRPayload struct {
	Secret        string `json:"secret"`
	EventID       string `json:"event_id"`
	ParticipantID string `json:"participant_id"`
}

// QRCodePNG renders the payload as a 256px PNG.
func QRCodePNG(p QRPayload) ([]byte, error) {
	content, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	png, err := qrcode.Encode(string(content), qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}
