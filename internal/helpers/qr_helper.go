package helpers

import (
	"encoding/base64"
	"fmt"

	"github.com/skip2/go-qrcode"
)

const qrSize = 300

// QRCodeDataURL encodes content as a PNG QR image wrapped in a data URL, the
// form the ticket pages embed directly in an <img> tag.
func QRCodeDataURL(content string) (string, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, qrSize)
	if err != nil {
		return "", fmt.Errorf("encode qr code: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
