// Package qr renders URLs as QR code images for embedding in API responses.
package qr

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

const imageSize = 256

// DataURI encodes url as a PNG QR code and returns it as a data URI
// suitable for direct use in an <img> tag.
func DataURI(url string) (string, error) {
	png, err := qrcode.Encode(url, qrcode.Low, imageSize)
	if err != nil {
		return "", fmt.Errorf("encoding qr code: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
