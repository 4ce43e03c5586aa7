// Package images normalizes uploaded profile photos.
package images

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
)

// Avatar frame dimensions in pixels.
const (
	AvatarWidth  = 250
	AvatarHeight = 250
)

// NormalizeAvatar decodes an uploaded JPEG or PNG image, scales it to
// the fixed avatar frame, and re-encodes it as PNG.
func NormalizeAvatar(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	resized := imaging.Resize(img, AvatarWidth, AvatarHeight, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
