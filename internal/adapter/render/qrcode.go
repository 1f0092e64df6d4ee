package render

import (
	"fmt"

	"github.com/skip2/go-qrcode"
	"qrmatch/internal/domain"
)

// QRRenderer encodes text as a PNG QR code.
type QRRenderer struct {
	size  int
	level qrcode.RecoveryLevel
}

func NewQRRenderer(size int, recovery string) (*QRRenderer, error) {
	if size <= 0 {
		size = 256
	}
	level, err := parseRecoveryLevel(recovery)
	if err != nil {
		return nil, err
	}
	return &QRRenderer{size: size, level: level}, nil
}

func parseRecoveryLevel(s string) (qrcode.RecoveryLevel, error) {
	switch s {
	case "low":
		return qrcode.Low, nil
	case "", "medium":
		return qrcode.Medium, nil
	case "high":
		return qrcode.High, nil
	case "highest":
		return qrcode.Highest, nil
	default:
		return 0, fmt.Errorf("unknown QR recovery level: %s", s)
	}
}

// Render fails with domain.ErrRenderFailed when the text does not fit in the
// largest QR version at the configured recovery level.
func (r *QRRenderer) Render(text string) ([]byte, error) {
	png, err := qrcode.Encode(text, r.level, r.size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRenderFailed, err)
	}
	return png, nil
}

func (r *QRRenderer) ContentType() string {
	return "image/png"
}
