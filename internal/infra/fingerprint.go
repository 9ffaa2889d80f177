package infra

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// FrameGrabber supplies raw screen bytes, already downscaled by the given
// factor. A nil grabber or empty frame yields an empty fingerprint.
type FrameGrabber func(downscale int) ([]byte, error)

// Fingerprinter hashes screen frames with BLAKE3 for cheap change
// detection. Only the digest ever leaves this type; frame bytes are not
// retained.
type Fingerprinter struct {
	grab FrameGrabber
}

// NewFingerprinter creates a fingerprinter over the given frame grabber.
func NewFingerprinter(grab FrameGrabber) *Fingerprinter {
	return &Fingerprinter{grab: grab}
}

// Fingerprint returns the hex digest of the current frame, or "" when no
// frame is available.
func (f *Fingerprinter) Fingerprint(downscale int) (string, error) {
	if f.grab == nil {
		return "", nil
	}
	raw, err := f.grab(downscale)
	if err != nil {
		return "", err
	}
	if len(raw) == 0 {
		return "", nil
	}
	sum := blake3.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
