package capture

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Preview holds the most recent frame as JPEG for the MJPEG stream, so the
// stream never competes with the tracker for camera reads.
type Preview struct {
	mu   sync.RWMutex
	jpeg []byte
	seq  uint64
}

// NewPreview creates an empty Preview.
func NewPreview() *Preview {
	return &Preview{}
}

// Store encodes frame and replaces the held image.
func (p *Preview) Store(frame *gocv.Mat) error {
	if frame == nil || frame.Empty() {
		return nil
	}
	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return fmt.Errorf("encode preview: %w", err)
	}
	defer buf.Close()

	data := append([]byte(nil), buf.GetBytes()...)
	p.StoreJPEG(data)
	return nil
}

// StoreJPEG replaces the held image with already encoded bytes.
func (p *Preview) StoreJPEG(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jpeg = data
	p.seq++
}

// Latest returns the newest image and its sequence number. The sequence is
// zero until the first Store.
func (p *Preview) Latest() ([]byte, uint64) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.jpeg, p.seq
}
