package sim

import "github.com/moffa90/go-badgelink/link"

// FailWrites makes the next n writes complete with link.ErrWriteFailed.
// Failed writes are not seen by the badge.
func (b *Badge) FailWrites(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failWrites = n
}

// FailDataWrites makes the next n writes on the data characteristic
// complete with link.ErrWriteFailed.
func (b *Badge) FailDataWrites(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failData = n
}

// RejectWrites makes the next n writes fail before they start.
func (b *Badge) RejectWrites(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rejectWrites = n
}

// FailReads makes the next n version reads fail.
func (b *Badge) FailReads(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failReads = n
}

// DropResponses discards the next n command responses.
func (b *Badge) DropResponses(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dropResponses = n
}

// CorruptLength makes the next n responses declare a wrong payload length.
func (b *Badge) CorruptLength(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.corruptLength = n
}

// Disconnect drops the link. Further writes and reads fail with
// link.ErrNotConnected and queued notifications are discarded.
func (b *Badge) Disconnect() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = false
}

// Token returns the token the badge currently accepts.
func (b *Badge) Token() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.token
}

// Owner returns the stored owner name.
func (b *Badge) Owner() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.owner
}

// Current returns the name of the displayed image.
func (b *Badge) Current() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Image returns a stored image.
func (b *Badge) Image(name string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	img, ok := b.images[name]
	return img, ok
}

// Images returns the stored image names in order.
func (b *Badge) Images() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.imageNamesLocked()
}

// Firmware returns the last firmware body installed.
func (b *Badge) Firmware() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.firmware
}

// Writes returns the number of successful writes to c.
func (b *Badge) Writes(c link.Characteristic) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writes[c]
}

// Priorities returns every priority requested so far.
func (b *Badge) Priorities() []link.Priority {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]link.Priority(nil), b.priorities...)
}

var _ link.Channel = (*Badge)(nil)
