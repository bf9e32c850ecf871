// internal/sensor/buffer.go
package sensor

import "sync"

// ReadBuffer holds decoded reply lines in arrival order until drained.
type ReadBuffer struct {
	mu    sync.Mutex
	lines []string
}

// Append adds one line
func (b *ReadBuffer) Append(line string) {
	b.mu.Lock()
	b.lines = append(b.lines, line)
	b.mu.Unlock()
}

// Drain hands over everything collected so far and leaves the buffer empty.
// The swap happens under one lock, so a line is returned by exactly one Drain.
func (b *ReadBuffer) Drain() []string {
	b.mu.Lock()
	lines := b.lines
	b.lines = nil
	b.mu.Unlock()

	if lines == nil {
		return []string{}
	}
	return lines
}

// Len returns the number of buffered lines
func (b *ReadBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.lines)
}
