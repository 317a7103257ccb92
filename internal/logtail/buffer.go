package logtail

import "strings"

// Buffer holds the newest lines of a log in a ring. The final line stays open
// until a newline arrives so partial writes are extended rather than split.
// A Buffer is not safe for concurrent use.
type Buffer struct {
	ring    []string
	start   int
	max     int
	open    bool
	version uint64
	dropped int64
}

// NewBuffer returns a buffer that keeps at most maxLines lines (minimum one).
func NewBuffer(maxLines int) *Buffer {
	return &Buffer{max: max(maxLines, 1)}
}

// Write appends raw log bytes and returns how many new lines were started.
func (b *Buffer) Write(p []byte) int {
	if len(p) == 0 {
		return 0
	}
	started := 0
	text := string(p)
	for text != "" {
		chunk, rest, closed := strings.Cut(text, "\n")
		if b.open {
			b.setLast(b.last() + chunk)
		} else {
			b.push(chunk)
			started++
		}
		if closed {
			b.setLast(strings.TrimSuffix(b.last(), "\r"))
			b.open = false
		} else {
			b.open = true
		}
		text = rest
	}
	b.version++
	return started
}

// Lines returns a copy of the buffered lines, oldest first.
func (b *Buffer) Lines() []string {
	n := len(b.ring)
	lines := make([]string, n)
	for i := 0; i < n; i++ {
		lines[i] = b.ring[(b.start+i)%n]
	}
	if b.open && n > 0 {
		lines[n-1] = strings.TrimSuffix(lines[n-1], "\r")
	}
	return lines
}

// Len returns the number of buffered lines, counting an open final line.
func (b *Buffer) Len() int { return len(b.ring) }

// Max returns the line limit.
func (b *Buffer) Max() int { return b.max }

// Version changes whenever the visible contents change.
func (b *Buffer) Version() uint64 { return b.version }

// Dropped returns how many lines were discarded to honor the limit.
func (b *Buffer) Dropped() int64 { return b.dropped }

// Reset empties the buffer.
func (b *Buffer) Reset() {
	b.ring = nil
	b.start = 0
	b.open = false
	b.version++
}

// SetMax changes the line limit, keeping the newest lines.
func (b *Buffer) SetMax(maxLines int) {
	maxLines = max(maxLines, 1)
	if maxLines == b.max {
		return
	}
	lines := b.Lines()
	if b.open && len(lines) > 0 {
		lines[len(lines)-1] = b.last()
	}
	if overflow := len(lines) - maxLines; overflow > 0 {
		lines = append([]string(nil), lines[overflow:]...)
		b.dropped += int64(overflow)
	}
	b.ring = lines
	b.start = 0
	b.max = maxLines
	b.version++
}

func (b *Buffer) push(line string) {
	if len(b.ring) < b.max {
		b.ring = append(b.ring, line)
		return
	}
	b.ring[b.start] = line
	b.start = (b.start + 1) % len(b.ring)
	b.dropped++
}

func (b *Buffer) lastIndex() int {
	return (b.start + len(b.ring) - 1) % len(b.ring)
}

func (b *Buffer) last() string {
	return b.ring[b.lastIndex()]
}

func (b *Buffer) setLast(line string) {
	b.ring[b.lastIndex()] = line
}
