package logtail

import (
	"io"
	"os"
	"time"
)

const readChunk = 256 * 1024

// Cursor tracks how far a log file has been consumed.
type Cursor struct {
	Path     string
	Offset   int64
	LastPoll time.Time
}

// PollOptions tunes a single Poll call.
type PollOptions struct {
	// MaxLines resizes the buffer when positive.
	MaxLines int
	// Interval throttles polls; calls closer together than this are skipped.
	Interval time.Duration
	// Force ignores Interval.
	Force bool
	// Now defaults to time.Now.
	Now time.Time
}

// Result describes what a Poll call did.
type Result struct {
	Appended int
	Bytes    int64
	Reset    bool
	Skipped  bool
}

// Changed reports whether the buffer contents may differ after the poll.
func (r Result) Changed() bool {
	return r.Bytes > 0 || r.Reset
}

// Poll reads everything written to c.Path since c.Offset into buf. A file that
// shrank below the offset was truncated or replaced: the offset returns to zero
// and the buffer is cleared before rereading. A missing or unreadable file
// yields no data.
func Poll(c *Cursor, buf *Buffer, opts PollOptions) Result {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	if !opts.Force && opts.Interval > 0 && !c.LastPoll.IsZero() && now.Sub(c.LastPoll) < opts.Interval {
		return Result{Skipped: true}
	}
	c.LastPoll = now
	if opts.MaxLines > 0 {
		buf.SetMax(opts.MaxLines)
	}

	var res Result
	if c.Path == "" {
		return res
	}
	info, err := os.Stat(c.Path)
	if err != nil {
		return res
	}
	size := info.Size()
	if size < c.Offset {
		c.Offset = 0
		buf.Reset()
		res.Reset = true
	}
	if size == c.Offset {
		return res
	}

	file, err := os.Open(c.Path)
	if err != nil {
		return res
	}
	defer file.Close()
	if _, err := file.Seek(c.Offset, io.SeekStart); err != nil {
		return res
	}

	chunk := make([]byte, min(size-c.Offset, readChunk))
	remaining := size - c.Offset
	for remaining > 0 {
		n, err := file.Read(chunk[:min(remaining, int64(len(chunk)))])
		if n > 0 {
			res.Appended += buf.Write(chunk[:n])
			res.Bytes += int64(n)
			c.Offset += int64(n)
			remaining -= int64(n)
		}
		if err != nil {
			break
		}
	}
	return res
}
