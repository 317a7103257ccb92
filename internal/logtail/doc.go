// Package logtail follows growing log files into bounded line buffers.
//
// # Overview
//
// A supervised run writes stdout and stderr into a plain log file. The panel
// shows that file by polling it: each Poll call reads whatever was appended
// since the last call and feeds it to a Buffer.
//
//	cur := &logtail.Cursor{Path: "/tmp/runpane-42-build.log"}
//	buf := logtail.NewBuffer(2000)
//	res := logtail.Poll(cur, buf, logtail.PollOptions{Interval: 250 * time.Millisecond})
//	if res.Changed() {
//		render(buf.Lines())
//	}
//
// # Ring Buffer
//
// Buffer keeps the newest N lines in a ring:
//
//  1. New lines are appended until the ring holds N entries
//  2. After that each new line overwrites the oldest entry
//  3. Lines returns entries starting from the oldest, so order is preserved
//
// Bytes are split on '\n' and a trailing '\r' is removed when a line closes.
// Text after the final newline stays open and later writes extend it, so a
// progress line written in several pieces shows up as one line.
//
// # Offsets and Truncation
//
// Cursor.Offset only moves forward, except when the file becomes smaller than
// the offset. That means it was truncated or replaced, so the offset returns to
// zero, the buffer is cleared and the file is read again from the start.
//
// # Error Handling
//
// Poll never fails. A missing file (the process has not written yet) or an
// unreadable one simply yields no new data and the next poll tries again.
// Lines are opaque text; no parsing or colorization happens here.
package logtail
