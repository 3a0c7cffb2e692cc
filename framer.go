package termlink

/*
MIT License

Copyright (c) 2015-2017 University Corporation for Atmospheric Research

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

import (
	"bytes"
	"strings"
)

// Delimiter is the single byte that terminates every message on the wire.
const Delimiter byte = '\n'

/*
LineFramer incrementally decodes a byte stream into discrete trimmed text
messages.  Feed it chunks of any size - a delimiter split across two chunks
is handled because the partial prefix persists between calls.  A LineFramer
cannot fail; it only transforms data.

Feeding the same byte sequence in one call or split arbitrarily across many
calls yields the identical ordered message sequence.  The zero value is ready
to use.
*/
type LineFramer struct {
	pending []byte
}

/*
Feed appends chunk to the pending buffer and returns every message the
chunk completed, in arrival order.  Messages are trimmed of leading and
trailing whitespace; anything empty after trimming is dropped rather than
emitted.  Whatever trails the last delimiter stays pending for the next
call.
*/
func (lf *LineFramer) Feed(chunk []byte) []string {
	lf.pending = append(lf.pending, chunk...)
	var msgs []string
	for {
		idx := bytes.IndexByte(lf.pending, Delimiter)
		if idx < 0 {
			return msgs
		}
		candidate := strings.TrimSpace(string(lf.pending[:idx]))
		lf.pending = lf.pending[idx+1:]
		if candidate != "" {
			msgs = append(msgs, candidate)
		}
	}
}

/*
Pending returns a copy of the bytes accumulated since the last emitted
delimiter.  The pending buffer never contains a delimiter.
*/
func (lf *LineFramer) Pending() []byte {
	cp := make([]byte, len(lf.pending))
	copy(cp, lf.pending)
	return cp
}

/*
Reset drops any pending partial message.  A trailing message without a
terminating delimiter is lost, not flushed - that is the contract when a
connection ends mid-line.
*/
func (lf *LineFramer) Reset() {
	lf.pending = nil
}
