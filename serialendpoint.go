/*
MIT License

Copyright (c) 2015-2018 University Corporation for Atmospheric Research

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

package termlink

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"
)

var _ StreamEndpoint = &SerialEndpoint{}

// the alternation is grouped so rs232:// and serial:// share capture groups
var serialEndpointRe = regexp.MustCompile("^(rs232|serial):\\/\\/([^:]*):([0-9]*)$")

/*
serialPort is the subset of go.bug.st/serial.Port this endpoint needs.
Narrowing the surface keeps the endpoint testable with a fake port.
*/
type serialPort interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
	Drain() error
}

var _ serialPort = serial.Port(nil)

/*SerialEndpoint wraps around a serial port*/
type SerialEndpoint struct {
	ctx       context.Context
	cancel    context.CancelFunc
	rwtimeout time.Duration
	mode      *serial.Mode
	dev       string
	conn      serialPort
	peeked    []byte
	rerr      error
}

/*
NewSerialEndpoint opens a connection to a serial device in 8N1 mode.
Dial should be in the form of "serial://<device>:<baud>".  The port read
timeout is set small so HasData and ReadAvailable stay bounded; a read that
returns nothing inside that window means "no data yet", not failure.
*/
func NewSerialEndpoint(ctx context.Context, timeout time.Duration, dial string) (*SerialEndpoint, error) {
	if !serialEndpointRe.MatchString(dial) {
		return nil, newErr(false, false, fmt.Errorf("dial string not in correct form"))
	}
	matches := serialEndpointRe.FindAllStringSubmatch(dial, -1) //capture groups used
	i, _ := strconv.ParseInt(matches[0][3], 10, 64)
	nctx, cancel := context.WithCancel(ctx)

	se := &SerialEndpoint{
		ctx:       nctx,
		cancel:    cancel,
		rwtimeout: 1 * time.Millisecond,
		mode: &serial.Mode{
			BaudRate: int(i),
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		},
		dev:  matches[0][2],
		conn: nil,
	}
	return se, se.open()
}

/*String conforms to the fmt.Stringer interface*/
func (se *SerialEndpoint) String() string {
	return fmt.Sprintf("serial connection to %v:%d 8N1", se.dev, se.mode.BaudRate)
}

func (se *SerialEndpoint) open() error {
	select {
	case <-se.ctx.Done():
		return newErr(false, false, se.ctx.Err())
	default:
	}
	port, err := serial.Open(se.dev, se.mode)
	if err != nil {
		return newErr(false, false, errors.Wrapf(err, "unable to open serial device %q", se.dev))
	}
	if err := port.SetReadTimeout(se.rwtimeout); err != nil {
		port.Close()
		return newErr(false, false, errors.Wrapf(err, "unable to bound reads on serial device %q", se.dev))
	}
	se.conn = port
	return nil
}

/*
fill performs one bounded read into the peek buffer.  go.bug.st ports
return (0, nil) when the read timeout lapses with nothing waiting; io.EOF is
treated the same way, as the port signals it on timeouts too.
*/
func (se *SerialEndpoint) fill(max int) {
	if len(se.peeked) > 0 || se.rerr != nil || se.conn == nil {
		return
	}
	b := make([]byte, max)
	n, e := se.conn.Read(b)
	if n > 0 {
		se.peeked = append(se.peeked, b[:n]...)
	}
	switch e {
	case nil:
	case io.EOF: //most likely as a timeout
	default:
		se.rerr = newErr(false, false, e)
	}
}

/*
HasData reports whether at least one byte is waiting on the port.  A
parked read error counts as data waiting so the next ReadAvailable surfaces
it
*/
func (se *SerialEndpoint) HasData() bool {
	select {
	case <-se.ctx.Done():
		return false
	default:
		se.fill(512)
		return len(se.peeked) > 0 || se.rerr != nil
	}
}

/*
ReadAvailable returns up to max bytes already waiting on the port, or
(nil, nil) if nothing arrived within the bounded read window
*/
func (se *SerialEndpoint) ReadAvailable(max int) ([]byte, error) {
	select {
	case <-se.ctx.Done():
		defer se.Close()
		return nil, newErr(false, false, se.ctx.Err())
	default:
	}
	if se.conn == nil {
		return nil, newErr(false, false, errors.New("broken connection"))
	}
	se.fill(max)
	if len(se.peeked) > 0 {
		n := len(se.peeked)
		if n > max {
			n = max
		}
		out := se.peeked[:n]
		se.peeked = se.peeked[n:]
		return out, nil
	}
	if se.rerr != nil {
		e := se.rerr
		se.rerr = nil
		return nil, e
	}
	return nil, nil
}

/*
Write conforms to io.Writer, but immediately returns upon ctx
destruction after closing the underlying transport
*/
func (se *SerialEndpoint) Write(b []byte) (int, error) {
	select {
	case <-se.ctx.Done():
		defer se.Close()
		return 0, newErr(false, false, se.ctx.Err())
	default:
		if se.conn == nil {
			return 0, newErr(false, false, errors.New("broken connection"))
		}
		n, e := se.conn.Write(b)
		switch e {
		case nil:
			return n, nil
		case io.EOF: //most likely as a timeout??
			return n, newErr(true, true, e)
		default:
			return n, newErr(false, false, e)
		}
	}
}

/*Flush blocks until the port has drained its outbound buffer*/
func (se *SerialEndpoint) Flush() error {
	if se.conn == nil {
		return newErr(false, false, errors.New("broken connection"))
	}
	if err := se.conn.Drain(); err != nil {
		return newErr(false, false, err)
	}
	return nil
}

/*Close conforms to io.Closer, and is safe to call repeatedly*/
func (se *SerialEndpoint) Close() error {
	se.cancel()
	defer func() { se.conn = nil }()
	if se.conn != nil {
		return se.conn.Close()
	}
	return nil
}
