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

package termlink

import (
	"context"
	"fmt"
	"net"
	"regexp"
	"time"
)

var _ StreamEndpoint = &NetEndpoint{}
var netEndpointRe = regexp.MustCompile("^(tcp|tcp4|tcp6|udp|udp4|udp6):\\/\\/(.*:[a-zA-Z0-9]*)$")

/*
NewNetEndpoint opens a connection to a remote network host.
dial should be in the form of: 'tcp|udp[46]{0,1}://<host>:<port>'

timeout bounds the dial itself.  Once connected, reads are bounded by a small
internal deadline so HasData and ReadAvailable return promptly whether or not
the peer ever speaks - a deadline expiry is treated as "no data yet", not as
an error.  Any real socket error is surfaced on the next ReadAvailable and is
castable to net.Error.
*/
func NewNetEndpoint(ctx context.Context, timeout time.Duration, dial string) (*NetEndpoint, error) {
	if !netEndpointRe.MatchString(dial) {
		return nil, newErr(false, false, fmt.Errorf("dial string not in correct form"))
	}
	matches := netEndpointRe.FindAllStringSubmatch(dial, -1) //capture groups used
	nctx, cancel := context.WithCancel(ctx)
	ne := &NetEndpoint{
		network:   matches[0][1],
		address:   matches[0][2],
		timeout:   timeout,
		rwtimeout: 1 * time.Millisecond,
		ctx:       nctx,
		cancel:    cancel,
	}
	return ne, ne.open()
}

/*
NetEndpoint provides a StreamEndpoint over an outgoing socket.  It handles
the following URI regimes:

	tcp://
	tcp4://
	tcp6://
	udp://
	udp4://
	udp6://
*/
type NetEndpoint struct {
	network, address string
	cancel           context.CancelFunc
	ctx              context.Context
	rwtimeout        time.Duration
	timeout          time.Duration
	conn             net.Conn
	peeked           []byte //bytes read during HasData, not yet handed out
	rerr             error  //deferred read error, surfaced on ReadAvailable
}

/*String conforms to the fmt.Stringer interface*/
func (ne *NetEndpoint) String() string {
	return fmt.Sprintf("%v connection to %v", ne.network, ne.address)
}

func (ne *NetEndpoint) open() (err error) {
	select {
	case <-ne.ctx.Done():
		return newErr(false, false, ne.ctx.Err())
	default:
	}
	dialer := net.Dialer{
		Timeout:   ne.timeout,
		KeepAlive: 1 * time.Second,
	}
	//Errors from DialContext implement net.Error
	ne.conn, err = dialer.DialContext(ne.ctx, ne.network, ne.address)
	return
}

/*
fill performs one deadline-bounded read into the peek buffer.  A deadline
expiry is not an error; anything else is parked in rerr for ReadAvailable.
*/
func (ne *NetEndpoint) fill(max int) {
	if len(ne.peeked) > 0 || ne.rerr != nil || ne.conn == nil {
		return
	}
	if ne.rwtimeout > 0 {
		ne.conn.SetReadDeadline(time.Now().Add(ne.rwtimeout))
	}
	b := make([]byte, max)
	n, e := ne.conn.Read(b)
	if n > 0 {
		ne.peeked = append(ne.peeked, b[:n]...)
	}
	if e != nil && !IsTimeout(e) {
		ne.rerr = e
	}
}

/*
HasData reports whether at least one byte is waiting.  The check is bounded
by the internal read deadline and never blocks past it.  A parked read error
counts as data waiting: the next ReadAvailable surfaces it, so a peer hangup
cannot hide from a poll loop that only reads when data is reported
*/
func (ne *NetEndpoint) HasData() bool {
	select {
	case <-ne.ctx.Done():
		return false
	default:
		ne.fill(512)
		return len(ne.peeked) > 0 || ne.rerr != nil
	}
}

/*
ReadAvailable returns up to max bytes already waiting on the socket, or
(nil, nil) if nothing arrived within the bounded check
*/
func (ne *NetEndpoint) ReadAvailable(max int) ([]byte, error) {
	select {
	case <-ne.ctx.Done():
		defer ne.Close()
		return nil, newErr(false, false, ne.ctx.Err())
	default:
	}
	ne.fill(max)
	if len(ne.peeked) > 0 {
		n := len(ne.peeked)
		if n > max {
			n = max
		}
		out := ne.peeked[:n]
		ne.peeked = ne.peeked[n:]
		return out, nil
	}
	if ne.rerr != nil {
		e := ne.rerr
		ne.rerr = nil
		return nil, e
	}
	return nil, nil
}

/*
Write conforms to io.Writer, but immediately returns upon ctx
destruction after closing the underlying transport
*/
func (ne *NetEndpoint) Write(b []byte) (int, error) {
	select {
	case <-ne.ctx.Done():
		defer ne.Close()
		return 0, newErr(false, false, ne.ctx.Err())
	default:
		if ne.conn == nil {
			return 0, newErr(false, false, fmt.Errorf("broken connection"))
		}
		if ne.rwtimeout > 0 {
			ne.conn.SetWriteDeadline(time.Now().Add(ne.rwtimeout))
		}
		return ne.conn.Write(b) //ne.conn returns errors that conform to net.Error
	}
}

/*Flush is a no-op for sockets - Write hands bytes straight to the kernel*/
func (ne *NetEndpoint) Flush() error { return nil }

/*Close conforms to io.Closer, and is safe to call repeatedly*/
func (ne *NetEndpoint) Close() error {
	ne.cancel()
	defer func() { ne.conn = nil }()
	if ne.conn != nil {
		return ne.conn.Close()
	}
	return nil
}
