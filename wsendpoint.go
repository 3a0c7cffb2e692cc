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
	"regexp"
	"time"

	"github.com/gorilla/websocket"
)

var _ StreamEndpoint = &WSEndpoint{}
var wsEndpointRe = regexp.MustCompile("^(ws|wss):\\/\\/(.*)$")

/*
WSEndpoint provides a StreamEndpoint over a websocket connection under the
ws:// and wss:// URI regimes.  Websockets are message oriented rather than
stream oriented, so the endpoint bridges the two worlds: a reader pump
goroutine turns inbound messages into a byte queue the bounded HasData and
ReadAvailable calls drain, and outbound bytes accumulate across Write calls
until Flush ships them as one message.
*/
type WSEndpoint struct {
	url      string
	cancel   context.CancelFunc
	ctx      context.Context
	conn     *websocket.Conn
	incoming chan []byte
	readErr  chan error
	peeked   []byte
	outbuf   []byte
	rerr     error //deferred pump error, surfaced on ReadAvailable
}

/*
NewWSEndpoint opens a websocket connection to the remote peer.
dial should be in the form of 'ws|wss://<host>:<port>/<path>'
*/
func NewWSEndpoint(ctx context.Context, timeout time.Duration, dial string) (*WSEndpoint, error) {
	if !wsEndpointRe.MatchString(dial) {
		return nil, newErr(false, false, fmt.Errorf("dial string not in correct form"))
	}
	nctx, cancel := context.WithCancel(ctx)
	we := &WSEndpoint{
		url:      dial,
		ctx:      nctx,
		cancel:   cancel,
		incoming: make(chan []byte, 64),
		readErr:  make(chan error, 1),
	}
	dialer := websocket.Dialer{HandshakeTimeout: timeout}
	conn, _, err := dialer.DialContext(nctx, dial, nil)
	if err != nil {
		cancel()
		return nil, newErr(false, false, err)
	}
	we.conn = conn
	go we.readPump(conn)
	return we, nil
}

/*
readPump shovels inbound messages into the byte queue until the connection
dies.  ReadMessage unblocks with an error once Close tears the socket down.
The conn is passed in so a concurrent Close clearing the handle cannot trip
the pump.
*/
func (we *WSEndpoint) readPump(conn *websocket.Conn) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			select {
			case we.readErr <- newErr(false, false, err):
			default:
			}
			return
		}
		select {
		case we.incoming <- msg:
		case <-we.ctx.Done():
			return
		}
	}
}

/*String conforms to the fmt.Stringer interface*/
func (we *WSEndpoint) String() string {
	return fmt.Sprintf("websocket connection to %v", we.url)
}

/*
drain moves whatever the pump has queued into the peek buffer without
blocking, then parks any pump error for ReadAvailable to surface
*/
func (we *WSEndpoint) drain() {
	for {
		select {
		case msg := <-we.incoming:
			we.peeked = append(we.peeked, msg...)
		default:
			if we.rerr == nil {
				select {
				case err := <-we.readErr:
					we.rerr = err
				default:
				}
			}
			return
		}
	}
}

/*
HasData reports whether at least one byte is waiting.  A parked pump error
counts as data waiting so the next ReadAvailable surfaces it
*/
func (we *WSEndpoint) HasData() bool {
	select {
	case <-we.ctx.Done():
		return false
	default:
		we.drain()
		return len(we.peeked) > 0 || we.rerr != nil
	}
}

/*
ReadAvailable returns up to max bytes already received, or (nil, nil) if
nothing is queued
*/
func (we *WSEndpoint) ReadAvailable(max int) ([]byte, error) {
	select {
	case <-we.ctx.Done():
		defer we.Close()
		return nil, newErr(false, false, we.ctx.Err())
	default:
	}
	we.drain()
	if len(we.peeked) > 0 {
		n := len(we.peeked)
		if n > max {
			n = max
		}
		out := we.peeked[:n]
		we.peeked = we.peeked[n:]
		return out, nil
	}
	if we.rerr != nil {
		err := we.rerr
		we.rerr = nil
		return nil, err
	}
	return nil, nil
}

/*
Write queues b for the next Flush.  Websocket frames carry whole messages,
so bytes are not shipped until the caller flushes.
*/
func (we *WSEndpoint) Write(b []byte) (int, error) {
	select {
	case <-we.ctx.Done():
		defer we.Close()
		return 0, newErr(false, false, we.ctx.Err())
	default:
		we.outbuf = append(we.outbuf, b...)
		return len(b), nil
	}
}

/*Flush ships everything queued since the last Flush as one text message*/
func (we *WSEndpoint) Flush() error {
	select {
	case <-we.ctx.Done():
		defer we.Close()
		return newErr(false, false, we.ctx.Err())
	default:
	}
	if we.conn == nil {
		return newErr(false, false, fmt.Errorf("broken connection"))
	}
	if len(we.outbuf) == 0 {
		return nil
	}
	out := we.outbuf
	we.outbuf = nil
	if err := we.conn.WriteMessage(websocket.TextMessage, out); err != nil {
		return newErr(false, false, err)
	}
	return nil
}

/*Close conforms to io.Closer, and is safe to call repeatedly*/
func (we *WSEndpoint) Close() error {
	we.cancel()
	defer func() { we.conn = nil }()
	if we.conn != nil {
		return we.conn.Close()
	}
	return nil
}
