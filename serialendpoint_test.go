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
	"flag"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"
)

/*tstport fakes the narrow serial port surface the endpoint drives*/
type tstport struct {
	read, write func([]byte) (int, error)
	drain       func() error
	close       func() error
}

func (tp *tstport) Read(p []byte) (int, error) {
	if tp.read != nil {
		return tp.read(p)
	}
	return 0, nil
}

func (tp *tstport) Write(p []byte) (int, error) {
	if tp.write != nil {
		return tp.write(p)
	}
	return 0, nil
}

func (tp *tstport) SetReadTimeout(time.Duration) error { return nil }

func (tp *tstport) Drain() error {
	if tp.drain != nil {
		return tp.drain()
	}
	return nil
}

func (tp *tstport) Close() error {
	if tp.close != nil {
		return tp.close()
	}
	return nil
}

var _ = serialPort(&tstport{})

var (
	port = flag.String("port", "", "Serial port to use as a loopback test")
)

func TestMain(t *testing.T) {
	flag.Parse()
}

func TestNewSerialEndpoint(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if _, err := NewSerialEndpoint(ctx, 0, "tcp://bad-hair-day:012301231201230123w31203012301030"); err == nil {
		t.Error("Bad dial string should fail")
	}
	if _, err := NewSerialEndpoint(ctx, 0, "serial:///dev/does-not-exist-42:57600"); err == nil {
		t.Error("Opening a nonexistent device should fail")
	}
}

func TestSerialEndpoint_Loopback(t *testing.T) {
	if *port == "" {
		t.Skip("No serial port defined for loopback tests - skipping")
		t.SkipNow()
	}
	dial := fmt.Sprintf("serial://%s:57600", *port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	se, err := NewEndpoint(ctx, 0, dial)
	if err != nil {
		t.Error("Shouldnt get an error", err)
		t.FailNow()
	}
	defer se.Close()
	_ = se.String()

	msg := []byte("loopback\n")
	if n, e := se.Write(msg); e != nil || n != len(msg) {
		t.Error("Write is borked:", n, e)
		t.FailNow()
	}
	if e := se.Flush(); e != nil {
		t.Error("Flush is borked:", e)
	}
	waitForData(t, se)
	if b, e := se.ReadAvailable(1024); e != nil || len(b) == 0 {
		t.Error("ReadAvailable is borked:", b, e)
	}
}

func TestSerialEndpoint_FakePort(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	nctx, ncancel := context.WithCancel(ctx)

	queued := []byte("PONG\n")
	se := &SerialEndpoint{
		ctx:       nctx,
		cancel:    ncancel,
		rwtimeout: 1 * time.Millisecond,
		dev:       "fake",
		conn: &tstport{
			read: func(p []byte) (int, error) {
				if len(queued) == 0 {
					return 0, nil //bounded read window lapsed
				}
				n := copy(p, queued)
				queued = queued[n:]
				return n, nil
			},
			write: func(p []byte) (int, error) { return len(p), nil },
		},
	}
	defer cancel()

	if !se.HasData() {
		t.Error("queued bytes should be visible")
	}
	b, e := se.ReadAvailable(1024)
	if e != nil || string(b) != "PONG\n" {
		t.Errorf("expected PONG, got %q (%v)", b, e)
	}
	if se.HasData() {
		t.Error("queue drained - no data should remain")
	}
	if b, e := se.ReadAvailable(1024); e != nil || len(b) != 0 {
		t.Error("idle read should be (nil, nil), got", b, e)
	}

	if n, e := se.Write([]byte("PING\n")); e != nil || n != 5 {
		t.Error("Write is borked:", n, e)
	}
	if e := se.Flush(); e != nil {
		t.Error("Flush is borked:", e)
	}

	for i := 0; i < 3; i++ {
		if e := se.Close(); e != nil && i == 0 {
			t.Error("first close should succeed:", e)
		}
	}
	if _, e := se.ReadAvailable(8); e == nil {
		t.Error("reads after close must fail")
	}
}

func TestSerialEndpoint_EOFIsATimeout(t *testing.T) {
	nctx, ncancel := context.WithCancel(context.Background())
	defer ncancel()
	se := &SerialEndpoint{
		ctx:       nctx,
		cancel:    ncancel,
		rwtimeout: 1 * time.Millisecond,
		dev:       "fake",
		conn: &tstport{
			read: func(p []byte) (int, error) { return 0, io.EOF },
		},
	}
	//the port signals EOF on read timeouts; that is "no data", not failure
	if se.HasData() {
		t.Error("EOF timeout should not report data")
	}
	if b, e := se.ReadAvailable(8); e != nil || len(b) != 0 {
		t.Error("EOF timeout should read as (nil, nil), got", b, e)
	}
}

func TestSerialEndpoint_ReadFaultSurfaces(t *testing.T) {
	nctx, ncancel := context.WithCancel(context.Background())
	defer ncancel()
	se := &SerialEndpoint{
		ctx:       nctx,
		cancel:    ncancel,
		rwtimeout: 1 * time.Millisecond,
		dev:       "fake",
		conn: &tstport{
			read: func(p []byte) (int, error) { return 0, fmt.Errorf("device yanked") },
		},
	}
	//a real port fault must be visible to a caller that only reads when
	//availability is reported
	if !se.HasData() {
		t.Error("a pending port fault should report as data waiting")
	}
	if _, e := se.ReadAvailable(8); e == nil {
		t.Error("the port fault should surface on the next read")
	}
}

func TestSerialEndpoint_RS232Scheme(t *testing.T) {
	//rs232:// is an alias for serial:// and must parse the same device
	//and baud, not match with empty captures
	m := serialEndpointRe.FindAllStringSubmatch("rs232://COM3:9600", -1)
	if m == nil {
		t.Error("rs232:// dial strings should match")
		t.FailNow()
	}
	if m[0][2] != "COM3" || m[0][3] != "9600" {
		t.Errorf("expected device COM3 at 9600, got %q at %q", m[0][2], m[0][3])
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if _, err := NewSerialEndpoint(ctx, 0, "rs232://"); err == nil {
		t.Error("a bare scheme with no device should fail to parse")
	}
	//a well-formed rs232 dial gets as far as opening the named device
	if _, err := NewSerialEndpoint(ctx, 0, "rs232:///dev/does-not-exist-42:57600"); err == nil {
		t.Error("Opening a nonexistent device should fail")
	} else if !strings.Contains(err.Error(), "/dev/does-not-exist-42") {
		t.Error("failure should name the device, got:", err)
	}
}
