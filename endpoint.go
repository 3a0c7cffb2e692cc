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
	"context"
	"fmt"
	"regexp"
	"time"
)

/*
StreamEndpoint is the duplex byte channel a Session talks through once a
connection is established.  An endpoint should be able to tell others in some
human readable string form what the transport actually is (fmt.Stringer),
answer whether bytes are waiting without blocking, hand over whatever bytes
are available in one bounded read, and write and flush outbound bytes.

HasData and ReadAvailable must return within a small bounded interval whether
or not the peer ever sends anything - the session polls them on every
scheduling tick and a tick must never stall.  Close must be idempotent and
must attempt every layered release it owns even when an earlier one fails.

Any error returned should be castable to net.Error.
*/
type StreamEndpoint interface {
	fmt.Stringer

	//HasData reports whether at least one byte is waiting to be read.
	HasData() bool

	//ReadAvailable returns up to max bytes already waiting on the wire.
	//A return of (nil, nil) means no data arrived within the bounded check.
	ReadAvailable(max int) ([]byte, error)

	//Write pushes b towards the peer.
	Write(b []byte) (int, error)

	//Flush forces anything buffered below Write out onto the wire.
	Flush() error

	//Close releases the endpoint.  Safe to call repeatedly.
	Close() error
}

var known = map[*regexp.Regexp]func(context.Context, time.Duration, string) (StreamEndpoint, error){
	netEndpointRe: func(ctx context.Context, dur time.Duration, dial string) (StreamEndpoint, error) {
		return NewNetEndpoint(ctx, dur, dial)
	},
	serialEndpointRe: func(ctx context.Context, dur time.Duration, dial string) (StreamEndpoint, error) {
		return NewSerialEndpoint(ctx, dur, dial)
	},
	wsEndpointRe: func(ctx context.Context, dur time.Duration, dial string) (StreamEndpoint, error) {
		return NewWSEndpoint(ctx, dur, dial)
	},
}

/*
NewEndpoint returns an opened StreamEndpoint for the passed dial string.
timeout bounds the connection process; ctx collapses the endpoint early
*/
func NewEndpoint(ctx context.Context, timeout time.Duration, dial string) (StreamEndpoint, error) {
	for re, funcptr := range known {
		if re.MatchString(dial) {
			return funcptr(ctx, timeout, dial)
		}
	}
	err := newErr(false, false, fmt.Errorf("No known way to create a StreamEndpoint from %q", dial))
	return InvalidEndpoint(err.Error()), err
}

var _ StreamEndpoint = InvalidEndpoint("")

/*
InvalidEndpoint is a placeholder returned alongside the error when a dial
string matches no known scheme.  Every operation on it fails, so callers that
ignore the creation error still cannot mistake it for a live connection.
*/
type InvalidEndpoint string

/*String conforms to fmt.Stringer*/
func (ie InvalidEndpoint) String() string { return string(ie) }

/*HasData always reports false*/
func (ie InvalidEndpoint) HasData() bool { return false }

/*ReadAvailable always fails*/
func (ie InvalidEndpoint) ReadAvailable(int) ([]byte, error) {
	return nil, newErr(false, false, fmt.Errorf("invalid endpoint: %s", string(ie)))
}

/*Write always fails*/
func (ie InvalidEndpoint) Write([]byte) (int, error) {
	return 0, newErr(false, false, fmt.Errorf("invalid endpoint: %s", string(ie)))
}

/*Flush always fails*/
func (ie InvalidEndpoint) Flush() error {
	return newErr(false, false, fmt.Errorf("invalid endpoint: %s", string(ie)))
}

/*Close never fails - there is nothing to release*/
func (ie InvalidEndpoint) Close() error { return nil }
