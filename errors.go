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
	"net"

	"github.com/pkg/errors"
)

/*
Rejection and discovery errors.  These never wrap an underlying cause - they
describe a request the session or discovery layer refused outright, with no
state change.  Transport failures (establishment, writes) do carry a cause and
are wrapped via pkg/errors at the call site instead.
*/
var (
	//ErrTransportUnavailable means no capable transport exists on this host.
	ErrTransportUnavailable = errors.New("no capable transport on this host")

	//ErrNoPeersFound means discovery ran fine but came back empty.
	ErrNoPeersFound = errors.New("no peers found")

	//ErrAlreadyConnecting rejects a connect issued while one is in flight.
	ErrAlreadyConnecting = errors.New("connection attempt already in progress")

	//ErrAlreadyConnected rejects a connect issued on a live session.
	ErrAlreadyConnected = errors.New("already connected")

	//ErrPeerNotFound means the requested peer id is not in the known peer set.
	ErrPeerNotFound = errors.New("peer not found")

	//ErrNotConnected rejects an operation that requires a live connection.
	ErrNotConnected = errors.New("not connected")
)

var _ net.Error = &Error{}

/*
Error is the package error type.  It conforms to net.Error so callers can
interrogate Timeout() and Temporary() without caring which transport produced
it - serial reads that time out and socket deadline expiries look the same.
*/
type Error struct {
	timeout, temporary bool
	error
}

/*newErr stuffs err into an Error with the given timeout and temporary traits*/
func newErr(timeout, temporary bool, err error) *Error {
	return &Error{timeout: timeout, temporary: temporary, error: err}
}

/*Timeout conforms to net.Error*/
func (e *Error) Timeout() bool { return e.timeout }

/*Temporary conforms to net.Error*/
func (e *Error) Temporary() bool { return e.temporary }

/*Cause returns the wrapped error, for use with errors.Cause chains*/
func (e *Error) Cause() error { return e.error }

/*
IsTimeout returns true if the passed error is a net.Error and flagged as a
timeout.  Panics if passed a nil error
*/
func IsTimeout(err error) bool {
	if err == nil {
		panic("IsTimeout requires a non-nil error")
	}
	if ne, ok := err.(net.Error); ok {
		return ne.Timeout()
	}
	return false
}

/*
IsTemporary returns true if the passed error is a net.Error and flagged as
temporary.  Panics if passed a nil error
*/
func IsTemporary(err error) bool {
	if err == nil {
		panic("IsTemporary requires a non-nil error")
	}
	if ne, ok := err.(net.Error); ok {
		return ne.Temporary()
	}
	return false
}
