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
	"sync"

	"github.com/pkg/errors"
)

// State names one node of the session lifecycle machine.
type State int

// Session lifecycle states.  Disconnecting is transient: it is observable
// through the OnState hook but collapses to Disconnected within the same
// Disconnect call.
const (
	Disconnected State = iota
	Connecting
	Connected
	Disconnecting
)

// String implements the Stringer interface
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Disconnecting:
		return "disconnecting"
	}
	return fmt.Sprintf("unknown state %d", int(s))
}

/*
Hooks is the notification surface a Session reports through.  Every field
is optional; nil hooks are skipped.  Hooks are always invoked with the
session lock released, so a hook may call back into the session (eg an
OnMessage handler replying with Send).
*/
type Hooks struct {
	//OnStatus receives human-readable progress and failure reports.
	OnStatus func(msg string, isErr bool)

	//OnMessage receives each completed inbound message, in arrival order.
	OnMessage func(text string)

	//OnState receives every lifecycle transition.
	OnState func(s State)
}

func (h Hooks) status(msg string, isErr bool) {
	if h.OnStatus != nil {
		h.OnStatus(msg, isErr)
	}
}

func (h Hooks) state(s State) {
	if h.OnState != nil {
		h.OnState(s)
	}
}

/*
Session owns at most one StreamEndpoint at a time and drives the
connect / poll / send / disconnect lifecycle over it.  All public operations
are serialized behind a single mutex, so the session is safe to drive from
concurrent callers even though one caller on a timer tick is the intended
shape.  Connection establishment is the one unbounded operation; the lock is
released while it runs, and a generation counter guards against a late
establishment success being adopted by a session that was torn down in the
meantime.
*/
type Session struct {
	mux       sync.Mutex
	state     State
	epoch     uint64 //bumped on every teardown and every new attempt
	transport Transport
	endpoint  StreamEndpoint
	framer    LineFramer
	target    Peer
	hooks     Hooks
	readMax   int
}

/*
NewSession returns a Session at Disconnected using the passed transport
capability.  The session is re-enterable: it can connect again after any
disconnect.
*/
func NewSession(transport Transport, hooks Hooks) *Session {
	return &Session{
		state:     Disconnected,
		transport: transport,
		hooks:     hooks,
		readMax:   1024,
	}
}

/*State returns the current lifecycle state*/
func (s *Session) State() State {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.state
}

/*Target returns the peer of the current (or most recent) connection*/
func (s *Session) Target() Peer {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.target
}

/*
Connect resolves displayID against the transport's peer set and establishes
a connection to it.  A second connect while one is in flight or live is
rejected with ErrAlreadyConnecting / ErrAlreadyConnected, never queued.  On
failure the session returns to Disconnected and the failure reason is both
returned and reported through OnStatus.  A Disconnect issued while the
attempt is outstanding wins: if establishment then succeeds anyway, the
fresh endpoint is released rather than adopted.
*/
func (s *Session) Connect(ctx context.Context, displayID string) error {
	s.mux.Lock()
	switch s.state {
	case Connecting:
		s.mux.Unlock()
		return ErrAlreadyConnecting
	case Connected:
		s.mux.Unlock()
		return ErrAlreadyConnected
	}
	//resolve before any transition: an unknown peer rejects the request
	//without a state change
	peer, err := s.resolve(ctx, displayID)
	if err != nil {
		s.mux.Unlock()
		s.hooks.status(err.Error(), true)
		return err
	}
	s.state = Connecting
	s.epoch++
	attempt := s.epoch
	s.target = peer
	s.mux.Unlock()
	s.hooks.state(Connecting)
	s.hooks.status(fmt.Sprintf("connecting to %s", peer.DisplayID()), false)

	ep, err := s.transport.Connect(ctx, peer)
	if err == nil {
		return s.adopt(attempt, peer, ep)
	}
	err = errors.Wrapf(err, "unable to establish connection to %s", peer.DisplayID())

	//establishment failed: fall back to Disconnected, unless a disconnect
	//already ran and this attempt is stale
	s.mux.Lock()
	if s.epoch == attempt && s.state == Connecting {
		s.state = Disconnected
		s.mux.Unlock()
		s.hooks.state(Disconnected)
	} else {
		s.mux.Unlock()
	}
	s.hooks.status(err.Error(), true)
	return err
}

/*
resolve maps a display id onto a peer from the transport's current set.
Called with the session lock held; transports are expected to answer Peers
promptly.
*/
func (s *Session) resolve(ctx context.Context, displayID string) (Peer, error) {
	peers, err := s.transport.Peers(ctx)
	if err != nil {
		return Peer{}, errors.Wrapf(err, "unable to list peers resolving %q", displayID)
	}
	peer, err := peers.Find(displayID)
	if err != nil {
		return Peer{}, err
	}
	return peer, nil
}

/*
adopt installs a freshly established endpoint, unless the attempt was
cancelled while establishment was outstanding - then the endpoint is
released, not adopted.
*/
func (s *Session) adopt(attempt uint64, peer Peer, ep StreamEndpoint) error {
	s.mux.Lock()
	if s.epoch != attempt || s.state != Connecting {
		s.mux.Unlock()
		ep.Close() //late success after cancellation: release, never adopt
		err := errors.Errorf("connection to %s cancelled before establishment completed", peer.DisplayID())
		s.hooks.status(err.Error(), true)
		return err
	}
	s.endpoint = ep
	s.framer.Reset() //fresh framer state for the new connection
	s.state = Connected
	s.mux.Unlock()
	s.hooks.state(Connected)
	s.hooks.status(fmt.Sprintf("connected to %s", peer.DisplayID()), false)
	return nil
}

/*
Poll performs one bounded read and drains whatever messages it completed.
It never blocks past the endpoint's bounded availability check, never fails
the caller's scheduling tick (errors are reported through OnStatus), and is
a guaranteed no-op outside Connected - callers need no conditional wiring
around it.
*/
func (s *Session) Poll() {
	s.mux.Lock()
	if s.state != Connected {
		s.mux.Unlock()
		return
	}
	var msgs []string
	var lost error
	if s.endpoint.HasData() {
		chunk, err := s.endpoint.ReadAvailable(s.readMax)
		if len(chunk) > 0 {
			msgs = s.framer.Feed(chunk)
		}
		if err != nil {
			lost = errors.Wrapf(err, "connection to %s lost", s.target.DisplayID())
			s.teardownLocked()
		}
	}
	s.mux.Unlock()

	for _, msg := range msgs {
		if s.hooks.OnMessage != nil {
			s.hooks.OnMessage(msg)
		}
	}
	if lost != nil {
		s.hooks.state(Disconnected)
		s.hooks.status(lost.Error(), true)
	}
}

/*
Send appends the message delimiter to text, writes it, and flushes it to
the transport before returning - nothing is buffered across calls.  An empty
message is a no-op.  Fails with ErrNotConnected outside Connected; an I/O
failure tears the session down to Disconnected and returns the wrapped
cause.
*/
func (s *Session) Send(text string) error {
	s.mux.Lock()
	if text == "" {
		s.mux.Unlock()
		return nil
	}
	if s.state != Connected {
		s.mux.Unlock()
		return ErrNotConnected
	}
	payload := append([]byte(text), Delimiter)
	n, err := s.endpoint.Write(payload)
	if err == nil && n != len(payload) {
		err = newErr(false, false, fmt.Errorf("short write: %d of %d bytes", n, len(payload)))
	}
	if err == nil {
		err = s.endpoint.Flush()
	}
	if err == nil {
		s.mux.Unlock()
		return nil
	}
	err = errors.Wrapf(err, "transport write to %s failed", s.target.DisplayID())
	s.teardownLocked()
	s.mux.Unlock()
	s.hooks.state(Disconnected)
	s.hooks.status(err.Error(), true)
	return err
}

/*
Disconnect unconditionally moves the session to Disconnected.  It is
idempotent, callable from any state, never raises, and wins over an
in-flight Connect: the generation counter bump guarantees a late
establishment success is released rather than adopted.
*/
func (s *Session) Disconnect() {
	s.mux.Lock()
	if s.state == Disconnected {
		s.mux.Unlock()
		return
	}
	s.state = Disconnecting
	s.teardownLocked()
	s.mux.Unlock()
	s.hooks.state(Disconnecting) //transient, reported for observability
	s.hooks.state(Disconnected)
	s.hooks.status("disconnected", false)
}

/*
teardownLocked releases everything the session owns and lands on
Disconnected.  Callers hold the lock.  Releases run in reverse acquisition
order and every step is attempted regardless of earlier failures; release
errors are swallowed - teardown always runs to completion and never raises.
The endpoint handle is cleared only after the full sequence.
*/
func (s *Session) teardownLocked() {
	s.framer.Reset() //pending partial message is dropped, not flushed
	if s.endpoint != nil {
		_ = s.endpoint.Close() //idempotent; error cannot stop teardown
	}
	s.endpoint = nil
	s.epoch++ //invalidates any establishment still in flight
	s.state = Disconnected
}
