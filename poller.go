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
	"time"
)

// DefaultPollInterval is the cadence Run uses when none is configured.
const DefaultPollInterval = 20 * time.Millisecond

/*
Poller drives a Session at a regular cadence.  The session contract only
requires that Poll be invoked on every scheduling tick while the session may
be connected; Poller is the batteries-included way to honor that with a
timer.  Poll is a guaranteed no-op in every other state, so the loop runs
unconditionally - no wiring against the session state is needed.
*/
type Poller struct {
	Session  *Session
	Interval time.Duration
}

/*
Run invokes Session.Poll once per tick until ctx collapses.  It always
returns ctx.Err().  Each tick is non-blocking beyond the endpoint's bounded
availability check, so a slow peer cannot stall the cadence.
*/
func (p *Poller) Run(ctx context.Context) error {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.Session.Poll()
		}
	}
}
