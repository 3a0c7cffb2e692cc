/*
Package termlink manages a serial-style link to a remote peripheral and
reassembles the raw byte stream into discrete newline-delimited text messages.
The peripheral is treated as a dumb byte pipe: callers send arbitrary text
lines and get arbitrary text lines back.  Nothing above message boundaries is
assumed - no acks, no framing beyond a single '\n' delimiter, no flow control.

The package is split along three seams:

A StreamEndpoint is a duplex byte channel over whatever wire actually reaches
the peripheral.  Endpoints are created from dial strings, so callers can stay
agnostic to the transport:

	tcp://<host:port> - Outgoing Sockets of type tcp (either v4 or v6)
	tcp4://<host:port> - Outgoing Sockets of type tcp v4
	tcp6://<host:port> - Outgoing Sockets of type tcp v6
	udp://<host:port> - Outgoing Sockets of type udp (either v4 or v6)
	udp4://<host:port> - Outgoing Sockets of type udp v4
	udp6://<host:port> - Outgoing Sockets of type udp v6
	serial://<device>:<baud> - Serial connection
	rs232://<device>:<baud> - Serial connection
	ws://<host>:<port>/<path> - Websocket connection
	wss://<host>:<port>/<path> - Websocket connection over TLS

A LineFramer is a pure incremental decoder: feed it byte chunks of any size
and get back the complete trimmed messages they finish, with any trailing
partial message carried over to the next feed.

A Session owns one endpoint and one framer and drives the connection state
machine (Disconnected, Connecting, Connected).  Callers poll the session at a
regular cadence; each poll performs one bounded read and drains whatever
messages completed.  Teardown is deterministic and idempotent on every exit
path - success, failure, or explicit disconnect.

# Error Handling

Neither endpoints nor the Session try to maintain a constant connection.
When the connection dies / is killed / fails the error is handed to the
caller, who has a better idea of what to do: the session drops to
Disconnected, releases everything it held, and reports once through the
status hook.
*/
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
