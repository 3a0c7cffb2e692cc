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
	"context"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"go.bug.st/serial"
	"gopkg.in/yaml.v3"
)

/*
Peer describes one reachable peripheral.  Name is the human label; Address
is a dial string understood by NewEndpoint (serial://, tcp://, ws://, ...).
*/
type Peer struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
}

/*
DisplayID returns the composed "<name> [<address>]" string used as the
unique selection key for this peer.  Uniqueness is the caller's problem: if
two peers compose the same string, the later one shadows the earlier during
lookup (see Peers.Find).
*/
func (p Peer) DisplayID() string {
	return fmt.Sprintf("%s [%s]", p.Name, p.Address)
}

// Peers is an ordered set of known peers, typically one discovery's output.
type Peers []Peer

/*
Find resolves a display id (see Peer.DisplayID) to a peer.  Lookup is
last-write-wins on display id collisions - later entries shadow earlier ones,
matching selection-map behaviour.  Returns ErrPeerNotFound when the id is not
in the set.
*/
func (ps Peers) Find(displayID string) (Peer, error) {
	byID := map[string]Peer{}
	for _, p := range ps {
		byID[p.DisplayID()] = p
	}
	if p, ok := byID[displayID]; ok {
		return p, nil
	}
	return Peer{}, ErrPeerNotFound
}

// String implements the Stringer() interface
func (ps Peers) String() string {
	buf := bytes.NewBufferString("")
	tw := tablewriter.NewWriter(buf)
	tw.SetAutoWrapText(false)
	tw.SetHeader([]string{"Name", "Address", "Display ID"})
	for _, p := range ps {
		tw.Append([]string{p.Name, p.Address, p.DisplayID()})
	}
	tw.Render()
	return buf.String()
}

/*
SerialPeers enumerates the serial ports on this host and presents each as
a peer dialing at the passed baud rate.  An enumeration failure means there
is no capable transport here and wraps ErrTransportUnavailable; an empty
enumeration returns ErrNoPeersFound.
*/
func SerialPeers(baud int) (Peers, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, errors.Wrap(ErrTransportUnavailable, err.Error())
	}
	if len(ports) == 0 {
		return nil, ErrNoPeersFound
	}
	peers := Peers{}
	for _, port := range ports {
		peers = append(peers, Peer{
			Name:    path.Base(port),
			Address: fmt.Sprintf("serial://%s:%d", port, baud),
		})
	}
	return peers, nil
}

/*
LoadPeers reads a YAML peer directory of the form:

	peers:
	  - name: bench supply
	    address: serial:///dev/ttyUSB0:9600
	  - name: chamber controller
	    address: tcp://10.1.2.3:4001
*/
func LoadPeers(file string) (Peers, error) {
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read peer directory %q", file)
	}
	var dir struct {
		Peers Peers `yaml:"peers"`
	}
	if err := yaml.Unmarshal(raw, &dir); err != nil {
		return nil, errors.Wrapf(err, "unable to parse peer directory %q", file)
	}
	if len(dir.Peers) == 0 {
		return nil, ErrNoPeersFound
	}
	return dir.Peers, nil
}

/*
Transport is what a Session needs from its environment: enumerate the
reachable peers, and establish a duplex stream to one of them.  Connect may
take unbounded wall-clock time; it must honor ctx cancellation.
*/
type Transport interface {
	Peers(ctx context.Context) (Peers, error)
	Connect(ctx context.Context, peer Peer) (StreamEndpoint, error)
}

var _ Transport = &DialTransport{}

/*
DialTransport is the default Transport: it serves a fixed peer directory
and dials peer addresses through the endpoint registry.  Timeout bounds each
connection attempt at the endpoint level.
*/
type DialTransport struct {
	Directory Peers
	Timeout   time.Duration
}

/*Peers returns the configured directory, or ErrNoPeersFound if it is empty*/
func (dt *DialTransport) Peers(context.Context) (Peers, error) {
	if len(dt.Directory) == 0 {
		return nil, ErrNoPeersFound
	}
	return dt.Directory, nil
}

/*Connect dials the peer's address through the endpoint registry*/
func (dt *DialTransport) Connect(ctx context.Context, peer Peer) (StreamEndpoint, error) {
	return NewEndpoint(ctx, dt.Timeout, peer.Address)
}
