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

/*
linecat is a line-oriented terminal to a remote peripheral: think netcat,
but message framed and transport agnostic.  It lists reachable peers, opens a
session to one of them, forwards stdin lines to the peer, and prints each
line the peer sends back.

	linecat --list
	linecat 'bench supply [serial:///dev/ttyUSB0:9600]'
	linecat tcp://localhost:4001
*/
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/NCAR/termlink"
	flag "github.com/spf13/pflag"
)

var (
	peersFile = flag.String("peers", "", "YAML peer directory to load")
	list      = flag.BoolP("list", "l", false, "list known peers and exit")
	baud      = flag.Int("baud", 115200, "baud rate presented for discovered serial peers")
	timeout   = flag.Duration("timeout", 5*time.Second, "connection establishment timeout")
	interval  = flag.Duration("interval", termlink.DefaultPollInterval, "poll cadence")
)

func info(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "[INF] "+format+"\n", args...)
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "[ERR] "+format+"\n", args...)
}

/*
knownPeers merges the YAML directory (if any) with the host's serial
ports.  Discovery coming back empty is not fatal here - the target may be an
ad-hoc dial string.
*/
func knownPeers() termlink.Peers {
	peers := termlink.Peers{}
	if *peersFile != "" {
		loaded, err := termlink.LoadPeers(*peersFile)
		if err != nil {
			fail("peer directory: %v", err)
			os.Exit(1)
		}
		peers = append(peers, loaded...)
	}
	discovered, err := termlink.SerialPeers(*baud)
	if err != nil {
		info("serial discovery: %v", err)
	}
	return append(peers, discovered...)
}

func main() {
	flag.Parse()
	peers := knownPeers()

	if *list {
		fmt.Print(peers.String())
		return
	}
	if flag.NArg() != 1 {
		fail("usage: linecat [flags] <peer display id | dial string>")
		os.Exit(1)
	}

	//a raw dial string becomes an ad-hoc peer in the directory
	target := flag.Arg(0)
	if strings.Contains(target, "://") {
		adhoc := termlink.Peer{Name: "ad-hoc", Address: target}
		peers = append(peers, adhoc)
		target = adhoc.DisplayID()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	session := termlink.NewSession(
		&termlink.DialTransport{Directory: peers, Timeout: *timeout},
		termlink.Hooks{
			OnMessage: func(text string) { fmt.Println(text) },
			OnStatus: func(msg string, isErr bool) {
				if isErr {
					fail("%s", msg)
					return
				}
				info("%s", msg)
			},
			OnState: func(s termlink.State) {
				if s == termlink.Disconnected {
					cancel() //nothing left to poll once the session drops
				}
			},
		})

	if err := session.Connect(ctx, target); err != nil {
		os.Exit(1)
	}
	defer session.Disconnect()

	poller := &termlink.Poller{Session: session, Interval: *interval}
	go poller.Run(ctx)

	//forward stdin lines until EOF or the session drops
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if err := session.Send(line); err != nil {
				return
			}
		}
	}
}
