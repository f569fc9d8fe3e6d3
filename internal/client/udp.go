// Package client implements the Client Receiver (component H): the
// thin terminal client that binds a UDP port, keeps the server
// informed of its liveness, and renders incoming quote records.
package client

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/ndrandal/feed-simulator/go-feed/internal/quote"
)

const (
	pingInterval      = 2 * time.Second
	socketReadTimeout = 500 * time.Millisecond
)

// UDPClient owns the local datagram endpoint used to receive quotes
// and send liveness pings. The server's address is not known up
// front: it is learned from the source address of the first inbound
// datagram, per the learn-then-ping design.
type UDPClient struct {
	conn *net.UDPConn
	out  io.Writer

	mu         sync.Mutex
	serverAddr *net.UDPAddr
}

// Bind opens a UDP socket on addr (an ephemeral port when addr's Port
// is 0). The read deadline is set per read by RunRecvLoop.
func Bind(addr *net.UDPAddr, out io.Writer) (*UDPClient, error) {
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, quote.ServerError("bind udp socket: %v", err)
	}
	return &UDPClient{conn: conn, out: out}, nil
}

// LocalAddr returns the bound local address.
func (c *UDPClient) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// Close releases the underlying socket.
func (c *UDPClient) Close() error {
	return c.conn.Close()
}

// learnServerAddr records addr as the ping target the first time it
// is observed; subsequent calls are no-ops, matching the spec's
// "first datagram source seen" rule.
func (c *UDPClient) learnServerAddr(addr *net.UDPAddr) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.serverAddr == nil {
		c.serverAddr = addr
	}
}

func (c *UDPClient) pingTarget() *net.UDPAddr {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverAddr
}

// RunPingLoop sends a "Ping" datagram to the learned server address
// every pingInterval until ctx is canceled. It is a no-op while no
// server address has been learned yet.
func (c *UDPClient) RunPingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if target := c.pingTarget(); target != nil {
				c.conn.WriteToUDP([]byte("Ping"), target)
			}
		}
	}
}

// RunRecvLoop reads datagrams until ctx is canceled, decoding each as
// a quote record and rendering it to out. Datagrams that do not
// decode as JSON (truncated or otherwise malformed) are silently
// dropped, per the error-handling design.
func (c *UDPClient) RunRecvLoop(ctx context.Context) {
	buf := make([]byte, 2048)
	for {
		if ctx.Err() != nil {
			return
		}

		c.conn.SetReadDeadline(time.Now().Add(socketReadTimeout))
		n, addr, err := c.conn.ReadFromUDP(buf)
		if err != nil {
			continue
		}

		c.learnServerAddr(addr)

		q, err := quote.Decode(buf[:n])
		if err != nil {
			continue
		}

		fmt.Fprintln(c.out, renderQuote(q))
	}
}

func renderQuote(q quote.Quote) string {
	return fmt.Sprintf("%-8s %10.2f  vol=%-8d  %s  @%d",
		q.Ticker, q.Price, q.Volume, q.Transaction, q.Timestamp)
}
