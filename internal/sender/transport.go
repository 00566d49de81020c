// Package sender implements the consumer side of the datagram ring: drain
// published slots, ship each one over UDP or TCP, track running send
// statistics, and tap the body bytes to a local WAV file when configured.
// Grounded on spec.md §4.6, with the retained-on-failure slot semantics and
// transport split adapted from zsiec-prism's dial/retry and atomic-stats
// conventions (ingest/srt/caller.go, distribution/streamstats.go).
package sender

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"
)

// ErrLinkDown is returned by Transport.Send when the underlying connection
// is no longer usable and the supervisor must re-establish it: spec.md §7's
// "Link-down" category (socket returned NO_CONNECTION | CONNECTION_LOST |
// NO_SOCKET).
var ErrLinkDown = errors.New("sender: link down")

// ErrTransientSend is returned by Transport.Send for spec.md §7's "Transient
// send" and "TCP deadline" categories: a short write, an ordinary write
// timeout, or any other error not recognized as a fatal socket condition.
// These are recovered by retry on the next ready event and only contribute
// to num_send_failures, never to Connected() going false on their own.
var ErrTransientSend = errors.New("sender: transient send")

// classifySendErr maps a raw write error onto ErrLinkDown or
// ErrTransientSend. Only a closed, refused, reset, or broken-pipe socket is
// fatal; everything else (including a deadline timeout, handled separately
// by callers) is transient, per spec.md §7.
func classifySendErr(err error) error {
	if errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return fmt.Errorf("%w: %v", ErrLinkDown, err)
	}
	return fmt.Errorf("%w: %v", ErrTransientSend, err)
}

// Transport abstracts the wire-level send so udpTransport and tcpTransport
// can each stay small and independently testable against loopback sockets
// (per spec.md §4.6's UDP one-shot-sendto vs TCP retry-bounded-by-deadline
// split).
type Transport interface {
	// Send transmits datagram in full or returns ErrTransientSend (a
	// recoverable failure, retried on the next ready event) or ErrLinkDown
	// (the socket is gone; the caller must disconnect). It never returns a
	// short write as success.
	Send(datagram []byte) error
	// Close releases the underlying connection.
	Close() error
}

// tcpSendTimeout bounds TCP's retry loop, per spec.md §4.6.
const tcpSendTimeout = 1500 * time.Millisecond

// DialUDP opens a UDP transport to addr. UDP is connectionless on the wire,
// but net.DialUDP gives us a connected socket so Write can be used directly.
func DialUDP(addr string) (Transport, error) {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("sender: resolve udp addr: %w", err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("sender: dial udp: %w", err)
	}
	return &udpTransport{conn: conn}, nil
}

// DialTCP opens a TCP transport to addr and sets TCP_NODELAY immediately
// after connect, per spec.md §4.6.
func DialTCP(addr string) (Transport, error) {
	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("sender: dial tcp: %w", err)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		if err := tc.SetNoDelay(true); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sender: set nodelay: %w", err)
		}
	}
	return &tcpTransport{conn: conn}, nil
}

type udpTransport struct {
	conn *net.UDPConn
}

// Send performs one sendto; success iff the full datagram was accepted in a
// single write, per spec.md §4.6.
func (t *udpTransport) Send(datagram []byte) error {
	n, err := t.conn.Write(datagram)
	if err != nil {
		return classifySendErr(err)
	}
	if n != len(datagram) {
		return fmt.Errorf("%w: short write %d/%d", ErrTransientSend, n, len(datagram))
	}
	return nil
}

func (t *udpTransport) Close() error { return t.conn.Close() }

type tcpTransport struct {
	conn net.Conn
}

// Send retries partial writes until datagram is fully sent or
// tcpSendTimeout elapses, per spec.md §4.6.
func (t *tcpTransport) Send(datagram []byte) error {
	deadline := time.Now().Add(tcpSendTimeout)
	if err := t.conn.SetWriteDeadline(deadline); err != nil {
		return classifySendErr(err)
	}

	sent := 0
	for sent < len(datagram) {
		n, err := t.conn.Write(datagram[sent:])
		sent += n
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return fmt.Errorf("%w: tcp send timeout", ErrTransientSend)
			}
			return classifySendErr(err)
		}
	}
	return nil
}

func (t *tcpTransport) Close() error { return t.conn.Close() }
