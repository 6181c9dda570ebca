package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/senutpal/lamportchat/internal/lamport"
)

type TCPOptions struct {
	// DialTimeout bounds each outbound connection attempt. Zero means no
	// limit beyond ctx.
	DialTimeout time.Duration

	// ReadTimeout bounds how long a sender may keep an inbound connection
	// open. Zero means no limit.
	ReadTimeout time.Duration

	Logger *log.Logger
}

type TCPTransport struct {
	ln     net.Listener
	opts   TCPOptions
	logger *log.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// ListenTCP binds addr (host:port, port 0 picks one) with address reuse
// enabled so a restarted peer can rebind its configured port at once.
func ListenTCP(addr string, opts TCPOptions) (*TCPTransport, error) {
	lc := net.ListenConfig{Control: reuseAddrControl}
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &TCPTransport{ln: ln, opts: opts, logger: logger}, nil
}

func (t *TCPTransport) Addr() string {
	return t.ln.Addr().String()
}

// Serve accepts until Close. Temporary accept failures, such as running out
// of file descriptors, are retried with growing pauses; only a permanent
// listener error ends the loop early.
func (t *TCPTransport) Serve(h Handler) error {
	t.logger.Printf("endpoint running at %s", t.Addr())
	retry := newAcceptBackOff()
	for {
		conn, err := t.ln.Accept()
		if err != nil {
			if t.isClosed() {
				t.wg.Wait()
				return ErrClosed
			}
			if !temporary(err) {
				t.logger.Printf("accept error: %v", err)
				t.wg.Wait()
				return err
			}
			delay := retry.NextBackOff()
			t.logger.Printf("accept error: %v; retrying in %v", err, delay)
			time.Sleep(delay)
			continue
		}
		retry.Reset()
		t.wg.Add(1)
		go t.handleConn(conn, h)
	}
}

func newAcceptBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

func temporary(err error) bool {
	var ne interface {
		Timeout() bool
		Temporary() bool
	}
	if !errors.As(err, &ne) {
		return false
	}
	return ne.Timeout() || ne.Temporary()
}

func (t *TCPTransport) handleConn(conn net.Conn, h Handler) {
	defer t.wg.Done()

	if t.opts.ReadTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(t.opts.ReadTimeout))
	}
	buf, err := readFrame(conn)
	conn.Close()
	if err != nil {
		t.logger.Printf("receive from %s: %v", conn.RemoteAddr(), err)
		return
	}
	if len(buf) == 0 {
		// reachability probe
		return
	}

	msg, err := Decode(buf)
	if err != nil {
		t.logger.Printf("dropping connection from %s: %v", conn.RemoteAddr(), err)
		return
	}
	h(msg)
}

func (t *TCPTransport) Send(ctx context.Context, to string, msg lamport.Message) error {
	buf, err := Encode(msg)
	if err != nil {
		return err
	}

	conn, err := t.dial(ctx, to)
	if err != nil {
		return err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetWriteDeadline(deadline)
	}
	if _, err := conn.Write(buf); err != nil {
		return fmt.Errorf("send to %s: %w", to, err)
	}
	return nil
}

// Probe connects to the peer and hangs up without writing. Receivers treat
// an empty connection as a probe.
func (t *TCPTransport) Probe(ctx context.Context, to string) error {
	conn, err := t.dial(ctx, to)
	if err != nil {
		return err
	}
	return conn.Close()
}

func (t *TCPTransport) dial(ctx context.Context, to string) (net.Conn, error) {
	if t.isClosed() {
		return nil, ErrClosed
	}
	d := net.Dialer{Timeout: t.opts.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", to)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreachable, to, err)
	}
	return conn, nil
}

func (t *TCPTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()
	return t.ln.Close()
}

func (t *TCPTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}
