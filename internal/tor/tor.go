// Package tor provides anonymity-network egress: a SOCKS5 dialer for the
// local Tor daemon and a control-port client used to request fresh circuits.
package tor

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/textproto"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/proxy"
)

const (
	// DefaultSocksAddr is the standard Tor SOCKS5 listener.
	DefaultSocksAddr = "127.0.0.1:9050"

	// DefaultControlAddr is the standard Tor control port.
	DefaultControlAddr = "127.0.0.1:9051"

	// DefaultSettleDelay is how long a new circuit is given to establish
	// before the renewal is reported as complete.
	DefaultSettleDelay = 10 * time.Second

	controlDialTimeout = 5 * time.Second
)

// Dialer returns a SOCKS5 dialer routed through the Tor daemon at socksAddr.
// Tor's SOCKS port does not require authentication.
func Dialer(socksAddr string) (proxy.Dialer, error) {
	if _, _, err := net.SplitHostPort(socksAddr); err != nil {
		return nil, fmt.Errorf("invalid tor SOCKS address %q: %w", socksAddr, err)
	}
	dialer, err := proxy.SOCKS5("tcp", socksAddr, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}
	return dialer, nil
}

// NewHTTPClient returns an HTTP client whose connections are routed through
// the Tor daemon at socksAddr. DNS resolution happens at the Tor exit, which
// is what makes .onion hosts resolvable.
func NewHTTPClient(socksAddr string, timeout time.Duration) (*http.Client, error) {
	dialer, err := Dialer(socksAddr)
	if err != nil {
		return nil, err
	}

	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			if cd, ok := dialer.(proxy.ContextDialer); ok {
				return cd.DialContext(ctx, network, addr)
			}
			return dialer.Dial(network, addr)
		},
		// One connection per circuit; keeping idle conns alive would pin the
		// old exit identity after a renewal.
		DisableKeepAlives: true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}, nil
}

// Controller talks to the Tor control port. It issues the NEWNYM signal to
// request a circuit with a new apparent egress identity.
type Controller struct {
	controlAddr string
	password    string
	settleDelay time.Duration
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithSettleDelay overrides the post-renewal settle duration.
func WithSettleDelay(d time.Duration) ControllerOption {
	return func(c *Controller) {
		c.settleDelay = d
	}
}

// NewController creates a control-port client. The password may be empty when
// the daemon accepts unauthenticated control connections.
func NewController(controlAddr, password string, opts ...ControllerOption) *Controller {
	c := &Controller{
		controlAddr: controlAddr,
		password:    password,
		settleDelay: DefaultSettleDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewCircuit authenticates against the control port, sends SIGNAL NEWNYM, and
// blocks for the settle delay so the next request uses the fresh circuit.
// Failure to connect or authenticate is returned, not fatal to the caller.
func (c *Controller) NewCircuit(ctx context.Context) error {
	conn, err := net.DialTimeout("tcp", c.controlAddr, controlDialTimeout)
	if err != nil {
		return fmt.Errorf("tor control connect failed: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(controlDialTimeout))
	}

	tp := textproto.NewConn(conn)
	defer tp.Close()

	if err := c.command(tp, fmt.Sprintf("AUTHENTICATE %q", c.password)); err != nil {
		return fmt.Errorf("tor control authentication failed: %w", err)
	}
	if err := c.command(tp, "SIGNAL NEWNYM"); err != nil {
		return fmt.Errorf("tor NEWNYM signal failed: %w", err)
	}
	_ = tp.PrintfLine("QUIT")

	log.Debug().Dur("settle", c.settleDelay).Msg("New circuit requested, waiting for it to settle")

	select {
	case <-time.After(c.settleDelay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// command sends one control-port line and expects a 250 reply.
func (c *Controller) command(tp *textproto.Conn, line string) error {
	if err := tp.PrintfLine("%s", line); err != nil {
		return err
	}
	reply, err := tp.ReadLine()
	if err != nil {
		return err
	}
	if len(reply) < 3 || reply[:3] != "250" {
		return fmt.Errorf("unexpected control reply %q", reply)
	}
	return nil
}
