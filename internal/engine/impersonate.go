package engine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	utls "github.com/refraction-networking/utls"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	xproxy "golang.org/x/net/proxy"

	"github.com/veilcrawl/veil/internal/challenge"
	"github.com/veilcrawl/veil/internal/identity"
	"github.com/veilcrawl/veil/internal/pacing"
	"github.com/veilcrawl/veil/internal/proxy"
	"github.com/veilcrawl/veil/internal/target"
	"github.com/veilcrawl/veil/pkg/models"
)

const (
	// minUsableBody is the threshold below which a 2xx body is treated as a
	// block page in disguise. Real documents are rarely this small; soft
	// blocks frequently are.
	minUsableBody = 500

	maxBodyBytes = 10 << 20
)

// ImpersonateStrategy fetches over raw HTTP with a browser-grade TLS
// fingerprint. It is the cheapest strategy and always tried first for
// clearnet targets.
type ImpersonateStrategy struct {
	timeout  time.Duration
	pacer    *pacing.Policy
	detector *challenge.Detector
}

// NewImpersonateStrategy creates the strategy. pacer and detector may be nil;
// the corresponding checks are then skipped.
func NewImpersonateStrategy(timeout time.Duration, pacer *pacing.Policy, detector *challenge.Detector) *ImpersonateStrategy {
	return &ImpersonateStrategy{
		timeout:  timeout,
		pacer:    pacer,
		detector: detector,
	}
}

// Name returns the strategy identifier.
func (s *ImpersonateStrategy) Name() models.StrategyName {
	return models.StrategyImpersonate
}

// Fetch performs one impersonated request through ep. An empty endpoint
// means direct egress; SOCKS and HTTP proxies are both honored.
func (s *ImpersonateStrategy) Fetch(ctx context.Context, tgt target.Target, ep proxy.Endpoint) (*models.FetchResult, *Failure) {
	if s.pacer != nil {
		if err := s.pacer.Throttle(ctx, tgt.Host()); err != nil {
			return nil, NewFailure(classify(err), s.Name(), err, "host throttle interrupted")
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tgt.URL(), nil)
	if err != nil {
		return nil, NewFailure(KindSessionInit, s.Name(), err, "request construction failed")
	}
	ua := identity.RandomUserAgent()
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	transport, err := newImpersonatedTransport(ep)
	if err != nil {
		return nil, NewFailure(KindSessionInit, s.Name(), err, "transport setup failed")
	}

	start := time.Now()
	resp, err := transport.RoundTrip(req)
	if err != nil {
		return nil, NewFailure(classify(err), s.Name(), err, "request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, NewFailure(classify(err), s.Name(), err, "body read failed")
	}
	elapsed := time.Since(start)
	html := string(raw)

	log.Debug().
		Str("url", tgt.URL()).
		Int("status", resp.StatusCode).
		Int("bytes", len(raw)).
		Dur("elapsed", elapsed).
		Msg("Impersonated fetch completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, NewFailure(KindBlocked, s.Name(), nil,
			fmt.Sprintf("origin returned status %d", resp.StatusCode))
	}
	if len(raw) < minUsableBody {
		return nil, NewFailure(KindBlocked, s.Name(), nil,
			fmt.Sprintf("body too small (%d bytes), likely a block page", len(raw)))
	}
	if s.detector != nil && s.detector.DetectHTML(html) {
		return nil, NewFailure(KindBlocked, s.Name(), nil,
			"challenge interstitial served, needs a rendered session")
	}

	return &models.FetchResult{
		URL:          tgt.URL(),
		Strategy:     s.Name(),
		StatusCode:   resp.StatusCode,
		Title:        extractTitle(html),
		HTML:         html,
		Headers:      flattenHeaders(resp.Header),
		FetchedAt:    time.Now().UTC(),
		ResponseTime: elapsed.Milliseconds(),
	}, nil
}

// impersonatedTransport dials its own connections so the TLS ClientHello can
// be shaped to match a real Chrome, then speaks h2 or http/1.1 depending on
// what the origin negotiates. One transport serves one attempt; connections
// are not reused.
type impersonatedTransport struct {
	proxyURL *url.URL
}

func newImpersonatedTransport(ep proxy.Endpoint) (*impersonatedTransport, error) {
	t := &impersonatedTransport{}
	if ep.URL() != "" {
		u, err := url.Parse(ep.URL())
		if err != nil {
			return nil, fmt.Errorf("invalid proxy %q: %w", ep.URL(), err)
		}
		t.proxyURL = u
	}
	return t, nil
}

func (t *impersonatedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme == "http" {
		return t.plainRoundTrip(req)
	}

	host := req.URL.Hostname()
	port := req.URL.Port()
	if port == "" {
		port = "443"
	}

	conn, err := t.dial(req.Context(), net.JoinHostPort(host, port))
	if err != nil {
		return nil, err
	}

	uconn := utls.UClient(conn, &utls.Config{ServerName: host}, utls.HelloChrome_Auto)
	if err := uconn.HandshakeContext(req.Context()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tls handshake failed: %w", err)
	}

	if uconn.ConnectionState().NegotiatedProtocol == "h2" {
		tr := &http2.Transport{}
		cc, err := tr.NewClientConn(uconn)
		if err != nil {
			uconn.Close()
			return nil, err
		}
		resp, err := cc.RoundTrip(req)
		if err != nil {
			uconn.Close()
			return nil, err
		}
		resp.Body = &connClosingBody{ReadCloser: resp.Body, conn: uconn}
		return resp, nil
	}

	req.Close = true
	if err := req.Write(uconn); err != nil {
		uconn.Close()
		return nil, err
	}
	resp, err := http.ReadResponse(bufio.NewReader(uconn), req)
	if err != nil {
		uconn.Close()
		return nil, err
	}
	resp.Body = &connClosingBody{ReadCloser: resp.Body, conn: uconn}
	return resp, nil
}

// plainRoundTrip handles http targets with a throwaway standard transport.
// There is no fingerprint to shape without TLS.
func (t *impersonatedTransport) plainRoundTrip(req *http.Request) (*http.Response, error) {
	tr := &http.Transport{DisableKeepAlives: true}
	if t.proxyURL != nil {
		switch t.proxyURL.Scheme {
		case "socks5", "socks5h":
			dialer, err := socksDialer(t.proxyURL)
			if err != nil {
				return nil, err
			}
			tr.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
				if cd, ok := dialer.(xproxy.ContextDialer); ok {
					return cd.DialContext(ctx, network, addr)
				}
				return dialer.Dial(network, addr)
			}
		default:
			tr.Proxy = http.ProxyURL(t.proxyURL)
		}
	}
	defer tr.CloseIdleConnections()
	return tr.RoundTrip(req)
}

// dial establishes the TCP path to addr: direct, through a SOCKS5 proxy, or
// through an HTTP proxy via CONNECT.
func (t *impersonatedTransport) dial(ctx context.Context, addr string) (net.Conn, error) {
	d := &net.Dialer{}

	if t.proxyURL == nil {
		return d.DialContext(ctx, "tcp", addr)
	}

	switch t.proxyURL.Scheme {
	case "socks5", "socks5h":
		dialer, err := socksDialer(t.proxyURL)
		if err != nil {
			return nil, err
		}
		if cd, ok := dialer.(xproxy.ContextDialer); ok {
			return cd.DialContext(ctx, "tcp", addr)
		}
		return dialer.Dial("tcp", addr)
	default:
		return t.connectViaHTTPProxy(ctx, addr)
	}
}

// connectViaHTTPProxy tunnels to addr with an HTTP CONNECT through the proxy.
func (t *impersonatedTransport) connectViaHTTPProxy(ctx context.Context, addr string) (net.Conn, error) {
	d := &net.Dialer{}
	conn, err := d.DialContext(ctx, "tcp", t.proxyURL.Host)
	if err != nil {
		return nil, fmt.Errorf("proxy dial failed: %w", err)
	}

	connect := &http.Request{
		Method: http.MethodConnect,
		URL:    &url.URL{Opaque: addr},
		Host:   addr,
		Header: http.Header{},
	}
	if u := t.proxyURL.User; u != nil {
		pass, _ := u.Password()
		connect.SetBasicAuth(u.Username(), pass)
		connect.Header.Set("Proxy-Authorization", connect.Header.Get("Authorization"))
		connect.Header.Del("Authorization")
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	if err := connect.Write(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("proxy CONNECT write failed: %w", err)
	}
	resp, err := http.ReadResponse(bufio.NewReader(conn), connect)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("proxy CONNECT read failed: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		conn.Close()
		return nil, fmt.Errorf("proxy refused CONNECT: %s", resp.Status)
	}
	_ = conn.SetDeadline(time.Time{})
	return conn, nil
}

func socksDialer(u *url.URL) (xproxy.Dialer, error) {
	var auth *xproxy.Auth
	if user := u.User; user != nil {
		pass, _ := user.Password()
		auth = &xproxy.Auth{User: user.Username(), Password: pass}
	}
	return xproxy.SOCKS5("tcp", u.Host, auth, xproxy.Direct)
}

// connClosingBody ties the lifetime of a response body to its underlying
// connection, so closing the body releases the socket on both the h2 and
// http/1.1 paths.
type connClosingBody struct {
	io.ReadCloser
	conn net.Conn
}

func (b *connClosingBody) Close() error {
	err := b.ReadCloser.Close()
	if cerr := b.conn.Close(); err == nil {
		err = cerr
	}
	return err
}
