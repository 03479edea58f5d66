package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
)

// checkProxyTimeout bounds the SOCKS5 handshake check.
const checkProxyTimeout = 2 * time.Second

// maxRedirects is the redirect limit for every client.
const maxRedirects = 10

// Client hands out HTTP clients for one route: direct or through a SOCKS5
// proxy.
type Client struct {
	// proxyAddress is the SOCKS5 proxy in "host:port" form, empty for direct.
	proxyAddress string

	// dialer is the SOCKS5 dialer, nil for direct.
	dialer proxy.Dialer

	// timeout is the whole-request timeout of produced HTTP clients.
	timeout time.Duration

	// insecureTLS disables certificate verification.
	insecureTLS bool
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithInsecureTLS disables TLS certificate verification. Onion services
// often present self-signed certificates; the onion address itself
// authenticates the service.
func WithInsecureTLS(insecure bool) ClientOption {
	return func(c *Client) {
		c.insecureTLS = insecure
	}
}

// NewDirectClient returns a Client that connects without a proxy.
func NewDirectClient(timeout time.Duration, opts ...ClientOption) *Client {
	c := &Client{timeout: timeout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewProxyClient returns a Client that routes every connection through the
// SOCKS5 proxy at proxyAddress ("host:port", e.g. "127.0.0.1:9050").
// The proxy is not contacted here; use CheckConnection to verify it.
func NewProxyClient(proxyAddress string, timeout time.Duration, opts ...ClientOption) (*Client, error) {
	if !isValidProxyAddress(proxyAddress) {
		return nil, ErrInvalidProxyAddress
	}

	// Tor's SOCKS port does not use authentication.
	dialer, err := proxy.SOCKS5("tcp", proxyAddress, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	c := &Client{
		proxyAddress: proxyAddress,
		dialer:       dialer,
		timeout:      timeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// isValidProxyAddress checks for a non-empty host and a port in 1..65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}

// IsProxied reports whether connections go through a proxy.
func (c *Client) IsProxied() bool {
	return c.dialer != nil
}

// ProxyAddress returns the proxy address, or "" for a direct client.
func (c *Client) ProxyAddress() string {
	return c.proxyAddress
}

// Timeout returns the request timeout of produced HTTP clients.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// DialContext opens a TCP connection over the client's route.
func (c *Client) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if c.dialer == nil {
		var d net.Dialer
		return d.DialContext(ctx, network, address)
	}
	if cd, ok := c.dialer.(proxy.ContextDialer); ok {
		return cd.DialContext(ctx, network, address)
	}
	return c.dialer.Dial(network, address)
}

// HTTPClient returns a new HTTP client using the client's route.
// Each call returns a client with its own cookie jar and connection pool.
func (c *Client) HTTPClient() *http.Client {
	transport := &http.Transport{
		DialContext: c.DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: c.insecureTLS, //nolint:gosec // opt-in for .onion services
			MinVersion:         tls.VersionTLS12,
		},
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,
	}
	if c.dialer != nil {
		// Compressed sizes leak content over an anonymity network.
		transport.DisableCompression = true
	}

	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	return &http.Client{
		Transport: transport,
		Timeout:   c.timeout,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}

// HTTPClientWithConfig returns an HTTP client that adds cookie and headers
// to every request, including redirects. cookie is a raw Cookie header value
// such as "session=abc123".
func (c *Client) HTTPClientWithConfig(cookie string, headers map[string]string) *http.Client {
	client := c.HTTPClient()
	if cookie == "" && len(headers) == 0 {
		return client
	}

	client.Transport = &headerInjectingTransport{
		base:    client.Transport,
		cookie:  cookie,
		headers: headers,
	}
	return client
}

// headerInjectingTransport adds a cookie and fixed headers to each request.
type headerInjectingTransport struct {
	base    http.RoundTripper
	cookie  string
	headers map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if t.cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+t.cookie)
		} else {
			clone.Header.Set("Cookie", t.cookie)
		}
	}

	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}

	return t.base.RoundTrip(clone)
}

// SOCKS5 protocol constants.
const (
	socks5Version       = 0x05
	socks5AuthNone      = 0x00
	socks5CmdConnect    = 0x01
	socks5AddrTypeDomID = 0x03

	// socks5CheckHost is a syntactically valid but non-existent onion host.
	// Only the proxy's reply to CONNECT matters, not whether it succeeds.
	socks5CheckHost = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa.onion"
)

// CheckConnection verifies the route is usable. A direct client is always
// OK. For a proxy, a SOCKS5 greeting and a CONNECT request are exchanged;
// any well-formed CONNECT reply, success or failure, counts as OK.
func (c *Client) CheckConnection(ctx context.Context) ProxyStatus {
	if c.dialer == nil {
		return ProxyStatusOK
	}

	ctx, cancel := context.WithTimeout(ctx, checkProxyTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.proxyAddress)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ProxyStatusTimeout
		}
		return ProxyStatusCannotConnect
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(checkProxyTimeout)); err != nil {
		return ProxyStatusCannotConnect
	}

	if _, err := conn.Write([]byte{socks5Version, 0x01, socks5AuthNone}); err != nil {
		return ProxyStatusCannotConnect
	}

	greeting := make([]byte, 2)
	if _, err := io.ReadFull(conn, greeting); err != nil {
		return readFailure(err)
	}
	if greeting[0] != socks5Version || greeting[1] != socks5AuthNone {
		return ProxyStatusWrongType
	}

	req := []byte{socks5Version, socks5CmdConnect, 0x00, socks5AddrTypeDomID, byte(len(socks5CheckHost))}
	req = append(req, socks5CheckHost...)
	req = append(req, 0x00, 80)
	if _, err := conn.Write(req); err != nil {
		return ProxyStatusCannotConnect
	}

	reply := make([]byte, 4)
	if _, err := io.ReadFull(conn, reply); err != nil {
		return readFailure(err)
	}
	if reply[0] != socks5Version {
		return ProxyStatusWrongType
	}

	return ProxyStatusOK
}

// readFailure classifies a handshake read error.
func readFailure(err error) ProxyStatus {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ProxyStatusTimeout
	}
	return ProxyStatusWrongType
}
