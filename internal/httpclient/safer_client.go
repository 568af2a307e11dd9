package httpclient

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/heraldai/herald/errors"
)

// Outbound wraps http.Client with SSRF protection for requests to
// user-configured targets (webhook URLs, agent runner endpoints).
type Outbound struct {
	*http.Client
	allowedSchemes []string
	blockPrivateIP bool
	allowLoopback  bool
	maxRedirects   int
}

// Options customizes SSRF protection.
type Options struct {
	AllowedSchemes []string // Default: ["http", "https"]
	MaxRedirects   *int     // Default: 10
	BlockPrivateIP *bool    // Default: true
	AllowLoopback  bool     // Permit loopback targets while still blocking other private ranges
}

// New creates an outbound HTTP client with full SSRF protection.
// Webhook deliveries use this: no private IPs, no localhost.
func New(timeout time.Duration) *Outbound {
	return NewWithOptions(timeout, Options{})
}

// NewWithOptions creates an outbound HTTP client with custom SSRF protection.
// The agent runner client sets AllowLoopback since the runner usually
// listens on localhost.
func NewWithOptions(timeout time.Duration, opts Options) *Outbound {
	blockPrivateIP := true
	if opts.BlockPrivateIP != nil {
		blockPrivateIP = *opts.BlockPrivateIP
	}

	maxRedirects := 10
	if opts.MaxRedirects != nil {
		maxRedirects = *opts.MaxRedirects
	}

	allowedSchemes := []string{"http", "https"}
	if opts.AllowedSchemes != nil {
		allowedSchemes = opts.AllowedSchemes
	}

	c := &Outbound{
		Client: &http.Client{
			Timeout: timeout,
		},
		allowedSchemes: allowedSchemes,
		blockPrivateIP: blockPrivateIP,
		allowLoopback:  opts.AllowLoopback,
		maxRedirects:   maxRedirects,
	}

	// Redirect policy re-validates every hop so a public URL cannot
	// bounce the request into a private range.
	c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= c.maxRedirects {
			return errors.Newf("stopped after %d redirects", c.maxRedirects)
		}
		if err := c.validateURL(req.URL); err != nil {
			return errors.Wrap(err, "redirect blocked")
		}
		return nil
	}

	if blockPrivateIP {
		c.Transport = c.guardedTransport()
	}

	return c
}

// guardedTransport resolves hostnames at dial time and rejects private
// destinations, closing the DNS rebinding hole that URL validation alone
// leaves open.
func (c *Outbound) guardedTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	return &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, _, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, errors.Wrap(err, "invalid address")
			}

			ips, err := net.DefaultResolver.LookupIP(ctx, "ip", host)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to resolve host %q", host)
			}

			for _, ip := range ips {
				if c.blockedIP(ip) {
					return nil, errors.Newf("private IP address blocked: %s", ip)
				}
			}

			return dialer.DialContext(ctx, network, addr)
		},
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// blockedIP reports whether a resolved IP must be rejected under the
// client's policy.
func (c *Outbound) blockedIP(ip net.IP) bool {
	if c.allowLoopback && ip.IsLoopback() {
		return false
	}
	return isPrivateIP(ip)
}

// validateURL applies the scheme allowlist and private-target policy
// to an already-parsed URL.
func (c *Outbound) validateURL(u *url.URL) error {
	scheme := strings.ToLower(u.Scheme)
	allowed := false
	for _, allowedScheme := range c.allowedSchemes {
		if scheme == allowedScheme {
			allowed = true
			break
		}
	}
	if !allowed {
		return errors.Newf("scheme %q not allowed (allowed: %v)", scheme, c.allowedSchemes)
	}

	// Could be credential injection or URL confusion: http://evil.com@localhost/
	if strings.Contains(u.String(), "@") {
		return errors.New("URL contains @ character (potential SSRF attempt)")
	}

	hostname := u.Hostname()
	if hostname == "" {
		return errors.New("URL missing hostname")
	}

	if c.blockPrivateIP {
		if isLocalhost(hostname) && !c.allowLoopback {
			return errors.New("localhost access blocked")
		}

		// Literal IPs checked here; hostname resolution is guarded by DialContext
		if ip := net.ParseIP(hostname); ip != nil && c.blockedIP(ip) {
			return errors.Newf("private IP address blocked: %s", hostname)
		}
	}

	return nil
}

// ValidateURL parses and validates a URL string. Callers use it to
// reject bad webhook or runner targets at config time, before any
// request is attempted.
func (c *Outbound) ValidateURL(urlStr string) (*url.URL, error) {
	u, err := url.Parse(urlStr)
	if err != nil {
		return nil, errors.Wrap(err, "invalid URL")
	}

	if err := c.validateURL(u); err != nil {
		return nil, err
	}

	return u, nil
}

// isPrivateIP reports whether an IP falls in a private or special-use
// range. Public IPv6 is treated like public IPv4: allowed here, with
// resolution guarded at dial time.
func isPrivateIP(ip net.IP) bool {
	// RFC 1918 private networks plus loopback, link-local, and reserved ranges
	privateBlocks := []net.IPNet{
		{IP: net.IPv4(10, 0, 0, 0), Mask: net.CIDRMask(8, 32)},     // 10.0.0.0/8
		{IP: net.IPv4(172, 16, 0, 0), Mask: net.CIDRMask(12, 32)},  // 172.16.0.0/12
		{IP: net.IPv4(192, 168, 0, 0), Mask: net.CIDRMask(16, 32)}, // 192.168.0.0/16
		{IP: net.IPv4(127, 0, 0, 0), Mask: net.CIDRMask(8, 32)},    // 127.0.0.0/8 (loopback)
		{IP: net.IPv4(169, 254, 0, 0), Mask: net.CIDRMask(16, 32)}, // 169.254.0.0/16 (link-local)
		{IP: net.IPv4(0, 0, 0, 0), Mask: net.CIDRMask(8, 32)},      // 0.0.0.0/8
		{IP: net.IPv4(224, 0, 0, 0), Mask: net.CIDRMask(4, 32)},    // 224.0.0.0/4 (multicast)
		{IP: net.IPv4(240, 0, 0, 0), Mask: net.CIDRMask(4, 32)},    // 240.0.0.0/4 (reserved)
	}

	if ip4 := ip.To4(); ip4 != nil {
		for _, block := range privateBlocks {
			if block.Contains(ip4) {
				return true
			}
		}
		return false
	}

	// IPv6 private/special addresses
	if len(ip) == net.IPv6len {
		if ip.IsLoopback() {
			return true
		}
		if ip.IsLinkLocalUnicast() {
			return true
		}
		if ip.IsMulticast() {
			return true
		}
		if ip.IsUnspecified() {
			return true
		}

		// Unique local addresses (fc00::/7), the IPv6 equivalent of RFC 1918
		if (ip[0] & 0xfe) == 0xfc {
			return true
		}

		// Site-local (fec0::/10), deprecated but still blocked
		if ip[0] == 0xfe && (ip[1]&0xc0) == 0xc0 {
			return true
		}

		// Documentation prefix (2001:db8::/32)
		if ip[0] == 0x20 && ip[1] == 0x01 && ip[2] == 0x0d && ip[3] == 0xb8 {
			return true
		}

		return false
	}

	return false
}

// isLocalhost matches localhost and its reserved-name variants,
// including any *.localhost subdomain.
func isLocalhost(hostname string) bool {
	hostname = strings.ToLower(hostname)
	return hostname == "localhost" ||
		hostname == "localhost.localdomain" ||
		strings.HasSuffix(hostname, ".localhost")
}

// Get issues a GET after validating the target.
func (c *Outbound) Get(urlStr string) (*http.Response, error) {
	if _, err := c.ValidateURL(urlStr); err != nil {
		return nil, err
	}
	return c.Client.Get(urlStr)
}

// Do executes a prepared request after validating its target. Build
// POST bodies with http.NewRequestWithContext and hand them here.
func (c *Outbound) Do(req *http.Request) (*http.Response, error) {
	if err := c.validateURL(req.URL); err != nil {
		return nil, errors.Wrap(err, "request blocked by SSRF protection")
	}
	return c.Client.Do(req)
}

// WrapClient wraps an existing http.Client in an Outbound with the
// SSRF checks disabled. Only for tests that need to reach httptest
// servers on loopback.
func WrapClient(client *http.Client) *Outbound {
	return &Outbound{
		Client:         client,
		allowedSchemes: []string{"http", "https"},
		blockPrivateIP: false,
		maxRedirects:   10,
	}
}
