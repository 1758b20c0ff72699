package wsclient

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	xproxy "golang.org/x/net/proxy"
	"nhooyr.io/websocket"

	"github.com/unkn0wn-root/wsterm/internal/connect"
	"github.com/unkn0wn-root/wsterm/internal/cookies"
	"github.com/unkn0wn-root/wsterm/internal/errdef"
	"github.com/unkn0wn-root/wsterm/internal/stream"
	"github.com/unkn0wn-root/wsterm/internal/telemetry"
)

const defaultHandshakeTimeout = 10 * time.Second

type Options struct {
	HandshakeTimeout   time.Duration
	InsecureSkipVerify bool
	ProxyURL           string
	UserAgent          string
}

type DialFunc func(
	ctx context.Context,
	u string,
	opts *websocket.DialOptions,
) (*websocket.Conn, *http.Response, error)

// CookieWriter receives cookies set by the handshake response. *cookies.Store
// satisfies it.
type CookieWriter interface {
	SetCookie(jarID string, c cookies.Cookie) error
	DeleteCookie(jarID, name string) error
}

// Client owns connection lifecycle. The composer hands it resolved commands;
// everything after the dial (frames, close codes, failures) surfaces through
// the handle's stream session, never through the composer.
type Client struct {
	opts      Options
	dial      DialFunc
	telemetry telemetry.Instrumenter
	cookies   CookieWriter
}

// Handle is the live half of an open command.
type Handle struct {
	RequestID   string
	URL         string
	Session     *stream.Session
	Sender      *Sender
	ConnectedAt time.Time
}

func NewClient(opts Options) *Client {
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = defaultHandshakeTimeout
	}
	return &Client{opts: opts, telemetry: telemetry.Noop()}
}

// SetDialFunc swaps the dialer, used by tests.
func (c *Client) SetDialFunc(dial DialFunc) {
	c.dial = dial
}

func (c *Client) SetTelemetry(instr telemetry.Instrumenter) {
	if instr != nil {
		c.telemetry = instr
	}
}

// SetCookieStore wires the jar store that persists Set-Cookie headers from
// upgrade responses. Without one, response cookies are dropped.
func (c *Client) SetCookieStore(writer CookieWriter) {
	c.cookies = writer
}

// Open dials the command's URL and returns a handle with running read/write
// loops. The handshake gets its own timeout; the session then lives until
// explicitly closed or the parent context cancels.
func (c *Client) Open(ctx context.Context, cmd *connect.Command) (*Handle, error) {
	if cmd == nil || strings.TrimSpace(cmd.URL) == "" {
		return nil, errdef.New(errdef.CodeWebSocket, "connect command missing url")
	}

	target, err := url.Parse(cmd.URL)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeWebSocket, err, "parse url %q", cmd.URL)
	}

	header := make(http.Header, len(cmd.Headers)+2)
	for _, entry := range cmd.Headers {
		header.Add(entry.Name, entry.Value)
	}
	if cmd.Jar != nil {
		if cookieHeader := cmd.Jar.HeaderValue(target); cookieHeader != "" && header.Get("Cookie") == "" {
			header.Set("Cookie", cookieHeader)
		}
	}
	if cmd.SuppressUserAgent {
		// An empty value tells net/http to omit the header entirely instead
		// of falling back to its default agent string.
		header.Set("User-Agent", "")
	} else if header.Get("User-Agent") == "" {
		ua := c.opts.UserAgent
		if ua == "" {
			ua = "wsterm"
		}
		header.Set("User-Agent", ua)
	}

	httpClient, err := c.buildHTTPClient()
	if err != nil {
		return nil, err
	}

	dialOpts := &websocket.DialOptions{
		HTTPHeader:   header,
		HTTPClient:   httpClient,
		Subprotocols: append([]string(nil), cmd.Options.Subprotocols...),
	}
	if cmd.Options.CompressionSet {
		if cmd.Options.Compression {
			dialOpts.CompressionMode = websocket.CompressionNoContextTakeover
		} else {
			dialOpts.CompressionMode = websocket.CompressionDisabled
		}
	}

	handshakeTimeout := cmd.Options.HandshakeTimeout
	if handshakeTimeout <= 0 {
		handshakeTimeout = c.opts.HandshakeTimeout
	}
	handshakeCtx, handshakeCancel := context.WithTimeout(ctx, handshakeTimeout)
	defer handshakeCancel()

	dial := c.dial
	if dial == nil {
		dial = websocket.Dial
	}

	dialCtx, span := c.telemetry.Start(handshakeCtx, telemetry.ConnectionStart{
		URL:       cmd.URL,
		RequestID: cmd.RequestID,
	})
	conn, resp, err := dial(dialCtx, cmd.URL, dialOpts)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
			if resp.Body != nil {
				_ = resp.Body.Close()
			}
		}
		dialErr := errdef.Wrap(errdef.CodeWebSocket, err, "dial websocket")
		span.End(telemetry.ConnectionResult{Err: dialErr, HandshakeStatus: status})
		return nil, dialErr
	}
	span.End(telemetry.ConnectionResult{HandshakeStatus: http.StatusSwitchingProtocols})
	c.persistResponseCookies(cmd, target, resp)

	if cmd.Options.MaxMessageBytes > 0 {
		conn.SetReadLimit(cmd.Options.MaxMessageBytes)
	}

	// The handshake timeout must not kill the live connection, so the
	// session runs on a fresh context under the caller's parent.
	sessionCtx, sessionCancel := context.WithCancel(ctx)
	session := stream.NewSession(sessionCtx, stream.Config{})
	session.MarkOpen()

	rt := newRuntime(conn, session, sessionCancel)
	if cmd.Options.IdleTimeout > 0 {
		go rt.idleWatch(cmd.Options.IdleTimeout)
	}
	go rt.readLoop()
	go rt.writeLoop()

	return &Handle{
		RequestID:   cmd.RequestID,
		URL:         cmd.URL,
		Session:     session,
		Sender:      &Sender{runtime: rt},
		ConnectedAt: time.Now(),
	}, nil
}

// persistResponseCookies writes Set-Cookie headers from the upgrade response
// into the command's jar, so later submits and {{cookie.<name>}} expansions see
// them. Best effort: a failed write never tears down a healthy connection.
func (c *Client) persistResponseCookies(cmd *connect.Command, target *url.URL, resp *http.Response) {
	if c.cookies == nil || cmd.Jar == nil || cmd.Jar.ID == "" || resp == nil {
		return
	}

	now := time.Now()
	for _, rc := range resp.Cookies() {
		if rc.Name == "" {
			continue
		}
		// Max-Age=0 parses as -1; either form is an eviction order.
		if rc.MaxAge < 0 || (!rc.Expires.IsZero() && rc.Expires.Before(now)) {
			_ = c.cookies.DeleteCookie(cmd.Jar.ID, rc.Name)
			continue
		}
		stored := cookies.Cookie{
			Name:     rc.Name,
			Value:    rc.Value,
			Domain:   rc.Domain,
			Path:     rc.Path,
			Expires:  rc.Expires,
			Secure:   rc.Secure,
			HTTPOnly: rc.HttpOnly,
		}
		if stored.Domain == "" {
			stored.Domain = target.Hostname()
		}
		if rc.MaxAge > 0 {
			stored.Expires = now.Add(time.Duration(rc.MaxAge) * time.Second)
		}
		_ = c.cookies.SetCookie(cmd.Jar.ID, stored)
	}
}

func (c *Client) buildHTTPClient() (*http.Client, error) {
	transport := &http.Transport{}
	if c.opts.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	proxyRaw := strings.TrimSpace(c.opts.ProxyURL)
	if proxyRaw != "" {
		proxyURL, err := url.Parse(proxyRaw)
		if err != nil {
			return nil, errdef.Wrap(errdef.CodeWebSocket, err, "parse proxy url %q", proxyRaw)
		}
		switch strings.ToLower(proxyURL.Scheme) {
		case "socks5", "socks5h":
			dialer, err := xproxy.FromURL(proxyURL, xproxy.Direct)
			if err != nil {
				return nil, errdef.Wrap(errdef.CodeWebSocket, err, "build socks proxy dialer")
			}
			transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
				if contextDialer, ok := dialer.(xproxy.ContextDialer); ok {
					return contextDialer.DialContext(ctx, network, addr)
				}
				return dialer.Dial(network, addr)
			}
		default:
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	return &http.Client{Transport: transport}, nil
}
