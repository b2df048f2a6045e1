package httpclient

import (
	"context"
	"net"
	"net/http"
	"time"
)

type Options struct {
	// PreferIPv4 forces tcp4 dials; some networks resolve the Gemini
	// endpoint to unreachable IPv6 addresses.
	PreferIPv4 bool

	// Timeout bounds one whole request. Image generation holds the
	// connection well past the usual header wait, so the default is
	// sized for that, not for chat-style calls.
	Timeout time.Duration

	// HeaderTimeout bounds the wait for the first response byte.
	HeaderTimeout time.Duration
}

const (
	defaultTimeout       = 180 * time.Second
	defaultHeaderTimeout = 120 * time.Second
)

// New builds the shared outbound client used by the generation client
// and the notifier.
func New(opts Options) *http.Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	headerTimeout := opts.HeaderTimeout
	if headerTimeout <= 0 {
		headerTimeout = defaultHeaderTimeout
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: newTransport(opts.PreferIPv4, headerTimeout),
	}
}

func newTransport(preferIPv4 bool, headerTimeout time.Duration) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   15 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	dial := dialer.DialContext
	if preferIPv4 {
		dial = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, "tcp4", addr)
		}
	}

	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dial,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   15 * time.Second,
		ResponseHeaderTimeout: headerTimeout,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
