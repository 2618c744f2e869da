package engine

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"github.com/crane-dl/crane/internal/safety"
)

const (
	defaultUserAgent      = "Crane/0.1.0"
	dialTimeout           = 10 * time.Second
	keepAliveDuration     = 30 * time.Second
	tlsHandshakeTimeout   = 10 * time.Second
	responseHeaderTimeout = 30 * time.Second
	expectContinueTimeout = 1 * time.Second
	idleConnTimeout       = 90 * time.Second
	defaultMaxIdleConns   = 100
)

// newClient builds an http.Client tuned for streaming downloads: a
// connection pool sized to the number of parallel chunks, HTTP/1.1
// forced (multiple TCP connections beat one multiplexed HTTP/2 stream
// for range-split transfers), and the SSRF-safe redirect policy applied
// to every hop.
func newClient(connections int) *http.Client {
	maxConnsPerHost := connections
	if maxConnsPerHost < 1 {
		maxConnsPerHost = 1
	}

	transport := &http.Transport{
		MaxIdleConns:        defaultMaxIdleConns,
		MaxIdleConnsPerHost: maxConnsPerHost + 2,
		MaxConnsPerHost:     maxConnsPerHost,

		IdleConnTimeout:       idleConnTimeout,
		TLSHandshakeTimeout:   tlsHandshakeTimeout,
		ResponseHeaderTimeout: responseHeaderTimeout,
		ExpectContinueTimeout: expectContinueTimeout,

		DisableCompression: true, // most downloaded payloads are already compressed
		ForceAttemptHTTP2:  false,
		TLSNextProto:       make(map[string]func(authority string, c *tls.Conn) http.RoundTripper),

		DialContext: (&net.Dialer{
			Timeout:   dialTimeout,
			KeepAlive: keepAliveDuration,
		}).DialContext,
	}

	return &http.Client{
		Transport:     transport,
		CheckRedirect: safety.SafeRedirectPolicy(),
	}
}

// userAgentOrDefault returns ua unless it is empty.
func userAgentOrDefault(ua string) string {
	if ua != "" {
		return ua
	}
	return defaultUserAgent
}

// applyRequestHeaders sets the User-Agent, Referer, Cookie, and any
// caller-supplied extra headers on req.
func applyRequestHeaders(req *http.Request, userAgent, referrer, cookies string, extra map[string]string) {
	req.Header.Set("User-Agent", userAgentOrDefault(userAgent))
	if referrer != "" {
		req.Header.Set("Referer", referrer)
	}
	if cookies != "" {
		req.Header.Set("Cookie", cookies)
	}
	for k, v := range extra {
		req.Header.Set(k, v)
	}
}
