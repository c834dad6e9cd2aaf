// Package httputil provides shared HTTP utilities with connection pooling
// and safe response handling for the baitline gateway.
package httputil

import (
	"io"
	"net"
	"net/http"
	"sync"
	"time"
)

// MaxResponseSize is the default maximum size for reading HTTP response bodies.
// External LLM providers and callback endpoints are untrusted - a malicious or
// misconfigured service could return gigabytes of data.
const MaxResponseSize = 2 * 1024 * 1024 // 2MB

// Shared transport with optimized connection pooling.
// This is safe for concurrent use and dramatically improves performance
// by reusing TCP connections across requests.
var sharedTransport = &http.Transport{
	Proxy: http.ProxyFromEnvironment,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	ForceAttemptHTTP2:     true,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   10,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
}

// CallbackTimeout is the fixed timeout for escalation report dispatch.
// The callback is fire-and-forget with no retry, so a short bound keeps
// dispatch goroutines from accumulating.
const CallbackTimeout = 5 * time.Second

var (
	callbackClient *http.Client
	callbackOnce   sync.Once
)

// CallbackClient returns the shared client for escalation report dispatch.
// It carries the fixed 5s timeout and shares the pooled transport.
func CallbackClient() *http.Client {
	callbackOnce.Do(func() {
		callbackClient = &http.Client{
			Timeout:   CallbackTimeout,
			Transport: sharedTransport,
		}
	})
	return callbackClient
}

// NewClient returns a client with the given timeout on the shared pooled
// transport. Use this for LLM provider calls where the timeout comes from
// configuration.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: sharedTransport,
	}
}

// ReadResponseBody safely reads an HTTP response body with a size limit.
func ReadResponseBody(r io.Reader, maxSize int64) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = MaxResponseSize
	}
	return io.ReadAll(io.LimitReader(r, maxSize))
}

// DrainAndClose properly drains and closes an HTTP response body.
// This ensures connection reuse in the pool.
func DrainAndClose(body io.ReadCloser) {
	if body != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(body, MaxResponseSize))
		_ = body.Close()
	}
}
