// Package httpc builds the HTTP clients every vendor API goes through, so
// none of them ever runs on http.DefaultClient without deadlines.
package httpc

import (
	"net"
	"net/http"
	"time"
)

// Client is shared by callers that have no timeout of their own.
var Client = NewClient(30 * time.Second)

// transport is shared so all vendors reuse one connection pool.
var transport = &http.Transport{
	Proxy: http.ProxyFromEnvironment,
	DialContext: (&net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	ForceAttemptHTTP2:     true,
	MaxIdleConns:          20,
	MaxIdleConnsPerHost:   4,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: time.Second,
}

// NewClient returns a client bounded by timeout end to end. Streams pass
// zero, since an utterance may play longer than any fixed budget.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout, Transport: transport}
}
