// Package httpclient configures the HTTP client used to call the
// EO-WCS server and the Download Manager's loopback HTTP interface.
package httpclient

import (
	"net"
	"net/http"
	"time"
)

// NewOutbound builds a tuned outbound client shared by the EO-WCS and
// DAR/DM clients.
func NewOutbound() *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          256,
		MaxIdleConnsPerHost:   128,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   30 * time.Second,
	}
}
