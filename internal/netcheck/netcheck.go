// Package netcheck answers whether the Last.fm API is reachable right now.
package netcheck

import (
	"context"
	"net"
	"time"

	"github.com/rs/zerolog"
)

// DefaultHosts are dialed when none are configured.
var DefaultHosts = []string{"ws.audioscrobbler.com:443"}

// DefaultTimeout bounds each dial.
const DefaultTimeout = 3 * time.Second

type dialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Checker reports connectivity by opening a TCP connection to any of a set
// of hosts.
type Checker struct {
	hosts   []string
	timeout time.Duration
	dial    dialFunc
	logger  zerolog.Logger
}

// New returns a Checker. Empty hosts or a non-positive timeout select the
// defaults.
func New(hosts []string, timeout time.Duration, logger zerolog.Logger) *Checker {
	if len(hosts) == 0 {
		hosts = DefaultHosts
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var d net.Dialer
	return &Checker{
		hosts:   hosts,
		timeout: timeout,
		dial:    d.DialContext,
		logger:  logger.With().Str("component", "netcheck").Logger(),
	}
}

// Online reports whether at least one host accepted a connection.
func (c *Checker) Online(ctx context.Context) bool {
	for _, host := range c.hosts {
		dialCtx, cancel := context.WithTimeout(ctx, c.timeout)
		conn, err := c.dial(dialCtx, "tcp", host)
		cancel()

		if err == nil {
			conn.Close()
			return true
		}

		c.logger.Debug().Err(err).Str("host", host).Msg("Host unreachable")
	}

	return false
}
