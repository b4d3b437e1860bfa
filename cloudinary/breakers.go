package cloudinary

import (
	"net/url"

	"github.com/rubyist/circuitbreaker"
	"github.com/t2bot/image-backup-proxy/common/rcontext"
)

func (c *Client) getBreaker(target string) *circuit.Breaker {
	if c.conf.BackoffAt <= 0 {
		return nil
	}

	host := target
	if u, err := url.Parse(target); err == nil {
		host = u.Host
	}

	if cbRaw, hasCb := c.breakers.Load(host); hasCb {
		return cbRaw.(*circuit.Breaker)
	}
	cb := circuit.NewConsecutiveBreaker(int64(c.conf.BackoffAt))
	actual, _ := c.breakers.LoadOrStore(host, cb)
	return actual.(*circuit.Breaker)
}

func (c *Client) doBreakerCall(ctx rcontext.RequestContext, target string, fn func() error) error {
	cb := c.getBreaker(target)
	if cb == nil {
		return fn()
	}
	// fn runs on this goroutine, bounded only by the http client timeout
	return cb.CallContext(ctx, fn, 0)
}
