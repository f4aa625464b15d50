// Package job is the asynchronous single-shot operation framework of
// spec §4.3–§4.13: one type per DAV verb, each producing a typed
// mo.Result instead of a bare (T, error) pair so a completion
// continuation can pattern-match success/failure the way the
// teacher's server-side resolvers do.
package job

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/mo"

	"github.com/go-dav/davsync/dav"
	"github.com/go-dav/davsync/internal/transport"
	"github.com/go-dav/davsync/protocol"
)

// Result is the terminal value every job produces (§2 "job framework").
type Result[T any] = mo.Result[T]

// DefaultTimeout bounds every HTTP round trip a job issues when the
// caller does not override it (spec §5 "Timeouts").
const DefaultTimeout = 30 * time.Second

// Deps bundles what every job needs to talk to the network and to
// resolve per-protocol behavior; jobs take it by value since it is
// cheap (two pointers, a logger value and a timeout) and immutable for
// the job's lifetime.
type Deps struct {
	Transport *transport.Client
	Registry  *protocol.Registry
	Logger    zerolog.Logger
	Timeout   time.Duration
}

func (d Deps) timeout() time.Duration {
	if d.Timeout > 0 {
		return d.Timeout
	}
	return DefaultTimeout
}

// request is a small convenience wrapper every job file uses so the
// context-cancellation → Cancelled mapping (spec §5 "Cancellation")
// lives in one place.
func (d Deps) request(ctx context.Context, method, url string, headers map[string][]string, body []byte) (*transport.Response, *dav.Error) {
	resp, err := d.Transport.Request(ctx, method, url, headers, body, d.timeout())
	if err != nil {
		if ctx.Err() == context.Canceled {
			return nil, dav.NewError(dav.Cancelled, 0, "job cancelled", ctx.Err())
		}
		if derr, ok := err.(*dav.Error); ok {
			return nil, derr
		}
		return nil, dav.NewError(dav.ProblemWithRequest, 0, "request failed", err)
	}
	return resp, nil
}
