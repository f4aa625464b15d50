package job

import (
	"context"
	"net/http"

	"github.com/samber/mo"

	"github.com/go-dav/davsync/dav"
)

// ItemDeleteJob implements spec §4.12: DELETE with If-Match; a 404 is
// treated as an already-successful delete (idempotence).
type ItemDeleteJob struct {
	deps Deps
	item dav.Item
}

func NewItemDeleteJob(deps Deps, item dav.Item) *ItemDeleteJob {
	return &ItemDeleteJob{deps: deps, item: item}
}

func (j *ItemDeleteJob) Run(ctx context.Context) Result[struct{}] {
	headers := http.Header{"If-Match": {j.item.ETag}}
	resp, derr := j.deps.request(ctx, http.MethodDelete, j.item.URL, headers, nil)
	if derr != nil {
		return mo.Err[struct{}](recodeAs(derr, dav.ItemDelete))
	}

	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusOK, http.StatusNotFound:
		return mo.Ok(struct{}{})
	case http.StatusPreconditionFailed:
		base := dav.NewError(dav.Conflict, http.StatusPreconditionFailed, "item was modified on the server", nil)
		fetched := NewItemFetchJob(j.deps, j.item.URL).Run(ctx)
		if fetched.IsError() {
			return mo.Err[struct{}](&ConflictError{Err: base})
		}
		return mo.Err[struct{}](&ConflictError{Err: base, FreshItem: fetched.MustGet()})
	default:
		return mo.Err[struct{}](dav.NewError(dav.ItemDelete, resp.StatusCode, "unexpected status from item DELETE", nil))
	}
}
