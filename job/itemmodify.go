package job

import (
	"context"
	"net/http"

	"github.com/samber/mo"

	"github.com/go-dav/davsync/dav"
)

// ItemModifyJob implements spec §4.11: PUT with If-Match so the write
// only succeeds if the server's copy matches what we last saw.
type ItemModifyJob struct {
	deps Deps
	item dav.Item
}

func NewItemModifyJob(deps Deps, item dav.Item) *ItemModifyJob {
	return &ItemModifyJob{deps: deps, item: item}
}

func (j *ItemModifyJob) Run(ctx context.Context) Result[dav.Item] {
	contentType := j.item.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	headers := http.Header{
		"Content-Type": {contentType},
		"If-Match":     {j.item.ETag},
	}
	resp, derr := j.deps.request(ctx, http.MethodPut, j.item.URL, headers, j.item.Payload)
	if derr != nil {
		return mo.Err[dav.Item](recodeAs(derr, dav.ItemModify))
	}

	if resp.StatusCode == http.StatusPreconditionFailed {
		return mo.Err[dav.Item](j.conflict(ctx))
	}
	if resp.StatusCode/100 != 2 {
		return mo.Err[dav.Item](dav.NewError(dav.ItemModify, resp.StatusCode, "unexpected status from item PUT", nil))
	}

	etag := resp.Header.Get("ETag")
	if etag == "" {
		fetched := NewItemFetchJob(j.deps, j.item.URL).Run(ctx)
		if fetched.IsError() {
			derr, _ := fetched.Error().(*dav.Error)
			return mo.Err[dav.Item](recodeAs(derr, dav.ItemModify))
		}
		etag = fetched.MustGet().ETag
	}

	return mo.Ok(dav.Item{
		URL:         j.item.URL,
		ContentType: contentType,
		Payload:     j.item.Payload,
		ETag:        etag,
	})
}

// conflict fetches the fresh item per §4.11's 412 path and wraps it in
// a *ConflictError so the caller can offer it to the host for merging.
func (j *ItemModifyJob) conflict(ctx context.Context) *ConflictError {
	base := dav.NewError(dav.Conflict, http.StatusPreconditionFailed, "item was modified on the server", nil)
	fetched := NewItemFetchJob(j.deps, j.item.URL).Run(ctx)
	if fetched.IsError() {
		return &ConflictError{Err: base}
	}
	return &ConflictError{Err: base, FreshItem: fetched.MustGet()}
}
