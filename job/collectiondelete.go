package job

import (
	"context"
	"net/http"

	"github.com/samber/mo"

	"github.com/go-dav/davsync/dav"
)

// CollectionDeleteJob implements spec §4.13: DELETE on a collection
// URL with no precondition.
type CollectionDeleteJob struct {
	deps Deps
	url  dav.URL
}

func NewCollectionDeleteJob(deps Deps, collectionURL dav.URL) *CollectionDeleteJob {
	return &CollectionDeleteJob{deps: deps, url: collectionURL}
}

func (j *CollectionDeleteJob) Run(ctx context.Context) Result[struct{}] {
	resp, derr := j.deps.request(ctx, http.MethodDelete, j.url.String(), nil, nil)
	if derr != nil {
		return mo.Err[struct{}](recodeAs(derr, dav.ItemDelete))
	}
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return mo.Err[struct{}](dav.NewError(dav.ItemDelete, resp.StatusCode, "unexpected status from collection DELETE", nil))
	}
	return mo.Ok(struct{}{})
}
