package job

import (
	"context"
	"net/http"

	"github.com/samber/mo"

	"github.com/go-dav/davsync/dav"
)

// ItemFetchJob implements spec §4.8: GET an item's payload, requiring
// an ETag header in the response.
type ItemFetchJob struct {
	deps Deps
	url  string
}

func NewItemFetchJob(deps Deps, itemURL string) *ItemFetchJob {
	return &ItemFetchJob{deps: deps, url: itemURL}
}

func (j *ItemFetchJob) Run(ctx context.Context) Result[dav.Item] {
	resp, derr := j.deps.request(ctx, http.MethodGet, j.url, nil, nil)
	if derr != nil {
		return mo.Err[dav.Item](recodeAs(derr, dav.ItemFetch))
	}
	if resp.StatusCode != http.StatusOK {
		return mo.Err[dav.Item](dav.NewError(dav.ItemFetch, resp.StatusCode, "unexpected status from item GET", nil))
	}

	etag := resp.Header.Get("ETag")
	if etag == "" {
		return mo.Err[dav.Item](dav.NewError(dav.EtagMissing, resp.StatusCode, "no ETag header in GET response", nil))
	}

	return mo.Ok(dav.Item{
		URL:         resp.FinalURL,
		ContentType: resp.Header.Get("Content-Type"),
		Payload:     resp.Body,
		ETag:        etag,
	})
}
