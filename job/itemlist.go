package job

import (
	"context"
	"net/http"

	"github.com/samber/mo"

	"github.com/go-dav/davsync/dav"
	"github.com/go-dav/davsync/internal/davxml"
)

// ItemListJob implements spec §4.6: list every leaf item in a
// collection, with its etag if the server returned one and no payload
// (listing never fetches content).
type ItemListJob struct {
	deps Deps
	url  dav.URL
}

func NewItemListJob(deps Deps, collectionURL dav.URL) *ItemListJob {
	return &ItemListJob{deps: deps, url: collectionURL}
}

func (j *ItemListJob) Run(ctx context.Context) Result[[]dav.Item] {
	desc, err := j.deps.Registry.For(j.url.Protocol)
	if err != nil {
		return mo.Err[[]dav.Item](dav.NewError(dav.ProblemWithRequest, 0, "unknown protocol", err))
	}

	queries, err := desc.ItemListQueries()
	if err != nil {
		return mo.Err[[]dav.Item](dav.NewError(dav.ProblemWithRequest, 0, "building item-list query", err))
	}

	seen := map[string]bool{}
	var items []dav.Item
	for _, q := range queries {
		method := "PROPFIND"
		if q.UsesReport {
			method = "REPORT"
		}
		headers := http.Header{
			"Content-Type": {"text/xml; charset=utf-8"},
			"Depth":        {davxml.DepthOne.HeaderValue()},
		}
		resp, derr := j.deps.request(ctx, method, j.url.String(), headers, q.Body)
		if derr != nil {
			return mo.Err[[]dav.Item](recodeAs(derr, dav.CollectionFetch))
		}
		if resp.StatusCode != http.StatusMultiStatus {
			return mo.Err[[]dav.Item](dav.NewError(dav.CollectionFetch, resp.StatusCode, "unexpected status from item-list query", nil))
		}

		ms, perr := davxml.ParseMultistatus(resp.Body)
		if perr != nil {
			return mo.Err[[]dav.Item](dav.NewError(dav.CollectionFetchXQueryInvalid, resp.StatusCode, "parsing multistatus", perr))
		}

		for _, r := range ms.Responses {
			ps := r.OKPropStat()
			if ps == nil || r.Href == "" {
				continue
			}
			if isCollection(ps) {
				continue
			}
			u, err := j.url.Resolve(r.Href)
			if err != nil {
				continue
			}
			key := u.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			etag, _ := davxml.PropText(ps.Props, davxml.GetETag)
			items = append(items, dav.Item{URL: u.String(), ETag: etag})
		}
	}

	return mo.Ok(items)
}
