package job

import (
	"context"
	"net/http"

	"github.com/samber/mo"

	"github.com/go-dav/davsync/dav"
	"github.com/go-dav/davsync/internal/davxml"
)

// MultigetJob implements spec §4.9: fetch several items of a collection
// in one REPORT round trip. Items the server returned without a data
// property or etag are skipped silently — they are simply absent from
// the result, and the caller (the synchronizer) is expected to fall
// back to an ItemFetchJob for any URL it asked for but didn't get back.
type MultigetJob struct {
	deps          Deps
	collectionURL dav.URL
	itemURLs      []string
}

func NewMultigetJob(deps Deps, collectionURL dav.URL, itemURLs []string) *MultigetJob {
	return &MultigetJob{deps: deps, collectionURL: collectionURL, itemURLs: itemURLs}
}

func (j *MultigetJob) Run(ctx context.Context) Result[[]dav.Item] {
	desc, err := j.deps.Registry.For(j.collectionURL.Protocol)
	if err != nil {
		return mo.Err[[]dav.Item](dav.NewError(dav.ProblemWithRequest, 0, "unknown protocol", err))
	}
	if !desc.UsesMultiget() {
		return mo.Err[[]dav.Item](dav.NewError(dav.ProblemWithRequest, 0, "protocol does not support multiget", nil))
	}

	paths := make([]string, 0, len(j.itemURLs))
	for _, raw := range j.itemURLs {
		u, err := j.collectionURL.Resolve(raw)
		if err != nil {
			continue
		}
		paths = append(paths, u.URL.Path)
	}

	body, err := desc.BuildMultiget(paths)
	if err != nil {
		return mo.Err[[]dav.Item](dav.NewError(dav.ProblemWithRequest, 0, "building multiget body", err))
	}

	headers := http.Header{
		"Content-Type": {"text/xml; charset=utf-8"},
		"Depth":        {davxml.DepthOne.HeaderValue()},
	}
	resp, derr := j.deps.request(ctx, "REPORT", j.collectionURL.String(), headers, body)
	if derr != nil {
		return mo.Err[[]dav.Item](recodeAs(derr, dav.ItemFetch))
	}
	if resp.StatusCode != http.StatusMultiStatus {
		return mo.Err[[]dav.Item](dav.NewError(dav.ItemFetch, resp.StatusCode, "unexpected status from multiget REPORT", nil))
	}

	ms, perr := davxml.ParseMultistatus(resp.Body)
	if perr != nil {
		return mo.Err[[]dav.Item](dav.NewError(dav.MalformedResponse, resp.StatusCode, "parsing multistatus", perr))
	}

	dataProp := desc.DataPropName()
	var items []dav.Item
	for _, r := range ms.Responses {
		ps := r.OKPropStat()
		if ps == nil || r.Href == "" {
			continue
		}
		etag, hasEtag := davxml.PropText(ps.Props, davxml.GetETag)
		data, hasData := davxml.PropText(ps.Props, dataProp)
		if !hasEtag || !hasData {
			continue
		}
		u, err := j.collectionURL.Resolve(r.Href)
		if err != nil {
			continue
		}
		items = append(items, dav.Item{
			URL:     u.String(),
			Payload: []byte(data),
			ETag:    etag,
		})
	}

	return mo.Ok(items)
}
