package job

import (
	"context"
	"net/http"
	"sync"

	"github.com/samber/mo"

	"github.com/go-dav/davsync/dav"
	"github.com/go-dav/davsync/internal/davxml"
	"github.com/go-dav/davsync/protocol"
)

// CollectionsFetchJob implements spec §4.4: discover every collection
// reachable from a principal (or, as a fallback, from a bare
// calendar/addressbook URL).
type CollectionsFetchJob struct {
	deps Deps
	url  dav.URL

	// OnDiscovered, if set, is called once per newly discovered
	// collection as it is appended to the result (the
	// "collectionDiscovered(protocol, url, originHomesetUrl)" event of
	// §4.4 step 3). It runs synchronously on the goroutine executing Run,
	// after every home-set fetch has finished.
	OnDiscovered func(protocol dav.ProtocolTag, collectionURL dav.URL, originHomeSet dav.URL)
}

func NewCollectionsFetchJob(deps Deps, url dav.URL) *CollectionsFetchJob {
	return &CollectionsFetchJob{deps: deps, url: url}
}

func (j *CollectionsFetchJob) Run(ctx context.Context) Result[[]dav.Collection] {
	desc, err := j.deps.Registry.For(j.url.Protocol)
	if err != nil {
		return mo.Err[[]dav.Collection](dav.NewError(dav.ProblemWithRequest, 0, "unknown protocol", err))
	}

	homeSets := []dav.URL{j.url}
	if desc.SupportsPrincipals() {
		principalResult := NewPrincipalHomeSetsJob(j.deps, j.url).Run(ctx)
		if principalResult.IsError() {
			perr, _ := principalResult.Error().(*dav.Error)
			if perr != nil && perr.ResponseCode == 0 {
				return mo.Err[[]dav.Collection](perr)
			}
			// Fallback per §4.3: retry treating the original URL as a
			// calendar/addressbook URL directly.
			homeSets = []dav.URL{j.url}
		} else if sets := principalResult.MustGet(); len(sets) > 0 {
			homeSets = sets
		}
		// Empty home-set list also falls back to the original URL (§8).
	}

	type homeSetResult struct {
		origin      dav.URL
		collections []dav.Collection
		err         *dav.Error
	}

	results := make([]homeSetResult, len(homeSets))
	var wg sync.WaitGroup
	for i, hs := range homeSets {
		wg.Add(1)
		go func(i int, hs dav.URL) {
			defer wg.Done()
			cols, err := j.fetchOneHomeSet(ctx, desc, hs)
			results[i] = homeSetResult{origin: hs, collections: cols, err: err}
		}(i, hs)
	}
	wg.Wait()

	var firstErr *dav.Error
	var all []dav.Collection
	seen := map[string]bool{}
	for _, r := range results {
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		for _, c := range r.collections {
			key := c.URL.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			all = append(all, c)
			if j.OnDiscovered != nil {
				j.OnDiscovered(c.Protocol, c.URL, r.origin)
			}
		}
	}

	if len(all) == 0 && firstErr != nil {
		return mo.Err[[]dav.Collection](firstErr)
	}
	return mo.Ok(all)
}

func (j *CollectionsFetchJob) fetchOneHomeSet(ctx context.Context, desc protocol.Descriptor, homeSet dav.URL) ([]dav.Collection, *dav.Error) {
	body, err := desc.CollectionPropQuery()
	if err != nil {
		return nil, dav.NewError(dav.ProblemWithRequest, 0, "building propfind body", err)
	}

	headers := http.Header{
		"Content-Type": {"text/xml; charset=utf-8"},
		"Depth":        {davxml.DepthOne.HeaderValue()},
	}
	resp, derr := j.deps.request(ctx, "PROPFIND", homeSet.String(), headers, body)
	if derr != nil {
		return nil, recodeAs(derr, dav.CollectionFetch)
	}
	if resp.StatusCode != http.StatusMultiStatus {
		return nil, dav.NewError(dav.CollectionFetch, resp.StatusCode, "unexpected status from collection PROPFIND", nil)
	}

	ms, err := davxml.ParseMultistatus(resp.Body)
	if err != nil {
		return nil, dav.NewError(dav.CollectionFetchXQueryInvalid, resp.StatusCode, "parsing multistatus", err)
	}

	var out []dav.Collection
	for _, r := range ms.Responses {
		col, ok := extractCollection(homeSet, desc, r)
		if !ok {
			continue
		}
		out = append(out, col)
	}
	return out, nil
}
