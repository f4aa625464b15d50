package job

import (
	"context"
	"sync"

	"github.com/samber/mo"

	"github.com/go-dav/davsync/dav"
)

// CollectionsMultiFetchJob implements spec §4.5: fan out one
// CollectionsFetchJob per configured remote URL. A failure in one does
// not cancel the others; the aggregated collection list is the union
// (deduped by URL). The job fails only when no URL yielded any
// collection, with the error of the first failed URL in input order;
// when at least one collection was found, the sub-job errors are not
// reported.
type CollectionsMultiFetchJob struct {
	deps Deps
	urls []dav.URL

	OnDiscovered func(protocol dav.ProtocolTag, collectionURL dav.URL, originHomeSet dav.URL)
}

func NewCollectionsMultiFetchJob(deps Deps, urls []dav.URL) *CollectionsMultiFetchJob {
	return &CollectionsMultiFetchJob{deps: deps, urls: urls}
}

func (j *CollectionsMultiFetchJob) Run(ctx context.Context) Result[[]dav.Collection] {
	type outcome struct {
		collections []dav.Collection
		err         *dav.Error
	}

	outcomes := make([]outcome, len(j.urls))
	var wg sync.WaitGroup
	for i, u := range j.urls {
		wg.Add(1)
		go func(i int, u dav.URL) {
			defer wg.Done()
			sub := NewCollectionsFetchJob(j.deps, u)
			sub.OnDiscovered = j.OnDiscovered
			result := sub.Run(ctx)
			if result.IsError() {
				derr, _ := result.Error().(*dav.Error)
				outcomes[i] = outcome{err: derr}
				return
			}
			outcomes[i] = outcome{collections: result.MustGet()}
		}(i, u)
	}
	wg.Wait()

	var firstErr *dav.Error
	seen := map[string]bool{}
	var all []dav.Collection
	for _, o := range outcomes {
		if o.err != nil {
			if firstErr == nil {
				firstErr = o.err
			}
			continue
		}
		for _, c := range o.collections {
			key := c.URL.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			all = append(all, c)
		}
	}

	if len(all) == 0 && firstErr != nil {
		return mo.Err[[]dav.Collection](firstErr)
	}
	return mo.Ok(all)
}
