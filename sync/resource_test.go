package sync

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-dav/davsync/dav"
	"github.com/go-dav/davsync/etagcache"
	"github.com/go-dav/davsync/internal/transport"
	"github.com/go-dav/davsync/job"
	"github.com/go-dav/davsync/protocol"
)

func newTestResource(t *testing.T, handler http.HandlerFunc) (*Resource, *[]dav.Item, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	deps := job.Deps{
		Transport: transport.New(srv.Client(), transport.Credentials{}, zerolog.Nop()),
		Registry:  protocol.NewRegistry(),
		Logger:    zerolog.Nop(),
	}
	root, err := dav.NewURL(srv.URL+"/", dav.ProtocolCalDAV)
	require.NoError(t, err)

	var received []dav.Item
	events := Events{
		ItemsRetrieved: func(_ dav.URL, items []dav.Item) { received = items },
	}
	return NewResource(deps, etagcache.New(), root, events), &received, srv
}

func itemListBody() string {
	return `<?xml version="1.0"?>
<D:multistatus xmlns:D="DAV:">
  <D:response>
    <D:href>/cal/me/work/1.ics</D:href>
    <D:propstat>
      <D:prop><D:getetag>"a"</D:getetag></D:prop>
      <D:status>HTTP/1.1 200 OK</D:status>
    </D:propstat>
  </D:response>
</D:multistatus>`
}

func TestRetrieveItemsSkipsFetchWhenEtagUnchanged(t *testing.T) {
	var getCount int32
	res, received, srv := newTestResource(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case "REPORT":
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusMultiStatus)
			io.WriteString(w, itemListBody())
		case http.MethodGet:
			atomic.AddInt32(&getCount, 1)
			w.Header().Set("ETag", `"a"`)
			w.WriteHeader(http.StatusOK)
			io.WriteString(w, "data")
		}
	})

	collURL, err := dav.NewURL(srv.URL+"/cal/me/work/", dav.ProtocolCalDAV)
	require.NoError(t, err)
	collection := dav.Collection{URL: collURL, Protocol: dav.ProtocolCalDAV}

	// Seed the cache with the etag the listing will report, so the
	// fetch set is empty.
	idURL := srv.URL + "/cal/me/work/1.ics"

	err = res.RetrieveItems(context.Background(), collection)
	require.NoError(t, err)
	require.Len(t, *received, 1)
	assert.EqualValues(t, 1, atomic.LoadInt32(&getCount), "first pass has a changed etag so it must be fetched once")

	res.cache.SetEtag(dav.RemoteID(idURL), `"a"`)
	err = res.RetrieveItems(context.Background(), collection)
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&getCount), "unchanged etag on the second pass must not trigger another GET")
}

func TestRetrieveItemsCTagFastPath(t *testing.T) {
	var listCount int32
	res, received, srv := newTestResource(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "REPORT" {
			body, _ := io.ReadAll(r.Body)
			if strings.Contains(string(body), "calendar-query") {
				atomic.AddInt32(&listCount, 1)
			}
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusMultiStatus)
			io.WriteString(w, itemListBody())
			return
		}
		w.Header().Set("ETag", `"a"`)
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, "data")
	})

	collURL, err := dav.NewURL(srv.URL+"/cal/me/work/", dav.ProtocolCalDAV)
	require.NoError(t, err)
	collection := dav.Collection{URL: collURL, Protocol: dav.ProtocolCalDAV, CTag: "ctag-1"}

	require.NoError(t, res.RetrieveItems(context.Background(), collection))
	assert.EqualValues(t, 1, atomic.LoadInt32(&listCount))
	firstBatch := *received

	require.NoError(t, res.RetrieveItems(context.Background(), collection))
	assert.EqualValues(t, 1, atomic.LoadInt32(&listCount), "unchanged CTag must skip the listing REPORT entirely")
	assert.Equal(t, len(firstBatch), len(*received))
}

func TestRetrieveItemsRejectsConcurrentCallsForSameCollection(t *testing.T) {
	release := make(chan struct{})
	res, _, srv := newTestResource(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusMultiStatus)
		io.WriteString(w, itemListBody())
	})

	collURL, err := dav.NewURL(srv.URL+"/cal/me/work/", dav.ProtocolCalDAV)
	require.NoError(t, err)
	collection := dav.Collection{URL: collURL, Protocol: dav.ProtocolCalDAV}

	done := make(chan error, 1)
	go func() { done <- res.RetrieveItems(context.Background(), collection) }()

	// Give the first call time to register itself as in-flight.
	for i := 0; i < 1000 && !res.inFlightFor(collURL.String()); i++ {
		time.Sleep(time.Millisecond)
	}
	err = res.RetrieveItems(context.Background(), collection)
	assert.ErrorIs(t, err, ErrAlreadyInFlight)

	close(release)
	require.NoError(t, <-done)
}
