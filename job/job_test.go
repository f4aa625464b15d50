package job

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-dav/davsync/dav"
	"github.com/go-dav/davsync/internal/transport"
	"github.com/go-dav/davsync/protocol"
)

func testDeps(t *testing.T, handler http.HandlerFunc) (Deps, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := transport.New(srv.Client(), transport.Credentials{}, zerolog.Nop())
	return Deps{Transport: client, Registry: protocol.NewRegistry(), Logger: zerolog.Nop()}, srv
}

func mustURL(t *testing.T, raw string, tag dav.ProtocolTag) dav.URL {
	t.Helper()
	u, err := dav.NewURL(raw, tag)
	require.NoError(t, err)
	return u
}

func TestCollectionsFetchJobFallbackOnEmptyHomeSets(t *testing.T) {
	deps, srv := testDeps(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		switch {
		case r.Method == "PROPFIND" && r.Header.Get("Depth") == "0":
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusMultiStatus)
			io.WriteString(w, `<?xml version="1.0"?>
<D:multistatus xmlns:D="DAV:" xmlns:C="urn:ietf:params:xml:ns:caldav">
  <D:response>
    <D:href>/principals/me/</D:href>
    <D:propstat>
      <D:prop><C:calendar-home-set/></D:prop>
      <D:status>HTTP/1.1 200 OK</D:status>
    </D:propstat>
  </D:response>
</D:multistatus>`)
		case r.Method == "PROPFIND" && r.Header.Get("Depth") == "1":
			assert.Contains(t, string(body), "propfind")
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusMultiStatus)
			io.WriteString(w, `<?xml version="1.0"?>
<D:multistatus xmlns:D="DAV:" xmlns:C="urn:ietf:params:xml:ns:caldav">
  <D:response>
    <D:href>/principals/me/</D:href>
    <D:propstat>
      <D:prop><D:displayname>Work</D:displayname><D:resourcetype><D:collection/><C:calendar/></D:resourcetype></D:prop>
      <D:status>HTTP/1.1 200 OK</D:status>
    </D:propstat>
  </D:response>
</D:multistatus>`)
		default:
			w.WriteHeader(http.StatusNotImplemented)
		}
	})

	u := mustURL(t, srv.URL+"/principals/me/", dav.ProtocolCalDAV)
	result := NewCollectionsFetchJob(deps, u).Run(context.Background())
	require.False(t, result.IsError())
	cols := result.MustGet()
	require.Len(t, cols, 1)
	assert.Equal(t, "Work", cols[0].DisplayName)
	assert.True(t, cols[0].ContentTypes.Has(dav.ContentCalendar))
}

func TestItemListJobSkipsCollectionEntries(t *testing.T) {
	deps, srv := testDeps(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "REPORT", r.Method)
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusMultiStatus)
		io.WriteString(w, `<?xml version="1.0"?>
<D:multistatus xmlns:D="DAV:">
  <D:response>
    <D:href>/cal/me/work/</D:href>
    <D:propstat>
      <D:prop><D:resourcetype><D:collection/></D:resourcetype></D:prop>
      <D:status>HTTP/1.1 200 OK</D:status>
    </D:propstat>
  </D:response>
  <D:response>
    <D:href>/cal/me/work/1.ics</D:href>
    <D:propstat>
      <D:prop><D:getetag>"a"</D:getetag></D:prop>
      <D:status>HTTP/1.1 200 OK</D:status>
    </D:propstat>
  </D:response>
</D:multistatus>`)
	})

	u := mustURL(t, srv.URL+"/cal/me/work/", dav.ProtocolCalDAV)
	result := NewItemListJob(deps, u).Run(context.Background())
	require.False(t, result.IsError())
	items := result.MustGet()
	require.Len(t, items, 1)
	assert.Equal(t, `"a"`, items[0].ETag)
	assert.True(t, strings.HasSuffix(items[0].URL, "1.ics"))
}

func TestItemCreateJobSynthesizesFilenameAndFollowsUpOnMissingEtag(t *testing.T) {
	var created string
	deps, srv := testDeps(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			assert.Equal(t, "*", r.Header.Get("If-None-Match"))
			created = r.URL.Path
			w.WriteHeader(http.StatusCreated)
		case "PROPFIND":
			w.Header().Set("ETag", `"v1"`)
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			w.Header().Set("ETag", `"v1"`)
			w.Header().Set("Content-Type", "text/calendar")
			w.WriteHeader(http.StatusOK)
			io.WriteString(w, "BEGIN:VCALENDAR\nEND:VCALENDAR\n")
		}
	})

	collection := mustURL(t, srv.URL+"/cal/me/work/", dav.ProtocolCalDAV)
	item := dav.Item{ContentType: "text/calendar", Payload: []byte("BEGIN:VCALENDAR\nEND:VCALENDAR\n")}
	result := NewItemCreateJob(deps, collection, item).Run(context.Background())
	require.False(t, result.IsError())
	got := result.MustGet()
	assert.Equal(t, `"v1"`, got.ETag)
	assert.True(t, strings.HasSuffix(created, ".ics"))
}

func TestItemModifyJobConflictExposesFreshItem(t *testing.T) {
	deps, srv := testDeps(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			assert.Equal(t, `"stale"`, r.Header.Get("If-Match"))
			w.WriteHeader(http.StatusPreconditionFailed)
		case http.MethodGet:
			w.Header().Set("ETag", `"fresh"`)
			w.Header().Set("Content-Type", "text/calendar")
			w.WriteHeader(http.StatusOK)
			io.WriteString(w, "BEGIN:VCALENDAR\nEND:VCALENDAR\n")
		}
	})

	item := dav.Item{URL: srv.URL + "/cal/me/work/1.ics", ETag: `"stale"`, ContentType: "text/calendar"}
	result := NewItemModifyJob(deps, item).Run(context.Background())
	require.True(t, result.IsError())

	var conflict *ConflictError
	require.ErrorAs(t, result.Error(), &conflict)
	assert.Equal(t, dav.Conflict, conflict.Err.Kind)
	assert.Equal(t, `"fresh"`, conflict.FreshItem.ETag)
}

func TestItemDeleteJobTreats404AsSuccess(t *testing.T) {
	deps, srv := testDeps(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNotFound)
	})

	item := dav.Item{URL: srv.URL + "/cal/me/work/1.ics", ETag: `"a"`}
	result := NewItemDeleteJob(deps, item).Run(context.Background())
	assert.False(t, result.IsError())
}

func TestCollectionDeleteJobSucceedsOn204(t *testing.T) {
	deps, srv := testDeps(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	})

	u := mustURL(t, srv.URL+"/cal/me/work/", dav.ProtocolCalDAV)
	result := NewCollectionDeleteJob(deps, u).Run(context.Background())
	assert.False(t, result.IsError())
}
