package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-dav/davsync/dav"
)

func TestRegistryFor(t *testing.T) {
	reg := NewRegistry()

	for _, tag := range []dav.ProtocolTag{dav.ProtocolCalDAV, dav.ProtocolCardDAV, dav.ProtocolWebDAV} {
		d, err := reg.For(tag)
		require.NoError(t, err)
		assert.Equal(t, tag, d.Tag())
	}
}

func TestRegistryForUnknown(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.For(dav.ProtocolTag(99))
	assert.Error(t, err)
}

func TestCalDAVMultigetBuildsHrefs(t *testing.T) {
	d := calDAV{}
	body, err := d.BuildMultiget([]string{"/cal/1.ics", "/cal/2.ics"})
	require.NoError(t, err)
	assert.Contains(t, string(body), "/cal/1.ics")
	assert.Contains(t, string(body), "/cal/2.ics")
	assert.Contains(t, string(body), "calendar-multiget")
}

func TestWebDAVHasNoMultiget(t *testing.T) {
	d := webDAV{}
	assert.False(t, d.UsesMultiget())
	_, err := d.BuildMultiget([]string{"/a"})
	assert.Error(t, err)
}

func TestCalDAVItemListQueryIsReport(t *testing.T) {
	d := calDAV{}
	queries, err := d.ItemListQueries()
	require.NoError(t, err)
	require.Len(t, queries, 1)
	assert.True(t, queries[0].UsesReport)
	assert.Contains(t, string(queries[0].Body), "calendar-query")
}

func TestWebDAVItemListQueryIsPropfind(t *testing.T) {
	d := webDAV{}
	queries, err := d.ItemListQueries()
	require.NoError(t, err)
	require.Len(t, queries, 1)
	assert.False(t, queries[0].UsesReport)
}
