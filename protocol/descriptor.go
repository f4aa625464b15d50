// Package protocol supplies the three ProtocolDescriptor singletons
// spec §4.2/§9 calls for: CalDAV, CardDAV and plain WebDAV differ in
// namespaces, REPORT queries, and the property set collection discovery
// requests, but every job in the job/ package dispatches through this
// one polymorphic capability set instead of branching on the protocol
// tag itself.
package protocol

import (
	"fmt"

	"github.com/go-dav/davsync/dav"
	"github.com/go-dav/davsync/internal/davxml"
)

// ItemListQuery is one entry of a protocol's item-list query set
// (spec §4.2's "item-listing query set"): its request body and whether
// it must be sent as REPORT (true) or PROPFIND (false).
type ItemListQuery struct {
	Body       []byte
	UsesReport bool
}

// Descriptor is the capability set spec §9 "Dynamic dispatch on
// protocol" asks for: a polymorphic replacement for branching on a
// protocol enum.
type Descriptor interface {
	Tag() dav.ProtocolTag

	// CollectionPropQuery returns the PROPFIND body used during
	// collection discovery (spec §4.2).
	CollectionPropQuery() ([]byte, error)

	// ItemListQueries returns the set of queries used to list the
	// items of a collection; the caller sends each one to the
	// collection's URL (spec §4.2, §4.6).
	ItemListQueries() ([]ItemListQuery, error)

	UsesMultiget() bool
	// BuildMultiget renders the REPORT body fetching paths in one
	// round trip (spec §4.9).
	BuildMultiget(paths []string) ([]byte, error)

	SupportsPrincipals() bool
	// HomeSetProp is the property principal-home-sets fetch requests
	// (spec §4.3): calendar-home-set or addressbook-home-set.
	HomeSetProp() davxml.Name

	// ItemMIME is the Content-Type used for new items of this protocol.
	ItemMIME() string
	// DataPropName is the property carrying an item's payload in a
	// multiget/query response (calendar-data / address-data); zero
	// value for plain WebDAV, which has no such property.
	DataPropName() davxml.Name
	// ResourceMarker is the {namespace}local resourcetype child that
	// identifies a collection as belonging to this protocol; zero
	// value for WebDAV, where any {DAV:}collection counts.
	ResourceMarker() davxml.Name
}

// Registry maps each protocol tag to its descriptor (looked up with
// For); it is process-wide immutable shared
// state per spec §3 "Ownership", but passed explicitly as a *Registry
// everywhere so tests can substitute a fresh one (spec §9 "Global
// state").
type Registry struct {
	descriptors map[dav.ProtocolTag]Descriptor
}

// NewRegistry builds the standard CalDAV/CardDAV/WebDAV registry.
func NewRegistry() *Registry {
	return &Registry{descriptors: map[dav.ProtocolTag]Descriptor{
		dav.ProtocolCalDAV:  calDAV{},
		dav.ProtocolCardDAV: cardDAV{},
		dav.ProtocolWebDAV:  webDAV{},
	}}
}

func (r *Registry) For(tag dav.ProtocolTag) (Descriptor, error) {
	d, ok := r.descriptors[tag]
	if !ok {
		return nil, fmt.Errorf("protocol: no descriptor registered for %s", tag)
	}
	return d, nil
}
