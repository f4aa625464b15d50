// Package dav holds the plain data model shared by every layer of the
// sync engine: addresses, collections, items and the error type jobs
// complete with. Nothing in this package performs I/O.
package dav

import (
	"fmt"
	"net/url"
	"strings"
)

// ProtocolTag identifies which WebDAV dialect a URL or collection speaks.
type ProtocolTag int

const (
	ProtocolWebDAV ProtocolTag = iota
	ProtocolCalDAV
	ProtocolCardDAV
)

func (p ProtocolTag) String() string {
	switch p {
	case ProtocolCalDAV:
		return "CalDAV"
	case ProtocolCardDAV:
		return "CardDAV"
	default:
		return "WebDAV"
	}
}

// URL pairs an absolute URL with the protocol it should be dispatched
// through. All jobs and the synchronizer route exclusively via this
// pair, never on a bare string.
type URL struct {
	URL      *url.URL
	Protocol ProtocolTag
}

// NewURL validates scheme and wraps u with its protocol tag.
func NewURL(raw string, protocol ProtocolTag) (URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return URL{}, fmt.Errorf("dav: invalid url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return URL{}, fmt.Errorf("dav: unsupported scheme %q in %q", u.Scheme, raw)
	}
	return URL{URL: u, Protocol: protocol}, nil
}

// Resolve resolves ref (absolute, or path-absolute starting with "/",
// or relative) against u, preserving u's userinfo the way a PROPFIND
// href is resolved against the request URL per spec §4.7/§8.
func (u URL) Resolve(ref string) (URL, error) {
	r, err := url.Parse(ref)
	if err != nil {
		return URL{}, fmt.Errorf("dav: invalid href %q: %w", ref, err)
	}
	resolved := u.URL.ResolveReference(r)
	if resolved.User == nil {
		resolved.User = u.URL.User
	}
	return URL{URL: resolved, Protocol: u.Protocol}, nil
}

// String strips userinfo before display, per §4.7 step 2.
func (u URL) String() string {
	stripped := *u.URL
	stripped.User = nil
	return stripped.String()
}

// ContentTypeSet is a bitset over the collection content kinds a CalDAV
// collection may advertise via supported-calendar-component-set.
type ContentTypeSet uint8

const (
	ContentCalendar ContentTypeSet = 1 << iota
	ContentEvents
	ContentTodos
	ContentJournal
	ContentFreeBusy
	ContentContacts
)

func (c ContentTypeSet) Has(flag ContentTypeSet) bool { return c&flag != 0 }

// Privilege is one entry of a current-user-privilege-set response.
type Privilege string

const (
	PrivilegeRead  Privilege = "read"
	PrivilegeWrite Privilege = "write"
)

// Collection is a discovered calendar, address book or plain WebDAV
// collection. Collections are produced by discovery and never mutated
// by the core afterwards (§3 "Lifecycles").
type Collection struct {
	URL          URL
	DisplayName  string
	ContentTypes ContentTypeSet
	CTag         string
	Privileges   []Privilege
	Protocol     ProtocolTag
}

// CanWrite reports whether the collection's privilege set includes write.
func (c Collection) CanWrite() bool {
	for _, p := range c.Privileges {
		if p == PrivilegeWrite {
			return true
		}
	}
	return false
}

// SyntheticDisplayName implements §4.7 step 3's fallback name.
func SyntheticDisplayName(u URL) string {
	return fmt.Sprintf("DAV collection at %s", u.String())
}

// Item is a single calendar object, contact or plain WebDAV resource.
// Etag is empty only transiently, for a just-created item not yet
// GETtable (§3).
type Item struct {
	URL         string
	ContentType string
	Payload     []byte
	ETag        string
}

// RemoteID is the cache key identity of an item: its URL with any
// trailing slash removed and userinfo stripped, so etag-cache lookups
// are insensitive to the cosmetic differences a server's PROPFIND
// response may introduce.
func RemoteID(itemURL string) string {
	if u, err := url.Parse(itemURL); err == nil && u.User != nil {
		u.User = nil
		itemURL = u.String()
	}
	return strings.TrimRight(itemURL, "/")
}
