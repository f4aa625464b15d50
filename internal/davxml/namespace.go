// Package davxml is the namespace-aware XML DOM layer behind every
// PROPFIND/REPORT request body and multistatus response this module
// sends or parses (spec §4.4, §9 "XML querying"). It is built on
// beevik/etree rather than stdlib encoding/xml so that element lookup
// can be namespace-aware without juggling xml.Name on every struct
// field, matching the teacher's internal/xml package.
package davxml

import "github.com/beevik/etree"

// Namespace literals used across the three protocols (spec §6).
const (
	NSDAV            = "DAV:"
	NSCalDAV         = "urn:ietf:params:xml:ns:caldav"
	NSCardDAV        = "urn:ietf:params:xml:ns:carddav"
	NSCalendarServer = "http://calendarserver.org/ns/"
)

// Name is a namespace+local pair, independent of any particular prefix
// a server or we chose to bind it to.
type Name struct {
	Space string
	Local string
}

func (n Name) String() string { return n.Space + ":" + n.Local }

var (
	ResourceType         = Name{NSDAV, "resourcetype"}
	DisplayName          = Name{NSDAV, "displayname"}
	GetETag              = Name{NSDAV, "getetag"}
	GetContentType       = Name{NSDAV, "getcontenttype"}
	GetCTag              = Name{NSCalendarServer, "getctag"}
	CurrentUserPrivSet   = Name{NSDAV, "current-user-privilege-set"}
	CurrentUserPrincipal = Name{NSDAV, "current-user-principal"}
	Privilege            = Name{NSDAV, "privilege"}
	Href                 = Name{NSDAV, "href"}
	Collection           = Name{NSDAV, "collection"}
	CalendarHomeSet      = Name{NSCalDAV, "calendar-home-set"}
	AddressbookHomeSet   = Name{NSCardDAV, "addressbook-home-set"}
	Calendar             = Name{NSCalDAV, "calendar"}
	Addressbook          = Name{NSCardDAV, "addressbook"}
	SupportedCompSet     = Name{NSCalDAV, "supported-calendar-component-set"}
	Comp                 = Name{NSCalDAV, "comp"}
	CalendarData         = Name{NSCalDAV, "calendar-data"}
	AddressData          = Name{NSCardDAV, "address-data"}
	Multistatus          = Name{NSDAV, "multistatus"}
	Response             = Name{NSDAV, "response"}
	Propstat             = Name{NSDAV, "propstat"}
	Prop                 = Name{NSDAV, "prop"}
	Status               = Name{NSDAV, "status"}
)

// newRoot creates a document whose root carries the standard namespace
// prefixes (§6 wire format), the way AddNamespaces does in the teacher.
func newRoot(local string, nsPrefixes map[string]string) (*etree.Document, *etree.Element) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)
	root := doc.CreateElement(local)
	for prefix, ns := range nsPrefixes {
		root.CreateAttr("xmlns:"+prefix, ns)
	}
	return doc, root
}

func defaultPrefixes() map[string]string {
	return map[string]string{
		"D": NSDAV,
	}
}

// FindElementWithNS returns the first direct child matching name (deeper
// descendants are not searched),
// tolerating servers that bind the namespace to different prefixes (or
// none at all, relying on a default namespace) — the namespace-aware
// lookup spec §4.4/§9 calls for instead of an XPath engine.
func FindElementWithNS(parent *etree.Element, name Name) *etree.Element {
	for _, child := range parent.ChildElements() {
		if elementMatches(child, name) {
			return child
		}
	}
	return nil
}

// ChildrenWithNS returns every direct child matching name.
func ChildrenWithNS(parent *etree.Element, name Name) []*etree.Element {
	var out []*etree.Element
	for _, child := range parent.ChildElements() {
		if elementMatches(child, name) {
			out = append(out, child)
		}
	}
	return out
}

func elementMatches(e *etree.Element, name Name) bool {
	if e.Tag != name.Local {
		return false
	}
	space := e.Space
	ns := resolveSpace(e, space)
	return ns == name.Space
}

// resolveSpace walks up from e looking for an xmlns[:prefix] binding for
// prefix (empty prefix means the default namespace).
func resolveSpace(e *etree.Element, prefix string) string {
	attrName := "xmlns"
	if prefix != "" {
		attrName = "xmlns:" + prefix
	}
	for el := e; el != nil; el = el.Parent() {
		if a := el.SelectAttr(attrName); a != nil {
			return a.Value
		}
	}
	return ""
}

// Text extracts CDATA-safe text content: etree concatenates CharData and
// CDATA sections transparently via Element.Text(). The text is returned
// as is; whitespace a server pads it with is not trimmed.
func Text(e *etree.Element) string {
	if e == nil {
		return ""
	}
	return e.Text()
}
