package davxml

import (
	"bytes"

	"github.com/beevik/etree"
)

// Depth encodes the WebDAV Depth header. DepthInfinity is carried as the
// integer sentinel 2, per spec §6/§8; 0 and 1 are their literal digits.
type Depth int

const (
	DepthZero     Depth = 0
	DepthOne      Depth = 1
	DepthInfinity Depth = 2
)

func (d Depth) HeaderValue() string {
	if d == DepthInfinity {
		return "infinity"
	}
	if d == DepthZero {
		return "0"
	}
	return "1"
}

// PropFindBuilder assembles a <D:propfind><D:prop>...</D:prop></D:propfind>
// request body, one <prop> child per requested property name, the way
// internal/httpclient/propfind.go's buildPropfindXML does per-protocol.
type PropFindBuilder struct {
	prefixes map[string]string
	names    []Name
}

func NewPropFindBuilder(extraPrefixes map[string]string) *PropFindBuilder {
	prefixes := defaultPrefixes()
	for k, v := range extraPrefixes {
		prefixes[k] = v
	}
	return &PropFindBuilder{prefixes: prefixes}
}

func (b *PropFindBuilder) Want(names ...Name) *PropFindBuilder {
	b.names = append(b.names, names...)
	return b
}

// Build renders the request body. appendEmptyElement maps each name's
// namespace URI to the prefix bound for it in b.prefixes (falling back
// to a raw xmlns attr per element when no prefix was reserved).
func (b *PropFindBuilder) Build() ([]byte, error) {
	doc, root := newRoot("D:propfind", b.prefixes)
	prop := root.CreateElement("D:prop")
	for _, n := range b.names {
		appendEmptyElement(prop, n, b.prefixes)
	}
	return serialize(doc)
}

func appendEmptyElement(parent *etree.Element, n Name, prefixes map[string]string) *etree.Element {
	for prefix, ns := range prefixes {
		if ns == n.Space {
			tag := n.Local
			if prefix != "" {
				tag = prefix + ":" + n.Local
			}
			return parent.CreateElement(tag)
		}
	}
	el := parent.CreateElement(n.Local)
	el.CreateAttr("xmlns", n.Space)
	return el
}

func serialize(doc *etree.Document) ([]byte, error) {
	doc.Indent(0)
	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReportBuilder builds the root element of a REPORT body (calendar-query,
// calendar-multiget, addressbook-query, addressbook-multiget): an
// arbitrary root tag in a given namespace, carrying a <D:prop> subtree
// and protocol-specific children appended by the caller.
type ReportBuilder struct {
	doc      *etree.Document
	Root     *etree.Element
	prefixes map[string]string
}

func NewReportBuilder(rootTag string, rootNS string, prefix string, extraPrefixes map[string]string) *ReportBuilder {
	prefixes := defaultPrefixes()
	prefixes[prefix] = rootNS
	for k, v := range extraPrefixes {
		prefixes[k] = v
	}
	doc, root := newRoot(prefix+":"+rootTag, prefixes)
	return &ReportBuilder{doc: doc, Root: root, prefixes: prefixes}
}

// Prop adds a <D:prop> child listing names, returning it so callers can
// append richer children (e.g. calendar-data with embedded comp filters).
func (b *ReportBuilder) Prop(names ...Name) *etree.Element {
	prop := b.Root.CreateElement("D:prop")
	for _, n := range names {
		appendEmptyElement(prop, n, b.prefixes)
	}
	return prop
}

// Hrefs appends one <D:href> per path, used by both *-multiget reports.
func (b *ReportBuilder) Hrefs(paths []string) {
	for _, p := range paths {
		el := b.Root.CreateElement("D:href")
		el.SetText(p)
	}
}

func (b *ReportBuilder) Build() ([]byte, error) {
	return serialize(b.doc)
}
