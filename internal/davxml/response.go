package davxml

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// PropStat is one <propstat> of a <response>: a set of properties and
// the status line they were returned under.
type PropStat struct {
	Props  *etree.Element // the <prop> element itself, for namespace-aware lookup
	Status string
}

// StatusCode extracts the HTTP status code out of a "HTTP/1.1 200 OK"
// style status line; 0 if it cannot be parsed.
func (p PropStat) StatusCode() int {
	return parseStatusCode(p.Status)
}

func parseStatusCode(line string) int {
	parts := strings.Fields(line)
	for _, part := range parts {
		var code int
		if n, err := fmt.Sscanf(part, "%d", &code); n == 1 && err == nil && len(part) == 3 {
			return code
		}
	}
	return 0
}

// ResponseElement is one <response> of a multistatus body.
type ResponseElement struct {
	Href      string
	PropStats []PropStat
	Status    string // set instead of PropStats when the whole response carries one status (e.g. sync-collection deletions)
}

// StatusCode returns the response-level status code, or the first
// propstat's if only that is present.
func (r ResponseElement) StatusCode() int {
	if r.Status != "" {
		return parseStatusCode(r.Status)
	}
	for _, ps := range r.PropStats {
		if c := ps.StatusCode(); c != 0 {
			return c
		}
	}
	return 0
}

// OKPropStat selects the first propstat whose status contains HTTP 200,
// per spec §4.7 step 1.
func (r ResponseElement) OKPropStat() *PropStat {
	for i := range r.PropStats {
		if r.PropStats[i].StatusCode() == 200 {
			return &r.PropStats[i]
		}
	}
	return nil
}

// Multistatus is the decoded form of a <DAV:multistatus> body.
type Multistatus struct {
	Responses []ResponseElement
	SyncToken string
}

// ParseMultistatus validates the root element's local name (case
// insensitively, per spec §4.4 step 3) and projects every <response>.
func ParseMultistatus(body []byte) (*Multistatus, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return nil, fmt.Errorf("davxml: malformed xml: %w", err)
	}
	root := doc.Root()
	if root == nil || !strings.EqualFold(root.Tag, "multistatus") {
		got := ""
		if root != nil {
			got = root.Tag
		}
		return nil, fmt.Errorf("davxml: expected multistatus root, got %q", got)
	}

	ms := &Multistatus{}
	for _, respEl := range ChildrenWithNS(root, Response) {
		resp := ResponseElement{}
		if hrefEl := FindElementWithNS(respEl, Href); hrefEl != nil {
			resp.Href = Text(hrefEl)
		}
		if statusEl := FindElementWithNS(respEl, Status); statusEl != nil {
			resp.Status = Text(statusEl)
		}
		for _, psEl := range ChildrenWithNS(respEl, Propstat) {
			ps := PropStat{}
			if propEl := FindElementWithNS(psEl, Prop); propEl != nil {
				ps.Props = propEl
			}
			if statusEl := FindElementWithNS(psEl, Status); statusEl != nil {
				ps.Status = Text(statusEl)
			}
			resp.PropStats = append(resp.PropStats, ps)
		}
		ms.Responses = append(ms.Responses, resp)
	}

	if tokenEl := FindElementWithNS(root, Name{NSDAV, "sync-token"}); tokenEl != nil {
		ms.SyncToken = Text(tokenEl)
	}

	return ms, nil
}

// PropText fetches a named property's text from a <prop> element, the
// namespace-aware equivalent of internal.Response.DecodeProp for a
// single scalar value. ok is false if the property is absent.
func PropText(prop *etree.Element, name Name) (string, bool) {
	if prop == nil {
		return "", false
	}
	el := FindElementWithNS(prop, name)
	if el == nil {
		return "", false
	}
	return Text(el), true
}

// PropElement fetches a named property's element itself, for properties
// with structured children (resourcetype, privilege sets, comp sets).
func PropElement(prop *etree.Element, name Name) *etree.Element {
	if prop == nil {
		return nil
	}
	return FindElementWithNS(prop, name)
}
