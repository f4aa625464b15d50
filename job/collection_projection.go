package job

import (
	"strings"

	"github.com/go-dav/davsync/dav"
	"github.com/go-dav/davsync/internal/davxml"
	"github.com/go-dav/davsync/protocol"
)

// extractCollection implements spec §4.7: response → DavCollection
// projection. ok is false when the response carries no 200 propstat
// (the response is skipped by the caller, not an error).
func extractCollection(requestURL dav.URL, desc protocol.Descriptor, resp davxml.ResponseElement) (dav.Collection, bool) {
	ps := resp.OKPropStat()
	if ps == nil || resp.Href == "" {
		return dav.Collection{}, false
	}

	u, err := requestURL.Resolve(resp.Href)
	if err != nil {
		return dav.Collection{}, false
	}
	if !strings.HasSuffix(u.URL.Path, "/") {
		u.URL.Path += "/"
	}

	name, ok := davxml.PropText(ps.Props, davxml.DisplayName)
	if !ok || name == "" {
		name = dav.SyntheticDisplayName(u)
	}

	contentTypes := contentTypesOf(ps, desc)
	ctag, _ := davxml.PropText(ps.Props, davxml.GetCTag)
	privileges := privilegesOf(ps)

	return dav.Collection{
		URL:          u,
		DisplayName:  name,
		ContentTypes: contentTypes,
		CTag:         ctag,
		Privileges:   privileges,
		Protocol:     desc.Tag(),
	}, true
}

// isCollection reports whether a propstat's resourcetype names {DAV:}
// collection, the leaf/non-leaf split spec §4.6 uses to skip the
// collection's own response entry in an item listing.
func isCollection(ps *davxml.PropStat) bool {
	rt := davxml.PropElement(ps.Props, davxml.ResourceType)
	if rt == nil {
		return false
	}
	return davxml.FindElementWithNS(rt, davxml.Collection) != nil
}

func contentTypesOf(ps *davxml.PropStat, desc protocol.Descriptor) dav.ContentTypeSet {
	rt := davxml.PropElement(ps.Props, davxml.ResourceType)
	var set dav.ContentTypeSet
	if rt != nil {
		marker := desc.ResourceMarker()
		if marker.Local != "" && davxml.FindElementWithNS(rt, marker) != nil {
			set |= dav.ContentCalendar
		}
	}
	comps := davxml.PropElement(ps.Props, davxml.SupportedCompSet)
	if comps == nil {
		if set == 0 {
			set = dav.ContentCalendar
		}
		return withContacts(set, ps, desc)
	}
	for _, c := range davxml.ChildrenWithNS(comps, davxml.Comp) {
		name := c.SelectAttrValue("name", "")
		switch strings.ToUpper(name) {
		case "VEVENT":
			set |= dav.ContentEvents
		case "VTODO":
			set |= dav.ContentTodos
		case "VJOURNAL":
			set |= dav.ContentJournal
		case "VFREEBUSY":
			set |= dav.ContentFreeBusy
		}
	}
	if set&(dav.ContentEvents|dav.ContentTodos|dav.ContentJournal|dav.ContentFreeBusy) == 0 {
		set |= dav.ContentCalendar
	}
	return withContacts(set, ps, desc)
}

func withContacts(set dav.ContentTypeSet, ps *davxml.PropStat, desc protocol.Descriptor) dav.ContentTypeSet {
	if desc.Tag() == dav.ProtocolCardDAV {
		set |= dav.ContentContacts
	}
	return set
}

func privilegesOf(ps *davxml.PropStat) []dav.Privilege {
	set := davxml.PropElement(ps.Props, davxml.CurrentUserPrivSet)
	if set == nil {
		return nil
	}
	var out []dav.Privilege
	for _, priv := range davxml.ChildrenWithNS(set, davxml.Privilege) {
		children := priv.ChildElements()
		if len(children) == 0 {
			continue
		}
		switch children[0].Tag {
		case "write", "write-content", "write-properties", "all":
			out = append(out, dav.PrivilegeWrite)
		case "read":
			out = append(out, dav.PrivilegeRead)
		}
	}
	return out
}
