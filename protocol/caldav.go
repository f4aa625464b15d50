package protocol

import (
	"github.com/go-dav/davsync/dav"
	"github.com/go-dav/davsync/internal/davxml"
)

// calDAV implements Descriptor for RFC 4791 calendaring collections.
type calDAV struct{}

func (calDAV) Tag() dav.ProtocolTag { return dav.ProtocolCalDAV }

func (calDAV) CollectionPropQuery() ([]byte, error) {
	return davxml.NewPropFindBuilder(map[string]string{"C": davxml.NSCalDAV, "CS": davxml.NSCalendarServer}).
		Want(
			davxml.ResourceType,
			davxml.DisplayName,
			davxml.GetCTag,
			davxml.SupportedCompSet,
			davxml.CurrentUserPrivSet,
		).Build()
}

// ItemListQueries issues a calendar-query REPORT whose only filter is a
// bare VCALENDAR comp-filter with no time range, matching every object
// in the collection (spec §4.6's "list items" operation for CalDAV).
func (calDAV) ItemListQueries() ([]ItemListQuery, error) {
	rb := davxml.NewReportBuilder("calendar-query", davxml.NSCalDAV, "C", nil)
	rb.Prop(davxml.GetETag)
	filter := rb.Root.CreateElement("C:filter")
	compFilter := filter.CreateElement("C:comp-filter")
	compFilter.CreateAttr("name", "VCALENDAR")
	body, err := rb.Build()
	if err != nil {
		return nil, err
	}
	return []ItemListQuery{{Body: body, UsesReport: true}}, nil
}

func (calDAV) UsesMultiget() bool { return true }

func (calDAV) BuildMultiget(paths []string) ([]byte, error) {
	rb := davxml.NewReportBuilder("calendar-multiget", davxml.NSCalDAV, "C", nil)
	rb.Prop(davxml.GetETag, davxml.CalendarData)
	rb.Hrefs(paths)
	return rb.Build()
}

func (calDAV) SupportsPrincipals() bool    { return true }
func (calDAV) HomeSetProp() davxml.Name    { return davxml.CalendarHomeSet }
func (calDAV) ItemMIME() string            { return "text/calendar; charset=utf-8" }
func (calDAV) DataPropName() davxml.Name   { return davxml.CalendarData }
func (calDAV) ResourceMarker() davxml.Name { return davxml.Calendar }
