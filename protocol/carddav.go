package protocol

import (
	"github.com/go-dav/davsync/dav"
	"github.com/go-dav/davsync/internal/davxml"
)

// cardDAV implements Descriptor for RFC 6352 address book collections.
type cardDAV struct{}

func (cardDAV) Tag() dav.ProtocolTag { return dav.ProtocolCardDAV }

func (cardDAV) CollectionPropQuery() ([]byte, error) {
	return davxml.NewPropFindBuilder(map[string]string{"CARD": davxml.NSCardDAV}).
		Want(
			davxml.ResourceType,
			davxml.DisplayName,
			davxml.GetCTag,
			davxml.CurrentUserPrivSet,
		).Build()
}

// ItemListQueries issues an empty-filter addressbook-query REPORT, which
// RFC 6352 §8.6.1 defines as matching every vCard in the collection.
func (cardDAV) ItemListQueries() ([]ItemListQuery, error) {
	rb := davxml.NewReportBuilder("addressbook-query", davxml.NSCardDAV, "CARD", nil)
	rb.Prop(davxml.GetETag)
	rb.Root.CreateElement("CARD:filter")
	body, err := rb.Build()
	if err != nil {
		return nil, err
	}
	return []ItemListQuery{{Body: body, UsesReport: true}}, nil
}

func (cardDAV) UsesMultiget() bool { return true }

func (cardDAV) BuildMultiget(paths []string) ([]byte, error) {
	rb := davxml.NewReportBuilder("addressbook-multiget", davxml.NSCardDAV, "CARD", nil)
	rb.Prop(davxml.GetETag, davxml.AddressData)
	rb.Hrefs(paths)
	return rb.Build()
}

func (cardDAV) SupportsPrincipals() bool    { return true }
func (cardDAV) HomeSetProp() davxml.Name    { return davxml.AddressbookHomeSet }
func (cardDAV) ItemMIME() string            { return "text/vcard; charset=utf-8" }
func (cardDAV) DataPropName() davxml.Name   { return davxml.AddressData }
func (cardDAV) ResourceMarker() davxml.Name { return davxml.Addressbook }
