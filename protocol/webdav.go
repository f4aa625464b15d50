package protocol

import (
	"errors"

	"github.com/go-dav/davsync/dav"
	"github.com/go-dav/davsync/internal/davxml"
)

// webDAV implements Descriptor for plain RFC 4918 collections with no
// calendaring or addressbook semantics: item listing is a depth-1
// PROPFIND over the collection itself, and there is no multiget REPORT
// to batch item fetches with.
type webDAV struct{}

func (webDAV) Tag() dav.ProtocolTag { return dav.ProtocolWebDAV }

func (webDAV) CollectionPropQuery() ([]byte, error) {
	return davxml.NewPropFindBuilder(nil).
		Want(davxml.ResourceType, davxml.DisplayName, davxml.CurrentUserPrivSet).
		Build()
}

// ItemListQueries returns a single PROPFIND body; the job issuing it is
// responsible for sending it with Depth: 1, since a WebDAV collection
// has no REPORT query to enumerate members with.
func (webDAV) ItemListQueries() ([]ItemListQuery, error) {
	body, err := davxml.NewPropFindBuilder(nil).
		Want(davxml.ResourceType, davxml.GetETag, davxml.GetContentType).
		Build()
	if err != nil {
		return nil, err
	}
	return []ItemListQuery{{Body: body, UsesReport: false}}, nil
}

func (webDAV) UsesMultiget() bool { return false }

func (webDAV) BuildMultiget([]string) ([]byte, error) {
	return nil, errors.New("protocol: webdav has no multiget report")
}

func (webDAV) SupportsPrincipals() bool    { return false }
func (webDAV) HomeSetProp() davxml.Name    { return davxml.Name{} }
func (webDAV) ItemMIME() string            { return "application/octet-stream" }
func (webDAV) DataPropName() davxml.Name   { return davxml.Name{} }
func (webDAV) ResourceMarker() davxml.Name { return davxml.Name{} }
