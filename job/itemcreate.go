package job

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/samber/mo"

	"github.com/go-dav/davsync/dav"
)

// ItemCreateJob implements spec §4.10: PUT a new item with
// If-None-Match: * so the server refuses to overwrite an existing
// resource.
type ItemCreateJob struct {
	deps          Deps
	collectionURL dav.URL
	item          dav.Item
}

// NewItemCreateJob builds a create job. If item.URL is empty, a
// filename is synthesized from a fresh UUID and the protocol's default
// extension, the way the teacher's CreateCalendarObject does with
// uuid.New().String()+".ics".
func NewItemCreateJob(deps Deps, collectionURL dav.URL, item dav.Item) *ItemCreateJob {
	return &ItemCreateJob{deps: deps, collectionURL: collectionURL, item: item}
}

func (j *ItemCreateJob) Run(ctx context.Context) Result[dav.Item] {
	desc, err := j.deps.Registry.For(j.collectionURL.Protocol)
	if err != nil {
		return mo.Err[dav.Item](dav.NewError(dav.ProblemWithRequest, 0, "unknown protocol", err))
	}

	targetURL := j.item.URL
	if targetURL == "" {
		name := uuid.New().String() + extensionFor(j.collectionURL.Protocol)
		u, err := j.collectionURL.Resolve(name)
		if err != nil {
			return mo.Err[dav.Item](dav.NewError(dav.ProblemWithRequest, 0, "building new item url", err))
		}
		targetURL = u.String()
	}

	contentType := j.item.ContentType
	if contentType == "" {
		contentType = desc.ItemMIME()
	}

	headers := http.Header{
		"Content-Type":  {contentType},
		"If-None-Match": {"*"},
	}
	resp, derr := j.deps.request(ctx, http.MethodPut, targetURL, headers, j.item.Payload)
	if derr != nil {
		return mo.Err[dav.Item](recodeAs(derr, dav.ItemCreate))
	}

	if resp.StatusCode == http.StatusPreconditionFailed {
		return mo.Err[dav.Item](dav.NewError(dav.ItemExists, resp.StatusCode, "item already exists", nil))
	}
	if resp.StatusCode/100 != 2 {
		return mo.Err[dav.Item](dav.NewError(dav.ItemCreate, resp.StatusCode, "unexpected status from item PUT", nil))
	}

	finalURL := targetURL
	if loc := resp.Header.Get("Location"); loc != "" {
		if u, err := j.collectionURL.Resolve(loc); err == nil {
			finalURL = u.String()
		}
	}

	etag := resp.Header.Get("ETag")
	if etag == "" {
		fetched := NewItemFetchJob(j.deps, finalURL).Run(ctx)
		if fetched.IsError() {
			derr, _ := fetched.Error().(*dav.Error)
			return mo.Err[dav.Item](recodeAs(derr, dav.ItemCreate))
		}
		etag = fetched.MustGet().ETag
	}

	return mo.Ok(dav.Item{
		URL:         finalURL,
		ContentType: contentType,
		Payload:     j.item.Payload,
		ETag:        etag,
	})
}

func extensionFor(p dav.ProtocolTag) string {
	switch p {
	case dav.ProtocolCalDAV:
		return ".ics"
	case dav.ProtocolCardDAV:
		return ".vcf"
	default:
		return ""
	}
}
