package job

import (
	"context"
	"net/http"

	"github.com/samber/mo"

	"github.com/go-dav/davsync/dav"
	"github.com/go-dav/davsync/internal/davxml"
)

// PrincipalHomeSetsJob implements spec §4.3: given a URL believed to be
// a principal, fetch the protocol's home-set property and return the
// resolved list of home-set URLs.
type PrincipalHomeSetsJob struct {
	deps Deps
	url  dav.URL
}

func NewPrincipalHomeSetsJob(deps Deps, principalURL dav.URL) *PrincipalHomeSetsJob {
	return &PrincipalHomeSetsJob{deps: deps, url: principalURL}
}

func (j *PrincipalHomeSetsJob) Run(ctx context.Context) Result[[]dav.URL] {
	desc, err := j.deps.Registry.For(j.url.Protocol)
	if err != nil {
		return mo.Err[[]dav.URL](dav.NewError(dav.ProblemWithRequest, 0, "unknown protocol", err))
	}

	body, err := davxml.NewPropFindBuilder(nil).
		Want(desc.HomeSetProp(), davxml.CurrentUserPrincipal).
		Build()
	if err != nil {
		return mo.Err[[]dav.URL](dav.NewError(dav.ProblemWithRequest, 0, "building propfind body", err))
	}

	headers := http.Header{
		"Content-Type": {"text/xml; charset=utf-8"},
		"Depth":        {davxml.DepthZero.HeaderValue()},
	}
	resp, derr := j.deps.request(ctx, "PROPFIND", j.url.String(), headers, body)
	if derr != nil {
		j.deps.Logger.Warn().Err(derr).Str("url", j.url.String()).Msg("principal home-set fetch failed")
		return mo.Err[[]dav.URL](recodeAs(derr, dav.CollectionFetch))
	}
	if resp.StatusCode/100 != 2 {
		return mo.Err[[]dav.URL](dav.NewError(dav.CollectionFetch, resp.StatusCode, "unexpected status from principal PROPFIND", nil))
	}

	ms, err := davxml.ParseMultistatus(resp.Body)
	if err != nil {
		return mo.Err[[]dav.URL](dav.NewError(dav.CollectionFetchXQueryInvalid, resp.StatusCode, "parsing multistatus", err))
	}

	var homeSets []dav.URL
	for _, r := range ms.Responses {
		ps := r.OKPropStat()
		if ps == nil {
			continue
		}
		el := davxml.PropElement(ps.Props, desc.HomeSetProp())
		if el == nil {
			continue
		}
		for _, hrefEl := range davxml.ChildrenWithNS(el, davxml.Href) {
			href := davxml.Text(hrefEl)
			if href == "" {
				continue
			}
			resolved, err := j.url.Resolve(href)
			if err != nil {
				continue
			}
			homeSets = append(homeSets, resolved)
		}
	}

	return mo.Ok(homeSets)
}

// recodeAs rewrites a generic transport error's kind to the one the
// calling job family reports failures under, keeping the response code
// and cause intact.
func recodeAs(err *dav.Error, kind dav.ErrorKind) *dav.Error {
	if err.Kind != dav.ProblemWithRequest {
		return err
	}
	return dav.NewError(kind, err.ResponseCode, err.Message, err.Cause)
}
