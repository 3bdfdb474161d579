package enrich

import (
	"context"

	"github.com/rohmanhakim/linkmeta/pkg/urlutil"
)

// SiteNameHandler fills a missing site name from the registrable domain.
type SiteNameHandler struct{}

func NewSiteNameHandler() SiteNameHandler {
	return SiteNameHandler{}
}

func (SiteNameHandler) Name() string { return "sitename" }

func (SiteNameHandler) Matches(ec *Context) bool {
	return !ec.Metadata().HasSiteName()
}

func (SiteNameHandler) Enrich(_ context.Context, ec *Context) error {
	if name := urlutil.SiteNameFromHost(ec.Host()); name != "" {
		ec.Metadata().SetSiteName(name)
	}
	return nil
}
