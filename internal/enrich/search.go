package enrich

import (
	"context"
	"strings"

	"github.com/rohmanhakim/linkmeta/pkg/urlutil"
)

type searchEngine struct {
	name  string
	param string
	match func(host, path string) bool
}

var searchEngines = []searchEngine{
	{
		name:  "Google",
		param: "q",
		match: func(host, path string) bool {
			return strings.HasPrefix(urlutil.RegistrableDomain(host), "google.") && path == "/search"
		},
	},
	{
		name:  "Bing",
		param: "q",
		match: func(host, path string) bool {
			return urlutil.HostMatches(host, "bing.com") && path == "/search"
		},
	},
	{
		name:  "DuckDuckGo",
		param: "q",
		match: func(host, path string) bool {
			return urlutil.HostMatches(host, "duckduckgo.com") && (path == "" || path == "/" || path == "/html" || path == "/html/")
		},
	},
	{
		name:  "Yahoo",
		param: "p",
		match: func(host, path string) bool {
			return urlutil.HostMatches(host, "search.yahoo.com") && strings.HasPrefix(path, "/search")
		},
	},
}

// SearchHandler names search result pages after their query.
type SearchHandler struct{}

func NewSearchHandler() SearchHandler {
	return SearchHandler{}
}

func (SearchHandler) Name() string { return "search" }

func (h SearchHandler) Matches(ec *Context) bool {
	_, query := h.detect(ec)
	return query != ""
}

func (h SearchHandler) Enrich(_ context.Context, ec *Context) error {
	engine, query := h.detect(ec)
	if query == "" {
		return nil
	}
	md := ec.Metadata()
	md.SetTitle("Search: " + query)
	md.SetSiteName(engine.name)
	// result pages carry the engine's own blurb, not anything about the query
	md.SetDescription("")
	return nil
}

func (SearchHandler) detect(ec *Context) (searchEngine, string) {
	u := ec.URL()
	host := ec.Host()
	for _, engine := range searchEngines {
		if !engine.match(host, u.Path) {
			continue
		}
		query := ec.Clean(u.Query().Get(engine.param))
		if query != "" {
			return engine, query
		}
	}
	return searchEngine{}, ""
}
