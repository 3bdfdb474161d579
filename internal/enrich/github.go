package enrich

import (
	"context"
	"strings"
)

// first path segments that are GitHub's own pages, not owners
var githubReserved = map[string]struct{}{
	"about": {}, "apps": {}, "collections": {}, "customer-stories": {}, "enterprise": {},
	"explore": {}, "features": {}, "login": {}, "marketplace": {}, "new": {},
	"notifications": {}, "orgs": {}, "organizations": {}, "pricing": {}, "pulls": {},
	"issues": {}, "search": {}, "settings": {}, "signup": {}, "sponsors": {},
	"topics": {}, "trending": {},
}

// GitHubHandler names repository pages "owner/repo".
type GitHubHandler struct{}

func NewGitHubHandler() GitHubHandler {
	return GitHubHandler{}
}

func (GitHubHandler) Name() string { return "github" }

func (GitHubHandler) Matches(ec *Context) bool {
	return githubRepo(ec) != ""
}

func (GitHubHandler) Enrich(_ context.Context, ec *Context) error {
	repo := githubRepo(ec)
	if repo == "" {
		return nil
	}
	md := ec.Metadata()
	md.SetSiteName("GitHub")

	title := md.Title()
	lower := strings.ToLower(title)
	prefix := "github - " + strings.ToLower(repo)
	switch {
	case strings.HasPrefix(lower, prefix):
		rest := strings.TrimSpace(title[len(prefix):])
		rest = strings.TrimSpace(strings.TrimPrefix(rest, ":"))
		md.SetTitle(repo)
		if rest != "" && !md.HasDescription() {
			md.SetDescription(rest)
		}
	case isGenericGitHubTitle(lower):
		md.SetTitle(repo)
	}
	return nil
}

func githubRepo(ec *Context) string {
	host := ec.Host()
	if host != "github.com" && host != "www.github.com" {
		return ""
	}
	segments := pathSegments(ec.URL().Path)
	if len(segments) < 2 {
		return ""
	}
	if _, reserved := githubReserved[strings.ToLower(segments[0])]; reserved {
		return ""
	}
	return segments[0] + "/" + strings.TrimSuffix(segments[1], ".git")
}

func isGenericGitHubTitle(lower string) bool {
	return lower == "" ||
		lower == "github" ||
		strings.HasPrefix(lower, "github: ") ||
		strings.HasPrefix(lower, "github · ")
}
