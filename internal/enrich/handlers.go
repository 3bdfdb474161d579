package enrich

import (
	"strings"
)

const DefaultOEmbedEndpoint = "https://www.youtube.com/oembed"

// DefaultHandlers returns the built-in handlers in registration order.
func DefaultHandlers() []Handler {
	return []Handler{
		NewSearchHandler(),
		NewRedditHandler(),
		NewYouTubeHandler(DefaultOEmbedEndpoint),
		NewGitHubHandler(),
		NewSiteNameHandler(),
	}
}

func pathSegments(p string) []string {
	parts := strings.Split(p, "/")
	segments := parts[:0]
	for _, part := range parts {
		if part != "" {
			segments = append(segments, part)
		}
	}
	return segments
}
