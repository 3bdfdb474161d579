package enrich

import (
	"context"
	"net/url"
	"strings"

	"github.com/rohmanhakim/linkmeta/pkg/urlutil"
)

// oEmbedResponse is the subset of an oEmbed answer the handler reads.
type oEmbedResponse struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailURL string `json:"thumbnail_url"`
	ProviderName string `json:"provider_name"`
}

// YouTubeHandler replaces YouTube's generic page fields with the video's
// own title and author from the oEmbed endpoint.
type YouTubeHandler struct {
	endpoint string
}

func NewYouTubeHandler(endpoint string) YouTubeHandler {
	if endpoint == "" {
		endpoint = DefaultOEmbedEndpoint
	}
	return YouTubeHandler{endpoint: endpoint}
}

func (YouTubeHandler) Name() string { return "youtube" }

func (YouTubeHandler) Matches(ec *Context) bool {
	u := ec.URL()
	host := ec.Host()
	switch {
	case urlutil.HostMatches(host, "youtu.be"):
		return len(pathSegments(u.Path)) > 0
	case urlutil.HostMatches(host, "youtube.com"):
		segments := pathSegments(u.Path)
		if len(segments) == 0 {
			return false
		}
		switch segments[0] {
		case "watch":
			return u.Query().Get("v") != ""
		case "playlist":
			return u.Query().Get("list") != ""
		case "shorts", "live", "embed":
			return len(segments) > 1
		}
	}
	return false
}

func (h YouTubeHandler) Enrich(ctx context.Context, ec *Context) error {
	md := ec.Metadata()
	md.SetSiteName("YouTube")

	target, err := url.Parse(h.endpoint)
	if err != nil {
		return &EnrichError{Message: err.Error(), Cause: ErrCauseFetchFailed, Provider: "youtube", Err: err}
	}
	q := target.Query()
	q.Set("url", ec.RawURL())
	q.Set("format", "json")
	target.RawQuery = q.Encode()

	var oembed oEmbedResponse
	if err := ec.FetchJSON(ctx, "youtube", *target, &oembed); err != nil {
		return err
	}

	if title := ec.Clean(oembed.Title); title != "" {
		md.SetTitle(title)
	}
	if author := ec.Clean(oembed.AuthorName); author != "" {
		if !md.HasDescription() || isGenericYouTubeDescription(md.Description()) {
			md.SetDescription("By " + author)
		}
	}
	if md.Image() == "" && strings.HasPrefix(oembed.ThumbnailURL, "https://") {
		md.SetImage(oembed.ThumbnailURL)
	}
	return nil
}

func isGenericYouTubeDescription(description string) bool {
	return strings.HasPrefix(strings.ToLower(description), "enjoy the videos and music you love")
}
