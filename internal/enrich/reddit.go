package enrich

import (
	"context"
	"net/url"
	"strings"

	"github.com/rohmanhakim/linkmeta/pkg/urlutil"
)

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	Title     string `json:"title"`
	Selftext  string `json:"selftext"`
	Subreddit string `json:"subreddit_name_prefixed"`
}

type redditAbout struct {
	Data struct {
		Title             string `json:"title"`
		PublicDescription string `json:"public_description"`
	} `json:"data"`
}

// RedditHandler reads posts and subreddits from reddit's JSON views, which
// answer where the HTML pages are often blocked or generic.
type RedditHandler struct{}

func NewRedditHandler() RedditHandler {
	return RedditHandler{}
}

func (RedditHandler) Name() string { return "reddit" }

func (RedditHandler) Matches(ec *Context) bool {
	if !urlutil.HostMatches(ec.Host(), "reddit.com") {
		return false
	}
	sub, _ := parseRedditPath(ec.URL().Path)
	return sub != ""
}

func (RedditHandler) Enrich(ctx context.Context, ec *Context) error {
	sub, postID := parseRedditPath(ec.URL().Path)
	if sub == "" {
		return nil
	}
	md := ec.Metadata()
	md.SetSiteName("Reddit")

	err := fetchReddit(ctx, ec, sub, postID)
	if !md.HasTitle() || isGenericRedditTitle(md.Title()) {
		md.SetTitle("r/" + sub)
	}
	return err
}

func fetchReddit(ctx context.Context, ec *Context, sub string, postID string) error {
	md := ec.Metadata()
	target := ec.URL()
	target.Fragment = ""
	target.RawQuery = url.Values{"raw_json": {"1"}}.Encode()

	if postID == "" {
		target.Path = "/r/" + sub + "/about.json"
		target.RawPath = ""
		var about redditAbout
		if err := ec.FetchJSON(ctx, "reddit", target, &about); err != nil {
			return err
		}
		if desc := ec.Clean(about.Data.PublicDescription); desc != "" {
			md.SetDescription(desc)
		}
		return nil
	}

	target.Path = strings.TrimSuffix(target.Path, "/") + ".json"
	target.RawPath = ""
	var listings []redditListing
	if err := ec.FetchJSON(ctx, "reddit", target, &listings); err != nil {
		return err
	}
	if len(listings) == 0 || len(listings[0].Data.Children) == 0 {
		return &EnrichError{Message: "listing has no post", Cause: ErrCauseUndecodable, Provider: "reddit"}
	}
	post := listings[0].Data.Children[0].Data
	if title := ec.Clean(post.Title); title != "" {
		md.SetTitle(title)
	}
	if body := ec.Clean(post.Selftext); body != "" {
		md.SetDescription(body)
	}
	return nil
}

// parseRedditPath returns the subreddit and, for post URLs, the post id.
func parseRedditPath(p string) (sub string, postID string) {
	segments := pathSegments(p)
	if len(segments) < 2 || strings.ToLower(segments[0]) != "r" {
		return "", ""
	}
	sub = segments[1]
	if len(segments) >= 4 && segments[2] == "comments" {
		postID = segments[3]
	}
	return sub, postID
}

func isGenericRedditTitle(title string) bool {
	t := strings.ToLower(strings.TrimSpace(title))
	return t == "reddit" ||
		t == "blocked" ||
		strings.HasPrefix(t, "reddit - ") ||
		strings.HasPrefix(t, "reddit: ")
}
