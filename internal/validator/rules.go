package validator

import (
	"regexp"
)

// siteRule lists phrases that, on a matching host, mean the page is gone
// even though the server answered 200. Phrases are lowercase.
type siteRule struct {
	name    string
	domains []string
	phrases []string
}

var siteRules = []siteRule{
	{
		name:    "youtube",
		domains: []string{"youtube.com", "youtu.be"},
		phrases: []string{
			"video unavailable",
			"this video isn't available anymore",
			"this video is no longer available",
			"this video has been removed",
			"this video is private",
		},
	},
	{
		name:    "reddit",
		domains: []string{"reddit.com"},
		phrases: []string{
			"community does not exist",
			"community not found",
			"page not found",
			"there doesn't seem to be anything here",
			"sorry, nobody on reddit goes by that name",
		},
	},
	{
		name:    "github",
		domains: []string{"github.com"},
		phrases: []string{
			"page not found · github",
			"this is not the web page you are looking for",
		},
	},
	{
		name:    "twitter",
		domains: []string{"twitter.com", "x.com"},
		phrases: []string{
			"this account doesn't exist",
			"hmm...this page doesn't exist",
			"this post is unavailable",
		},
	},
	{
		name:    "medium",
		domains: []string{"medium.com"},
		phrases: []string{
			"page not found",
			"out of nothing, something",
		},
	},
}

// genericTitle matches titles that announce a 4xx page on any site.
var genericTitle = regexp.MustCompile(
	`(?i)^\s*(?:error\s*)?4\d\d\s*$` +
		`|\b4\d\d\b\s*[-:|·–]?\s*(?:page\s+)?(?:not\s+found|forbidden|gone|error|unauthorized)\b` +
		`|\b(?:page|file|resource|document)\s+(?:was\s+)?not\s+found\b` +
		`|^\s*not\s+found\s*$`,
)
