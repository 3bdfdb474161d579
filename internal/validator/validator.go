// Package validator decides whether a fetched page is the page that was
// asked for.
package validator

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/rohmanhakim/linkmeta/internal/extractor"
	"github.com/rohmanhakim/linkmeta/internal/fetcher"
	"github.com/rohmanhakim/linkmeta/pkg/urlutil"
)

// maxScanBytes bounds how much of a body the phrase scan looks at.
const maxScanBytes = 512 * 1024

type Validator interface {
	Classify(result fetcher.FetchResult, fields extractor.RawFields) Outcome
}

// ResultValidator applies per-site phrase tables and a generic title
// pattern. It holds no state and is safe for concurrent use.
type ResultValidator struct{}

func NewResultValidator() ResultValidator {
	return ResultValidator{}
}

// Classify never fails. Statuses of 400 and above become HTTPError; soft
// not-found detection only runs on a plain 200.
func (ResultValidator) Classify(result fetcher.FetchResult, fields extractor.RawFields) Outcome {
	status := result.Code()
	if status >= 400 {
		return HTTPError(status)
	}
	if status != 200 {
		return Ok()
	}

	title := strings.ToLower(extractor.Deref(fields.Title))
	finalUrl := result.URL()
	if rule, ok := ruleFor(finalUrl); ok {
		body := result.Body()
		if len(body) > maxScanBytes {
			body = body[:maxScanBytes]
		}
		lowerBody := bytes.ToLower(body)
		for _, phrase := range rule.phrases {
			if strings.Contains(title, phrase) || bytes.Contains(lowerBody, []byte(phrase)) {
				return SoftNotFound(rule.name + ": " + phrase)
			}
		}
	}

	if title != "" && genericTitle.MatchString(title) {
		return SoftNotFound("title: " + extractor.Deref(fields.Title))
	}
	return Ok()
}

func ruleFor(u url.URL) (siteRule, bool) {
	host := urlutil.Host(u)
	if host == "" {
		return siteRule{}, false
	}
	for _, rule := range siteRules {
		for _, domain := range rule.domains {
			if urlutil.HostMatches(host, domain) {
				return rule, true
			}
		}
	}
	return siteRule{}, false
}
