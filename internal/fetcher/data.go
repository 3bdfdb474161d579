package fetcher

import (
	"net/url"
	"time"
)

// HTTP boundary

type FetchParam struct {
	fetchUrl  url.URL
	userAgent string
	timeout   time.Duration
	accept    string
	secondary bool
}

func NewFetchParam(fetchUrl url.URL, userAgent string, timeout time.Duration) FetchParam {
	return FetchParam{
		fetchUrl:  fetchUrl,
		userAgent: userAgent,
		timeout:   timeout,
		accept:    AcceptHTML,
	}
}

// WithAccept overrides the Accept header, e.g. for JSON APIs.
func (p FetchParam) WithAccept(accept string) FetchParam {
	p.accept = accept
	return p
}

// AsSecondary marks the request as issued by an enrichment step or icon lookup.
func (p FetchParam) AsSecondary() FetchParam {
	p.secondary = true
	return p
}

func (p FetchParam) URL() url.URL {
	return p.fetchUrl
}

func (p FetchParam) Timeout() time.Duration {
	return p.timeout
}

func (p FetchParam) Secondary() bool {
	return p.secondary
}

const (
	AcceptHTML = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	AcceptJSON = "application/json"
)

type FetchResult struct {
	url  url.URL
	body []byte
	meta ResponseMeta
}

// URL is the final URL after redirects.
func (f FetchResult) URL() url.URL {
	return f.url
}

func (f FetchResult) Body() []byte {
	return f.body
}

func (f FetchResult) Code() int {
	return f.meta.statusCode
}

func (f FetchResult) Headers() map[string]string {
	return f.meta.responseHeaders
}

func (f FetchResult) ContentType() string {
	return f.meta.responseHeaders["Content-Type"]
}

// Truncated reports whether the body was cut at the size limit.
func (f FetchResult) Truncated() bool {
	return f.meta.truncated
}

func (f FetchResult) IsSuccess() bool {
	return f.meta.statusCode >= 200 && f.meta.statusCode < 300
}

type ResponseMeta struct {
	statusCode      int
	truncated       bool
	responseHeaders map[string]string
}

// NewFetchResult constructs a FetchResult outside of a real request, for
// fakes and tests in other packages.
func NewFetchResult(
	url url.URL,
	body []byte,
	statusCode int,
	responseHeaders map[string]string,
) FetchResult {
	if responseHeaders == nil {
		responseHeaders = map[string]string{}
	}
	return FetchResult{
		url:  url,
		body: body,
		meta: ResponseMeta{
			statusCode:      statusCode,
			responseHeaders: responseHeaders,
		},
	}
}
