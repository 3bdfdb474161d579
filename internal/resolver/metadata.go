package resolver

import (
	"github.com/rohmanhakim/linkmeta/pkg/urlutil"
)

// Metadata is the resolved, display-ready record for one URL. Title is
// never empty; nil fields mean no source provided a value. Error is set
// when resolution failed in a way the caller may want to surface.
type Metadata struct {
	URL         string  `json:"url"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	IconRef     *string `json:"iconRef"`
	SiteName    *string `json:"siteName"`
	Image       *string `json:"image,omitempty"`
	Error       *string `json:"error"`

	// the page's own icon reference and whether the page answered at all;
	// kept so a later caller asking for icons can be served from cache
	iconHint  string
	responded bool
}

// HasError reports whether the record carries a failure tag.
func (m Metadata) HasError() bool {
	return m.Error != nil
}

// ErrorTag returns the failure tag or "".
func (m Metadata) ErrorTag() string {
	if m.Error == nil {
		return ""
	}
	return *m.Error
}

// clone copies the pointed-to values so callers cannot reach into a cached
// record.
func (m Metadata) clone() Metadata {
	m.Description = clonePtr(m.Description)
	m.IconRef = clonePtr(m.IconRef)
	m.SiteName = clonePtr(m.SiteName)
	m.Image = clonePtr(m.Image)
	m.Error = clonePtr(m.Error)
	return m
}

func clonePtr(p *string) *string {
	if p == nil {
		return nil
	}
	s := *p
	return &s
}

func ptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// failed builds the record for a resolution that produced nothing usable.
func failed(key string, fallbackTitle string, tag string) Metadata {
	if fallbackTitle == "" {
		fallbackTitle = urlutil.FallbackTitleFromString(key)
	}
	return Metadata{
		URL:   key,
		Title: fallbackTitle,
		Error: ptr(tag),
	}
}
