package extractor

import (
	"bytes"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rohmanhakim/linkmeta/internal/sanitizer"
	"github.com/rohmanhakim/linkmeta/internal/telemetry"
)

/*
Responsibilities
- Parse raw response bytes into a DOM
- Pick title, description, image, site name and icon hint

Priority, per field:
  - Open Graph tags
  - Twitter card tags
  - Document tags (<title>, meta description, link rel)

All text passes through the sanitizer. Extraction never fails: malformed
markup yields whatever fields the parser recovered.
*/

type Extractor interface {
	Extract(sourceUrl url.URL, htmlByte []byte) RawFields
}

type MetaExtractor struct {
	sink      telemetry.Sink
	sanitizer sanitizer.Sanitizer
}

func NewMetaExtractor(sink telemetry.Sink, s sanitizer.Sanitizer) *MetaExtractor {
	if sink == nil {
		sink = telemetry.NoopSink{}
	}
	if s == nil {
		s = sanitizer.NewTextSanitizer()
	}
	return &MetaExtractor{
		sink:      sink,
		sanitizer: s,
	}
}

// Extract reads metadata from htmlByte. sourceUrl resolves relative image
// and icon references.
func (m *MetaExtractor) Extract(sourceUrl url.URL, htmlByte []byte) RawFields {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(htmlByte))
	if err != nil {
		extractionErr := &ExtractionError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseUnparseable,
		}
		m.sink.RecordError(
			time.Now(),
			"extractor",
			"MetaExtractor.Extract",
			mapExtractionErrorToTelemetryCause(extractionErr),
			extractionErr.Error(),
			[]telemetry.Attribute{
				telemetry.NewAttr(telemetry.AttrURL, sourceUrl.String()),
			},
		)
		return RawFields{}
	}
	return m.fromDocument(sourceUrl, doc)
}

func (m *MetaExtractor) fromDocument(sourceUrl url.URL, doc *goquery.Document) RawFields {
	metas := collectMeta(doc)

	fields := RawFields{
		Title:       m.text(pick(metas, fieldSources.title)),
		Description: m.text(pick(metas, fieldSources.description)),
		SiteName:    m.text(pick(metas, fieldSources.siteName)),
		Image:       absolute(sourceUrl, pick(metas, fieldSources.image)),
	}

	if fields.Title == nil {
		fields.Title = m.text(doc.Find("title").First().Text())
	}
	if fields.Description == nil {
		fields.Description = m.text(metas["description"])
	}
	if fields.Image == nil {
		fields.Image = absolute(sourceUrl, doc.Find(`link[rel="image_src"]`).First().AttrOr("href", ""))
	}
	fields.IconHint = absolute(sourceUrl, iconHref(doc))

	return fields
}

// collectMeta maps lowercased meta keys to the first non-empty content.
func collectMeta(doc *goquery.Document) map[string]string {
	metas := make(map[string]string)
	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		content, ok := s.Attr("content")
		if !ok || strings.TrimSpace(content) == "" {
			return
		}
		for _, attr := range []string{"property", "name", "itemprop"} {
			key := strings.ToLower(strings.TrimSpace(s.AttrOr(attr, "")))
			if key == "" {
				continue
			}
			if _, seen := metas[key]; !seen {
				metas[key] = content
			}
		}
	})
	return metas
}

func pick(metas map[string]string, sources []metaSource) string {
	for _, src := range sources {
		if v, ok := metas[string(src)]; ok {
			return v
		}
	}
	return ""
}

func iconHref(doc *goquery.Document) string {
	candidates := make(map[string]string)
	doc.Find("link[rel][href]").Each(func(_ int, s *goquery.Selection) {
		rel := strings.Join(strings.Fields(strings.ToLower(s.AttrOr("rel", ""))), " ")
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" {
			return
		}
		if _, seen := candidates[rel]; !seen {
			candidates[rel] = href
		}
	})
	for _, rel := range iconRels {
		if href, ok := candidates[rel]; ok {
			return href
		}
	}
	return ""
}

func (m *MetaExtractor) text(raw string) *string {
	return Ptr(m.sanitizer.Text(raw))
}

// absolute resolves ref against base. Anything that does not resolve to
// an http(s) or data URL is dropped.
func absolute(base url.URL, ref string) *string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil
	}
	if strings.HasPrefix(ref, "data:image/") {
		return &ref
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return nil
	}
	resolved := base.ResolveReference(parsed)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return nil
	}
	return Ptr(resolved.String())
}
