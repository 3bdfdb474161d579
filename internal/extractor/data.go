package extractor

// RawFields is the extracted, sanitized but otherwise unprocessed field set.
// A nil field means no source provided it.
type RawFields struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Image       *string `json:"image,omitempty"`
	SiteName    *string `json:"siteName,omitempty"`
	IconHint    *string `json:"iconHint,omitempty"`
}

func (r RawFields) IsEmpty() bool {
	return r.Title == nil && r.Description == nil && r.Image == nil && r.SiteName == nil && r.IconHint == nil
}

// Deref returns *p or "" for nil.
func Deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// Ptr returns a pointer to s, or nil when s is empty.
func Ptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
