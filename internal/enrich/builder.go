package enrich

import (
	"github.com/rohmanhakim/linkmeta/internal/extractor"
)

// Builder is the single owner of the in-progress fields during one
// pipeline pass. Handlers change fields only through it.
type Builder struct {
	fields  extractor.RawFields
	touched map[string]struct{}
}

func NewBuilder(fields extractor.RawFields) *Builder {
	return &Builder{
		fields:  copyFields(fields),
		touched: make(map[string]struct{}),
	}
}

func (b *Builder) Title() string       { return extractor.Deref(b.fields.Title) }
func (b *Builder) Description() string { return extractor.Deref(b.fields.Description) }
func (b *Builder) SiteName() string    { return extractor.Deref(b.fields.SiteName) }
func (b *Builder) Image() string       { return extractor.Deref(b.fields.Image) }
func (b *Builder) IconHint() string    { return extractor.Deref(b.fields.IconHint) }

func (b *Builder) HasTitle() bool       { return b.fields.Title != nil }
func (b *Builder) HasDescription() bool { return b.fields.Description != nil }
func (b *Builder) HasSiteName() bool    { return b.fields.SiteName != nil }

// Setters treat "" as clearing the field.

func (b *Builder) SetTitle(title string) {
	b.fields.Title = extractor.Ptr(title)
	b.touch("title")
}

func (b *Builder) SetDescription(description string) {
	b.fields.Description = extractor.Ptr(description)
	b.touch("description")
}

func (b *Builder) SetSiteName(siteName string) {
	b.fields.SiteName = extractor.Ptr(siteName)
	b.touch("siteName")
}

func (b *Builder) SetImage(image string) {
	b.fields.Image = extractor.Ptr(image)
	b.touch("image")
}

func (b *Builder) SetIconHint(iconHint string) {
	b.fields.IconHint = extractor.Ptr(iconHint)
	b.touch("iconHint")
}

// Touched lists the field names changed so far.
func (b *Builder) Touched() []string {
	names := make([]string, 0, len(b.touched))
	for _, f := range []string{"title", "description", "siteName", "image", "iconHint"} {
		if _, ok := b.touched[f]; ok {
			names = append(names, f)
		}
	}
	return names
}

// Fields returns a copy of the current state.
func (b *Builder) Fields() extractor.RawFields {
	return copyFields(b.fields)
}

func (b *Builder) touch(field string) {
	b.touched[field] = struct{}{}
}

func copyFields(f extractor.RawFields) extractor.RawFields {
	return extractor.RawFields{
		Title:       copyPtr(f.Title),
		Description: copyPtr(f.Description),
		Image:       copyPtr(f.Image),
		SiteName:    copyPtr(f.SiteName),
		IconHint:    copyPtr(f.IconHint),
	}
}

func copyPtr(p *string) *string {
	if p == nil {
		return nil
	}
	s := *p
	return &s
}
