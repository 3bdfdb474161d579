/*
Responsibilities
- Decode HTML entities
- Strip tags, dropping script and style bodies
- Collapse runs of whitespace to a single space

Every text value placed on a resolved record passes through here, so no
markup ever reaches a renderer.
*/
package sanitizer

import (
	"html"
	"strings"
	"unicode"

	nethtml "golang.org/x/net/html"
)

// MaxTextRunes bounds the sanitized output. No real title or description
// comes near it; it only guards against pathological input.
const MaxTextRunes = 1 << 20

// maxDecodePasses bounds how many layers of entity escaping are peeled.
const maxDecodePasses = 8

type TextSanitizer struct{}

func NewTextSanitizer() TextSanitizer {
	return TextSanitizer{}
}

func (TextSanitizer) Text(raw string) string {
	return Text(raw)
}

// Text is the package-level form of TextSanitizer.Text.
func Text(raw string) string {
	if raw == "" {
		return ""
	}
	// meta content is often escaped more than once ("&amp;lt;b&amp;gt;"), and
	// every decoded layer may turn into markup, so strip and decode until stable
	s := raw
	for range maxDecodePasses {
		next := html.UnescapeString(stripTags(s))
		if next == s {
			return CollapseWhitespace(s)
		}
		s = next
	}
	return CollapseWhitespace(angleBrackets.Replace(stripTags(s)))
}

var angleBrackets = strings.NewReplacer("<", "", ">", "")

// stripTags keeps text tokens, which the tokenizer has already
// entity-decoded, and drops everything inside raw-text elements.
func stripTags(raw string) string {
	if !strings.ContainsAny(raw, "<&") {
		return raw
	}

	var b strings.Builder
	z := nethtml.NewTokenizer(strings.NewReader(raw))
	skipDepth := 0
	for {
		switch z.Next() {
		case nethtml.ErrorToken:
			return b.String()
		case nethtml.TextToken:
			if skipDepth == 0 {
				b.Write(z.Text())
			}
		case nethtml.StartTagToken:
			name, _ := z.TagName()
			if isRawTextElement(string(name)) {
				skipDepth++
			} else if isBlockElement(string(name)) {
				b.WriteByte(' ')
			}
		case nethtml.EndTagToken:
			name, _ := z.TagName()
			if isRawTextElement(string(name)) {
				if skipDepth > 0 {
					skipDepth--
				}
			} else if isBlockElement(string(name)) {
				b.WriteByte(' ')
			}
		case nethtml.SelfClosingTagToken:
			name, _ := z.TagName()
			if isBlockElement(string(name)) {
				b.WriteByte(' ')
			}
		}
	}
}

func isRawTextElement(name string) bool {
	switch name {
	case "script", "style", "noscript", "template":
		return true
	}
	return false
}

func isBlockElement(name string) bool {
	switch name {
	case "p", "div", "br", "li", "ul", "ol", "h1", "h2", "h3", "h4", "h5", "h6",
		"tr", "td", "th", "blockquote", "section", "article":
		return true
	}
	return false
}

// CollapseWhitespace trims s and replaces every whitespace run, including
// non-breaking and zero-width spaces, with a single space. Output is capped
// at MaxTextRunes.
func CollapseWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	runes := 0
	for _, r := range s {
		if unicode.IsSpace(r) || r == '\u200B' || r == '\uFEFF' {
			pendingSpace = b.Len() > 0
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		b.WriteRune(r)
		runes++
		if runes >= MaxTextRunes {
			break
		}
	}
	return b.String()
}
