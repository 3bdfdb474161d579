package sanitizer

// Sanitizer turns untrusted metadata text into plain display text.
// Implementations never fail; malformed input degrades to whatever text
// can be recovered.
type Sanitizer interface {
	// Text decodes entities, strips tags and collapses whitespace.
	Text(raw string) string
}

// Compile-time interface check
var _ Sanitizer = TextSanitizer{}
