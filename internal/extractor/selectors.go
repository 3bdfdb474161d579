package extractor

// metaSource names one meta tag: the attribute carrying the key
// ("property" or "name") is not trusted, both are checked.
type metaSource string

// Sources per field, highest priority first: Open Graph, then the Twitter
// card scheme. Document-level fallbacks (<title>, meta description, link
// rel) are handled after these lists are exhausted.
//
//nolint:gochecknoglobals // static lookup table
var fieldSources = struct {
	title       []metaSource
	description []metaSource
	image       []metaSource
	siteName    []metaSource
}{
	title:       []metaSource{"og:title", "twitter:title"},
	description: []metaSource{"og:description", "twitter:description"},
	image:       []metaSource{"og:image", "og:image:url", "og:image:secure_url", "twitter:image", "twitter:image:src"},
	siteName:    []metaSource{"og:site_name", "application-name", "apple-mobile-web-app-title"},
}

// iconRels in preference order.
//
//nolint:gochecknoglobals // static lookup table
var iconRels = []string{"icon", "shortcut icon", "apple-touch-icon", "apple-touch-icon-precomposed", "mask-icon"}
