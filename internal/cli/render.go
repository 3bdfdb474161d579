package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/rohmanhakim/linkmeta/internal/config"
	"github.com/rohmanhakim/linkmeta/internal/resolver"
)

var (
	titleColor = color.New(color.Bold, color.FgCyan)
	urlColor   = color.New(color.FgHiBlack)
	errorColor = color.New(color.FgRed)
	warnColor  = color.New(color.FgYellow)
)

// writeRecord prints one record in the human format. The presentation
// flags of cfg decide whether the description is shown and how HTTP
// errors are colored.
func writeRecord(w io.Writer, md resolver.Metadata, cfg config.ResolutionConfig) {
	title := md.Title
	if md.SiteName != nil && *md.SiteName != "" && !strings.EqualFold(*md.SiteName, title) {
		title = title + " | " + *md.SiteName
	}
	titleColor.Fprintln(w, title)
	urlColor.Fprintln(w, "  "+md.URL)

	if cfg.IncludeDescription && md.Description != nil && *md.Description != "" {
		fmt.Fprintln(w, "  "+*md.Description)
	}
	if md.IconRef != nil {
		urlColor.Fprintln(w, "  icon: "+*md.IconRef)
	}
	if md.HasError() {
		tag := md.ErrorTag()
		c := errorColor
		if cfg.HTTPErrorsAreWarnings && isHTTPErrorTag(tag) {
			c = warnColor
		}
		c.Fprintln(w, "  error: "+tag)
	}
}

func isHTTPErrorTag(tag string) bool {
	return strings.HasPrefix(tag, "http-") || tag == "soft-404"
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
