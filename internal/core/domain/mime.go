package domain

import "strings"

// Content types the gateway knows by name.
const (
	MimeHTML      = "text/html"
	MimeTurtle    = "text/turtle"
	MimePlain     = "text/plain"
	MimeJSONLD    = "application/ld+json"
	MimeRDFXML    = "application/rdf+xml"
	MimeNTriples  = "application/n-triples"
	MimeXLIFF     = "application/x-xliff+xml"
	MimeJSON      = "application/json"
	MimeXML       = "text/xml"
	MimeMarkdown  = "text/x-markdown"
	MimeODT       = "application/x-openoffice"
	MimeSemantic  = MimeTurtle // interchange serialization used between steps
	MimeMarkupFmt = MimeHTML   // markup format subject to round-trip
)

// shortFormats maps the short format names accepted in informat/outformat
// parameters to full content types.
var shortFormats = map[string]string{
	"html":      MimeHTML,
	"turtle":    MimeTurtle,
	"ttl":       MimeTurtle,
	"text":      MimePlain,
	"json-ld":   MimeJSONLD,
	"jsonld":    MimeJSONLD,
	"rdf-xml":   MimeRDFXML,
	"n-triples": MimeNTriples,
	"xliff":     MimeXLIFF,
	"json":      MimeJSON,
	"xml":       MimeXML,
	"markdown":  MimeMarkdown,
	"odt":       MimeODT,
}

// NormalizeMime lowercases a content type, drops parameters such as charset
// and expands short format names. For an Accept-style list only the first
// media range is kept.
func NormalizeMime(v string) string {
	v = strings.TrimSpace(strings.ToLower(v))
	if i := strings.IndexByte(v, ','); i >= 0 {
		v = strings.TrimSpace(v[:i])
	}
	if i := strings.IndexByte(v, ';'); i >= 0 {
		v = strings.TrimSpace(v[:i])
	}
	if full, ok := shortFormats[v]; ok {
		return full
	}
	return v
}

// IsMarkup reports whether the content type is the round-trip markup format.
func IsMarkup(v string) bool {
	return NormalizeMime(v) == MimeMarkupFmt
}
