// Package dialect parses heterogeneous source XML documents into a normalized
// stream of raw verse tuples. Each supported dialect differs only in the
// element and attribute names used for the book/chapter/verse nesting; the
// set of dialects is closed and selection is explicit configuration, never
// runtime sniffing.
package dialect

import (
	"fmt"
	"io"
)

// Verse is one raw tuple in document order: the source's own book token, the
// chapter and verse numbers, and the verse text. Whitespace-only or missing
// text is preserved as the empty string; completeness checks flag it later,
// the parser does not.
type Verse struct {
	BookToken string
	Chapter   int
	Number    int
	Text      string
}

// Parser turns one source document into its verse tuples. Parsing the same
// bytes twice yields the identical sequence. The walk stops at the first
// structural error; fn returning a non-nil error also stops the walk and is
// returned unchanged.
type Parser interface {
	// Name identifies the dialect (e.g., "zefania", "osis").
	Name() string

	// Parse streams the document's verse tuples to fn in document order.
	Parse(r io.Reader, fn func(Verse) error) error
}

// ByName returns the built-in parser for a dialect name. The generic
// XPath-configured dialect is constructed separately from its configuration.
func ByName(name string) (Parser, error) {
	switch name {
	case "zefania":
		return Zefania{}, nil
	case "osis":
		return OSIS{}, nil
	default:
		return nil, fmt.Errorf("unsupported dialect %q", name)
	}
}
