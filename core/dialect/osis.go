package dialect

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/FocuswithJustin/CedarBible/core/errors"
)

// OSIS parses container-style OSIS XML: <osis>/<osisText>/<div type="book"
// osisID="Gen">/<chapter n="1">/<verse n="1">text</verse>. The book token is
// the div's osisID. Chapter and verse numbers come from the n attribute,
// falling back to the trailing segments of the element's osisID
// ("Gen.3" / "Gen.3.16"). Milestone verses (sID/eID pairs) are out of scope
// for this adapter.
type OSIS struct{}

// Name implements Parser.
func (OSIS) Name() string { return "osis" }

// Parse implements Parser.
func (OSIS) Parse(r io.Reader, fn func(Verse) error) error {
	decoder := xml.NewDecoder(r)
	decoder.Entity = map[string]string{}

	var bookToken string
	chapter := 0
	inChapter := false
	divDepth := 0
	bookDivDepth := -1

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.NewMalformedDocument("osis", "", err.Error(), err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			switch strings.ToLower(t.Name.Local) {
			case "div":
				if strings.EqualFold(attrValue(t, "type"), "book") {
					bookToken = attrValue(t, "osisID")
					if bookToken == "" {
						return errors.NewMalformedDocument("osis", "", `book div without osisID`, nil)
					}
					bookDivDepth = divDepth
				}
				divDepth++

			case "chapter":
				if bookToken == "" {
					return errors.NewMalformedDocument("osis", "", "chapter outside book div", nil)
				}
				raw := osisNumber(t, 1)
				n, err := positiveInt(raw)
				if err != nil {
					return errors.NewMalformedReference("chapter", raw, fmt.Sprintf("book %s", bookToken))
				}
				chapter = n
				inChapter = true

			case "verse":
				if !inChapter {
					return errors.NewMalformedDocument("osis", "", "verse outside chapter", nil)
				}
				raw := osisNumber(t, 2)
				n, err := positiveInt(raw)
				if err != nil {
					return errors.NewMalformedReference("verse", raw, fmt.Sprintf("book %s, chapter %d", bookToken, chapter))
				}
				text, err := collectText(decoder, "verse")
				if err != nil {
					return errors.NewMalformedDocument("osis", "", err.Error(), err)
				}
				if err := fn(Verse{BookToken: bookToken, Chapter: chapter, Number: n, Text: text}); err != nil {
					return err
				}
			}

		case xml.EndElement:
			switch strings.ToLower(t.Name.Local) {
			case "chapter":
				inChapter = false
			case "div":
				divDepth--
				if divDepth == bookDivDepth {
					bookToken = ""
					inChapter = false
					bookDivDepth = -1
				}
			}
		}
	}

	return nil
}

// osisNumber extracts a chapter or verse number: the n attribute when
// present, otherwise the osisID segment at the given dot-index
// ("Gen.3.16": index 1 is the chapter, 2 the verse).
func osisNumber(el xml.StartElement, segment int) string {
	if n := attrValue(el, "n"); n != "" {
		return n
	}
	id := attrValue(el, "osisID")
	parts := strings.Split(id, ".")
	if segment < len(parts) {
		return parts[segment]
	}
	return id
}
