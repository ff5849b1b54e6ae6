package dialect

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/FocuswithJustin/CedarBible/core/errors"
)

// Zefania parses Zefania XML: <XMLBIBLE> containing <BIBLEBOOK bnumber=".."
// bname=".."> / <CHAPTER cnumber=".."> / <VERS vnumber="..">text</VERS>.
// Element and attribute names are matched case-insensitively; a document
// whose root is a bare <BIBLEBOOK> (a single-book source) is accepted.
type Zefania struct{}

// Name implements Parser.
func (Zefania) Name() string { return "zefania" }

// Parse implements Parser.
func (Zefania) Parse(r io.Reader, fn func(Verse) error) error {
	decoder := xml.NewDecoder(r)
	// XXE protection: never expand entities from the document.
	decoder.Entity = map[string]string{}

	var bookToken string
	chapter := 0
	inChapter := false

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.NewMalformedDocument("zefania", "", err.Error(), err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			switch strings.ToUpper(t.Name.Local) {
			case "BIBLEBOOK":
				bookToken = ""
				var bnumber string
				for _, attr := range t.Attr {
					switch strings.ToLower(attr.Name.Local) {
					case "bname":
						bookToken = attr.Value
					case "bnumber":
						bnumber = attr.Value
					}
				}
				// Sources without a bname fall back to the numeric id.
				if bookToken == "" {
					bookToken = bnumber
				}
				if bookToken == "" {
					return errors.NewMalformedDocument("zefania", "", "BIBLEBOOK without bname or bnumber", nil)
				}

			case "CHAPTER":
				if bookToken == "" {
					return errors.NewMalformedDocument("zefania", "", "CHAPTER outside BIBLEBOOK", nil)
				}
				cnumber := attrValue(t, "cnumber")
				n, err := positiveInt(cnumber)
				if err != nil {
					return errors.NewMalformedReference("chapter", cnumber, fmt.Sprintf("book %s", bookToken))
				}
				chapter = n
				inChapter = true

			case "VERS":
				if !inChapter {
					return errors.NewMalformedDocument("zefania", "", "VERS outside CHAPTER", nil)
				}
				vnumber := attrValue(t, "vnumber")
				n, err := positiveInt(vnumber)
				if err != nil {
					return errors.NewMalformedReference("verse", vnumber, fmt.Sprintf("book %s, chapter %d", bookToken, chapter))
				}
				text, err := collectText(decoder, "VERS")
				if err != nil {
					return errors.NewMalformedDocument("zefania", "", err.Error(), err)
				}
				if err := fn(Verse{BookToken: bookToken, Chapter: chapter, Number: n, Text: text}); err != nil {
					return err
				}
			}

		case xml.EndElement:
			switch strings.ToUpper(t.Name.Local) {
			case "CHAPTER":
				inChapter = false
			case "BIBLEBOOK":
				bookToken = ""
				inChapter = false
			}
		}
	}

	return nil
}

// attrValue returns the named attribute's raw value, case-insensitively.
func attrValue(el xml.StartElement, name string) string {
	for _, attr := range el.Attr {
		if strings.EqualFold(attr.Name.Local, name) {
			return attr.Value
		}
	}
	return ""
}

// positiveInt parses a chapter or verse number. Non-numeric and non-positive
// values are rejected.
func positiveInt(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("non-positive number %d", n)
	}
	return n, nil
}

// collectText gathers character data until the closing tag named end,
// descending through nested markup (strong's numbers, style tags) and
// keeping only its text. Whitespace-only content collapses to "".
func collectText(decoder *xml.Decoder, end string) (string, error) {
	var sb strings.Builder
	depth := 0
	for {
		token, err := decoder.Token()
		if err != nil {
			return "", fmt.Errorf("unterminated %s element: %w", end, err)
		}
		switch t := token.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth == 0 && strings.EqualFold(t.Name.Local, end) {
				return strings.TrimSpace(sb.String()), nil
			}
			depth--
		case xml.CharData:
			sb.Write(t)
		}
	}
}
