package dialect

import (
	"fmt"
	"io"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/FocuswithJustin/CedarBible/core/errors"
)

// XPathConfig describes a one-off source structure as XPath expressions.
// Book, Chapter and Verse select nested element sets; the *Value expressions
// are evaluated relative to their element and must yield the token or number
// (typically an attribute, e.g. "@bname" or "@n").
type XPathConfig struct {
	Book         string `yaml:"book"`
	BookValue    string `yaml:"book_value"`
	Chapter      string `yaml:"chapter"`
	ChapterValue string `yaml:"chapter_value"`
	Verse        string `yaml:"verse"`
	VerseValue   string `yaml:"verse_value"`
}

// XPathDialect is the generic adapter for sources not covered by a built-in
// dialect. Expressions are compiled once at construction; parsing builds a
// DOM, so it trades the streaming of the fixed dialects for configurability.
type XPathDialect struct {
	name         string
	book         *xpath.Expr
	bookValue    *xpath.Expr
	chapter      *xpath.Expr
	chapterValue *xpath.Expr
	verse        *xpath.Expr
	verseValue   *xpath.Expr
}

// NewXPathDialect compiles the configured expressions. The name labels the
// dialect in logs and errors.
func NewXPathDialect(name string, cfg XPathConfig) (*XPathDialect, error) {
	d := &XPathDialect{name: name}
	for _, f := range []struct {
		label string
		expr  string
		dst   **xpath.Expr
	}{
		{"book", cfg.Book, &d.book},
		{"book_value", cfg.BookValue, &d.bookValue},
		{"chapter", cfg.Chapter, &d.chapter},
		{"chapter_value", cfg.ChapterValue, &d.chapterValue},
		{"verse", cfg.Verse, &d.verse},
		{"verse_value", cfg.VerseValue, &d.verseValue},
	} {
		if f.expr == "" {
			return nil, fmt.Errorf("xpath dialect %s: %s expression is required", name, f.label)
		}
		expr, err := xpath.Compile(f.expr)
		if err != nil {
			return nil, fmt.Errorf("xpath dialect %s: compiling %s: %w", name, f.label, err)
		}
		*f.dst = expr
	}
	return d, nil
}

// Name implements Parser.
func (d *XPathDialect) Name() string { return d.name }

// Parse implements Parser.
func (d *XPathDialect) Parse(r io.Reader, fn func(Verse) error) error {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return errors.NewMalformedDocument(d.name, "", err.Error(), err)
	}

	for _, bookNode := range xmlquery.QuerySelectorAll(doc, d.book) {
		token := strings.TrimSpace(evalString(d.bookValue, bookNode))
		for _, chNode := range xmlquery.QuerySelectorAll(bookNode, d.chapter) {
			rawCh := evalString(d.chapterValue, chNode)
			chapter, err := positiveInt(rawCh)
			if err != nil {
				return errors.NewMalformedReference("chapter", rawCh, fmt.Sprintf("book %s", token))
			}
			for _, vNode := range xmlquery.QuerySelectorAll(chNode, d.verse) {
				rawV := evalString(d.verseValue, vNode)
				number, err := positiveInt(rawV)
				if err != nil {
					return errors.NewMalformedReference("verse", rawV, fmt.Sprintf("book %s, chapter %d", token, chapter))
				}
				v := Verse{
					BookToken: token,
					Chapter:   chapter,
					Number:    number,
					Text:      strings.TrimSpace(vNode.InnerText()),
				}
				if err := fn(v); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// evalString evaluates an expression relative to node and returns its string
// value, whether it selects an attribute, an element, or a computed string.
func evalString(expr *xpath.Expr, node *xmlquery.Node) string {
	val := expr.Evaluate(xmlquery.CreateXPathNavigator(node))
	switch v := val.(type) {
	case string:
		return v
	case *xpath.NodeIterator:
		if v.MoveNext() {
			return v.Current().Value()
		}
		return ""
	default:
		return fmt.Sprint(v)
	}
}
