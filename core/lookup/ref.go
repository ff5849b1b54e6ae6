package lookup

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Ref is a parsed human-readable reference. Book holds the raw book token
// exactly as written (including a numeric prefix, e.g. "1 John"); it still
// needs alias resolution against a registry.
type Ref struct {
	Book    string
	Chapter int
	Verse   int
}

// refGrammar accepts both dotted OSIS-style references ("Gen.1.1") and
// colon-style ones ("Genesis 1:1", "1 John 3:16").
//
//nolint:govet // participle grammar tags are not standard struct tags
type refGrammar struct {
	BookPrefix string       `parser:"@Int?"`
	BookName   string       `parser:"@Ident"`
	ChapterRef *chapterPart `parser:"( \".\"? @@ )?"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type chapterPart struct {
	Chapter  int        `parser:"@Int"`
	VerseRef *versePart `parser:"( ( \":\" | \".\" ) @@ )?"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type versePart struct {
	Verse int `parser:"@Int"`
}

var refLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Ident", Pattern: `[A-Za-z][A-Za-z]*`},
	{Name: "Punct", Pattern: `[.:]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var refParser = participle.MustBuild[refGrammar](
	participle.Lexer(refLexer),
	participle.Elide("Whitespace"),
)

// ParseRef parses a reference string. Supported forms:
//   - "Genesis" (book only)
//   - "Gen.1" / "Genesis 1" (book and chapter)
//   - "Gen.1.1" / "Genesis 1:1" (book, chapter, verse)
//   - "1 John 3:16" / "1John.3.16" (numeric book prefix)
func ParseRef(s string) (Ref, error) {
	g, err := refParser.ParseString("", strings.TrimSpace(s))
	if err != nil {
		return Ref{}, fmt.Errorf("parsing reference %q: %w", s, err)
	}

	ref := Ref{Book: g.BookName}
	if g.BookPrefix != "" {
		ref.Book = g.BookPrefix + " " + g.BookName
	}
	if g.ChapterRef != nil {
		ref.Chapter = g.ChapterRef.Chapter
		if g.ChapterRef.VerseRef != nil {
			ref.Verse = g.ChapterRef.VerseRef.Verse
		}
	}
	return ref, nil
}
