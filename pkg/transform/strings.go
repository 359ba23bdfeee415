package transform

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	texttransform "golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/wehubfusion/Daedalus/pkg/engine"
)

// CaseMode selects the casing applied by a StringCleaner.
type CaseMode string

const (
	CaseNone  CaseMode = ""
	CaseLower CaseMode = "lower"
	CaseUpper CaseMode = "upper"
	CaseTitle CaseMode = "title"
)

// StringCleaner builds a per-item cleansing transform from a fixed set of
// operations. The zero value passes strings through unchanged. Operations
// apply in a fixed order: trim, collapse whitespace, strip diacritics, case.
type StringCleaner struct {
	TrimSpace          bool
	CollapseWhitespace bool
	StripDiacritics    bool
	Case               CaseMode
}

// Validate rejects unknown case modes.
func (c StringCleaner) Validate() error {
	switch c.Case {
	case CaseNone, CaseLower, CaseUpper, CaseTitle:
		return nil
	default:
		return fmt.Errorf("transform: unknown case mode %q", c.Case)
	}
}

// Transform validates the configuration and returns an engine-compatible
// transform.
func (c StringCleaner) Transform() (engine.Transform[string, string], error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return func(_ context.Context, s string) (string, error) {
		return c.Clean(s), nil
	}, nil
}

// Clean applies the configured operations to s.
func (c StringCleaner) Clean(s string) string {
	if c.TrimSpace {
		s = strings.TrimSpace(s)
	}
	if c.CollapseWhitespace {
		s = collapseWhitespace(s)
	}
	if c.StripDiacritics {
		s = stripDiacritics(s)
	}
	switch c.Case {
	case CaseLower:
		s = strings.ToLower(s)
	case CaseUpper:
		s = strings.ToUpper(s)
	case CaseTitle:
		s = cases.Title(language.Und).String(s)
	}
	return s
}

// collapseWhitespace reduces every run of Unicode whitespace to a single
// space.
func collapseWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inRun := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			inRun = true
			continue
		}
		if inRun && b.Len() > 0 {
			b.WriteByte(' ')
		}
		inRun = false
		b.WriteRune(r)
	}
	return b.String()
}

// latinFold covers Latin letters that carry no combining mark and therefore
// survive NFD decomposition.
var latinFold = map[rune]string{
	'Æ': "AE", 'æ': "ae",
	'Œ': "OE", 'œ': "oe",
	'Ø': "O", 'ø': "o",
	'Þ': "Th", 'þ': "th",
	'Ð': "D", 'ð': "d",
	'Đ': "D", 'đ': "d",
	'Ł': "L", 'ł': "l",
	'ß': "ss",
}

// stripDiacritics strips accents and folds special Latin letters to their
// ASCII spelling. On a malformed input the original string is returned.
// The chain is built per call: chained transformers carry internal buffers
// and cannot be shared across the workers running this transform.
func stripDiacritics(s string) string {
	stripper := texttransform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := texttransform.String(stripper, s)
	if err != nil {
		return s
	}

	var b strings.Builder
	b.Grow(len(stripped))
	for _, r := range stripped {
		if folded, ok := latinFold[r]; ok {
			b.WriteString(folded)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
