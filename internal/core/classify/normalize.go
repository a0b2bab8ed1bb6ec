package classify

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// pool of fresh transformer chains; a chain is not safe for concurrent use
var chainPool = sync.Pool{
	New: func() any {
		// decompose first so accents become removable marks
		return transform.Chain(
			norm.NFKD,
			cases.Fold(),
			runes.Remove(runes.In(unicode.Mn)), // combining marks
			runes.Remove(runes.In(unicode.Cf)), // ZWJ ZWNJ FEFF
			width.Fold,
			norm.NFC,
		)
	},
}

// Normalize folds a free-text label to the form keywords are matched against.
// Separators _ - . / and whitespace runs become one space; edges are trimmed
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToValidUTF8(s, "")

	tr := chainPool.Get().(transform.Transformer)
	ns, _, err := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)
	if err != nil {
		ns = strings.ToLower(s)
	}

	var b strings.Builder
	b.Grow(len(ns))
	inSep := false
	for _, r := range ns {
		if unicode.IsSpace(r) || r == '_' || r == '-' || r == '.' || r == '/' {
			inSep = true
			continue
		}
		if inSep && b.Len() > 0 {
			b.WriteByte(' ')
		}
		inSep = false
		b.WriteRune(r)
	}
	return b.String()
}
