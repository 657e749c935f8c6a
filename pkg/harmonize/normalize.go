package harmonize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var bracketed = regexp.MustCompile(`\[[^\]]*\]`)

// dropped removes control characters and Han ideographs after NFKC folding.
var dropped = runes.Predicate(func(r rune) bool {
	if unicode.Is(unicode.Han, r) {
		return true
	}
	return !unicode.IsPrint(r) && !unicode.IsSpace(r)
})

// Normalized is the output of the normalizer for one raw name.
type Normalized struct {
	Original     string
	Cleaned      string
	KeepOriginal bool
}

// Normalizer turns raw names into comparable keys. It is pure and safe for
// concurrent use; Clean(Clean(s)) == Clean(s) for every s.
type Normalizer struct {
	punct         map[rune]bool
	noise         map[string]bool
	synonyms      map[string]string
	keepLongNames bool
}

// NewNormalizer compiles rules. Synonym keys and values are cleaned with the
// same pipeline, and chains are resolved to their final spelling; cyclic
// entries are dropped.
func NewNormalizer(rules Rules) *Normalizer {
	n := &Normalizer{
		punct:         make(map[rune]bool),
		noise:         make(map[string]bool),
		synonyms:      make(map[string]string),
		keepLongNames: rules.KeepLongNames,
	}
	for _, r := range rules.Punctuation {
		n.punct[r] = true
	}
	for _, s := range rules.NoiseSuffixes {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			n.noise[s] = true
		}
	}

	raw := make(map[string]string, len(rules.Synonyms))
	for k, v := range rules.Synonyms {
		ck, cv := n.base(k), n.base(v)
		if ck == "" || cv == "" || ck == cv {
			continue
		}
		raw[ck] = cv
	}
	for k := range raw {
		if v, ok := resolveSynonym(raw, k); ok {
			n.synonyms[k] = v
		}
	}
	return n
}

func resolveSynonym(m map[string]string, key string) (string, bool) {
	seen := map[string]bool{key: true}
	cur := m[key]
	for {
		next, ok := m[cur]
		if !ok {
			return cur, true
		}
		if seen[cur] {
			return "", false
		}
		seen[cur] = true
		cur = next
	}
}

// Clean returns the normalized key for raw.
func (n *Normalizer) Clean(raw string) string {
	cleaned := n.base(raw)
	if syn, ok := n.synonyms[cleaned]; ok {
		return syn
	}
	return cleaned
}

// Normalize cleans raw and flags names longer than threshold runes when the
// rules keep long names. A threshold of zero disables the flag.
func (n *Normalizer) Normalize(raw string, threshold int) Normalized {
	cleaned := n.Clean(raw)
	return Normalized{
		Original:     raw,
		Cleaned:      cleaned,
		KeepOriginal: n.keepLongNames && threshold > 0 && utf8.RuneCountInString(cleaned) > threshold,
	}
}

// base runs every step except synonym substitution.
func (n *Normalizer) base(raw string) string {
	s, _, err := transform.String(transform.Chain(norm.NFKC, runes.Remove(dropped)), raw)
	if err != nil {
		s = raw
	}
	s = unidecode.Unidecode(s)
	s = bracketed.ReplaceAllString(s, " ")
	s = strings.ToLower(s)
	s = strings.Map(func(r rune) rune {
		if n.punct[r] {
			return ' '
		}
		return r
	}, s)

	tokens := strings.Fields(s)
	for len(tokens) > 1 && n.noise[tokens[len(tokens)-1]] {
		tokens = tokens[:len(tokens)-1]
	}
	return strings.Join(tokens, " ")
}
