// Package match implements the text comparison primitives used by command
// and intent resolution: a length-normalized edit-distance similarity score,
// whole-word phrase containment, and multi-pattern matching. All functions
// are pure and safe for concurrent use.
package match

import (
	"regexp"
	"strings"
	"unicode"
)

// Result is the outcome of a Similarity comparison.
type Result struct {
	Matched bool
	Score   int // 0..100
}

// Similarity compares candidate against query and reports a score in [0,100].
// Matched is true iff the score is at least threshold (inclusive).
func Similarity(candidate, query string, threshold int) Result {
	s := Score(candidate, query)
	return Result{Matched: s >= threshold, Score: s}
}

// Score computes similarity between candidate and query. Both strings are
// normalized first. The score is the best of the whole-string ratio and the
// best token-pair ratio, so a one-word query still scores high inside a
// longer utterance.
func Score(candidate, query string) int {
	c := Normalize(candidate)
	q := Normalize(query)
	if c == "" || q == "" {
		if c == q {
			return 100
		}
		return 0
	}
	if c == q {
		return 100
	}

	best := ratio(c, q)
	for _, ct := range strings.Fields(c) {
		for _, qt := range strings.Fields(q) {
			if r := ratio(ct, qt); r > best {
				best = r
			}
			if best == 100 {
				return 100
			}
		}
	}
	return best
}

// ContainsPhrase reports whether needle occurs in haystack as a whole word
// (or word sequence). Both sides are normalized before comparison.
func ContainsPhrase(haystack, needle string) bool {
	h := Normalize(haystack)
	n := Normalize(needle)
	if n == "" {
		return false
	}
	if h == n {
		return true
	}
	return strings.Contains(" "+h+" ", " "+n+" ")
}

// MatchesAny reports whether text matches at least one of patterns.
// Plain-word patterns use whole-word containment; patterns carrying regexp
// metacharacters are treated as regular expressions against the normalized
// text. Invalid regular expressions never match. CommandTable compiles its
// patterns once at registration instead of going through here.
func MatchesAny(patterns []string, text string) bool {
	for _, p := range patterns {
		if p == "" {
			continue
		}
		if HasMeta(p) {
			re, err := regexp.Compile(p)
			if err != nil {
				continue
			}
			if re.MatchString(Normalize(text)) || re.MatchString(text) {
				return true
			}
			continue
		}
		if ContainsPhrase(text, p) {
			return true
		}
	}
	return false
}

// HasMeta reports whether p contains regexp metacharacters, i.e. should be
// compiled rather than matched literally.
func HasMeta(p string) bool {
	return strings.ContainsAny(p, `\.+*?()|[]{}^$`)
}

// Normalize lowercases s, strips punctuation and collapses runs of
// whitespace to single spaces. Unicode-aware, so Cyrillic text survives.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := true // swallow leading whitespace
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			space = false
		case unicode.IsSpace(r) || unicode.IsPunct(r):
			if !space {
				b.WriteByte(' ')
				space = true
			}
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// ratio is the length-normalized Levenshtein similarity of two already
// normalized strings, in [0,100].
func ratio(a, b string) int {
	ar := []rune(a)
	br := []rune(b)
	longest := len(ar)
	if len(br) > longest {
		longest = len(br)
	}
	if longest == 0 {
		return 100
	}
	d := levenshtein(ar, br)
	return int(float64(longest-d) / float64(longest) * 100)
}

// levenshtein computes edit distance with a two-row table.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min3(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
