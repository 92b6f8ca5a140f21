package slug

import (
	"crypto/rand"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// MaxLength is the maximum length of a slug in bytes.
	MaxLength = 50

	// fallbackSuffixLen is the number of random base36 characters appended
	// to the "post" fallback when a title yields an empty slug.
	fallbackSuffixLen = 6

	// minCutIndex is the smallest hyphen position at which truncation
	// prefers a word boundary over a hard cut.
	minCutIndex = 30
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

var (
	slugPattern    = regexp.MustCompile(`^[a-z0-9-]{1,50}$`)
	separatorRuns  = regexp.MustCompile(`[\s_]+`)
	invalidChars   = regexp.MustCompile(`[^a-z0-9-]`)
	repeatedHyphen = regexp.MustCompile(`-{2,}`)

	// Decompose, drop combining marks, recompose. Turns "café" into "cafe"
	// before the invalid-character strip would otherwise eat the letter.
	deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// Make derives a URL-safe slug candidate from a free-text title.
//
// The result always matches ^[a-z0-9-]{1,50}$ but carries no uniqueness
// guarantee; callers must pass it through an allocator before use.
// Titles that reduce to nothing (empty, punctuation-only, non-Latin)
// produce a "post-xxxxxx" fallback with a random base36 tail.
func Make(title string) string {
	s := strings.TrimSpace(title)

	if out, _, err := transform.String(deaccent, s); err == nil {
		s = out
	}

	s = strings.ToLower(s)
	s = separatorRuns.ReplaceAllString(s, "-")
	s = invalidChars.ReplaceAllString(s, "")
	s = repeatedHyphen.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	if s == "" {
		return "post-" + randomBase36(fallbackSuffixLen)
	}

	return truncate(s, MaxLength)
}

// Append joins a numeric or random suffix to a base slug, truncating the
// base so the combined result stays within MaxLength. The suffix is
// expected to be slug-safe already.
func Append(base, suffix string) string {
	limit := MaxLength - len(suffix) - 1
	if len(base) > limit {
		base = strings.TrimRight(base[:limit], "-")
	}
	return base + "-" + suffix
}

// IsValid reports whether s is a well-formed slug.
func IsValid(s string) bool {
	return slugPattern.MatchString(s)
}

// RandomSuffix returns n random base36 characters, suitable as a
// collision-resistant slug tail.
func RandomSuffix(n int) string {
	return randomBase36(n)
}

// truncate cuts s to at most limit bytes. When a hyphen exists past
// minCutIndex the cut happens there instead, avoiding mid-word endings.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	s = s[:limit]
	if idx := strings.LastIndexByte(s, '-'); idx > minCutIndex {
		s = s[:idx]
	}
	return strings.TrimRight(s, "-")
}

func randomBase36(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// Degraded but functional: zero bytes still map into the alphabet.
		for i := range buf {
			buf[i] = 0
		}
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = base36[int(b)%len(base36)]
	}
	return string(out)
}
