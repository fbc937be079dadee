// Package formula implements the pricing formula engine: tolerant textual
// normalization of trader-entered formulas into pure arithmetic, a sandboxed
// arithmetic evaluator, and the index alias / unit vocabulary shared with
// the recalculation pipeline.
package formula

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/lngdesk/cargo-engine/internal/model"
)

// aliasTable maps multi-word index names to their canonical short codes.
// Replacement is longest-alias-first on word boundaries, so the identity
// entry for "dated brent" shields its inner "brent" from re-expansion.
var aliasTable = map[string]string{
	"henry hub":               "hh",
	"dutch ttf":               "ttf",
	"title transfer facility": "ttf",
	"japan korea marker":      "jkm",
	"national balancing point": "nbp",
	"japan crude cocktail":    "jcc",
	"dated brent":             "dated brent",
	"brent":                   "dated brent",
	"aeco hub":                "aeco",
	"station 2":               "stn 2",
}

var aliasRe = compileWordAlternation(keysOf(aliasTable))

// oilKeywords mark a formula as pricing an oil-class cargo.
var oilKeywords = []string{"brent", "bripe", "jcc"}

// DetectUnit infers the volume unit from formula content: oil-class index
// references imply barrels, everything else defaults to MMBtu. The inference
// has no role in evaluation itself; it feeds volume aggregation downstream.
func DetectUnit(formula string) model.Unit {
	lower := strings.ToLower(formula)
	for _, kw := range oilKeywords {
		if strings.Contains(lower, kw) {
			return model.UnitBarrel
		}
	}
	return model.UnitMMBtu
}

var isoDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
var monthKeyRe = regexp.MustCompile(`^\d{4}-\d{2}$`)

// MonthKey normalizes a date string to its "YYYY-MM" month key. Strict ISO
// dates are sliced directly — never round-tripped through a time.Time, which
// could shift a day across time zones. Non-ISO inputs fall back to generic
// parsing with UTC fields. Returns "" when the input cannot be interpreted.
func MonthKey(date string) string {
	switch {
	case isoDateRe.MatchString(date):
		return date[:7]
	case monthKeyRe.MatchString(date):
		return date
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "01/02/2006"} {
		if t, err := time.Parse(layout, date); err == nil {
			return t.UTC().Format("2006-01")
		}
	}
	return ""
}

// MonthLabel renders the human-readable month of a date, e.g. "Nov 2025".
// Returns "" for dates with no derivable month.
func MonthLabel(date string) string {
	key := MonthKey(date)
	if key == "" {
		return ""
	}
	t, err := time.Parse("2006-01", key)
	if err != nil {
		return ""
	}
	return t.Format("Jan 2006")
}

// compileWordAlternation builds a case-insensitive, word-boundary-anchored
// alternation of the given phrases, longest first. Longest-first ordering
// plus leftmost matching guarantees a short code never corrupts a longer
// phrase that contains it.
func compileWordAlternation(phrases []string) *regexp.Regexp {
	sorted := make([]string, len(phrases))
	copy(sorted, phrases)
	sort.Slice(sorted, func(i, j int) bool {
		if len(sorted[i]) != len(sorted[j]) {
			return len(sorted[i]) > len(sorted[j])
		}
		return sorted[i] < sorted[j]
	})
	quoted := make([]string, len(sorted))
	for i, p := range sorted {
		quoted[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

func keysOf(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
