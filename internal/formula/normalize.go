package formula

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrNormalize is returned when a formula cannot be reduced to a pure
// arithmetic expression.
var ErrNormalize = errors.New("formula: cannot normalize to arithmetic")

var (
	currencyRe  = regexp.MustCompile(`[£$€¥,]`)
	wordPlusRe  = regexp.MustCompile(`\bplus\b`)
	wordMinusRe = regexp.MustCompile(`\bminus\b`)

	plusPctRe  = regexp.MustCompile(`\+\s*(\d+(?:\.\d+)?)\s*%`)
	minusPctRe = regexp.MustCompile(`-\s*(\d+(?:\.\d+)?)\s*%`)
	barePctRe  = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)

	alphaGroupRe = regexp.MustCompile(`\([^()]*[a-z][^()]*\)`)
	alphaRunRe   = regexp.MustCompile(`[a-z]+`)

	doublePlusRe  = regexp.MustCompile(`\+\s*\+`)
	doubleMinusRe = regexp.MustCompile(`-\s*-`)
	plusMinusRe   = regexp.MustCompile(`\+\s*-`)
	minusPlusRe   = regexp.MustCompile(`-\s*\+`)

	leadingOpRe  = regexp.MustCompile(`^[\s+*/]+`)
	trailingOpRe = regexp.MustCompile(`[\s+\-*/]+$`)

	arithmeticRe = regexp.MustCompile(`^[0-9. +\-*/()\s]+$`)
)

// Normalize reduces a free-text pricing formula to a restricted arithmetic
// expression containing only digits, '.', whitespace, and + - * / ( ).
// Index codes present in ctx are substituted with their numeric values;
// anything that survives the rewrite passes without becoming numeric is
// dropped. Unknown index-like tokens therefore vanish silently rather than
// raising an error — deliberate tolerant behavior for hand-entered deal
// sheets.
//
// The passes run in a fixed order; later passes assume earlier cleanup.
func Normalize(raw string, ctx map[string]decimal.Decimal) (string, error) {
	s := strings.ToLower(raw)
	s = stripSymbols(s)
	s = rewriteWordOperators(s)
	s = rewriteAliases(s)
	s = rewritePercentages(s)
	s = collapsePlusMinus(s)
	s = substituteIndexValues(s, ctx)
	s = dropAlphaGroups(s)
	s = stripAlphaRuns(s)
	s = tidyOperators(s)

	if s == "" || !arithmeticRe.MatchString(s) {
		return "", fmt.Errorf("%w: %q", ErrNormalize, raw)
	}
	return s, nil
}

// stripSymbols removes currency symbols and thousands-separator commas, and
// normalizes en-dash to hyphen.
func stripSymbols(s string) string {
	s = currencyRe.ReplaceAllString(s, "")
	return strings.ReplaceAll(s, "–", "-")
}

// rewriteWordOperators replaces whole-word "plus"/"minus" with + and -.
func rewriteWordOperators(s string) string {
	s = wordPlusRe.ReplaceAllString(s, "+")
	return wordMinusRe.ReplaceAllString(s, "-")
}

// rewriteAliases replaces multi-word index names with their canonical short
// codes, longest alias first, whole-word matched.
func rewriteAliases(s string) string {
	return aliasRe.ReplaceAllStringFunc(s, func(m string) string {
		return aliasTable[strings.ToLower(m)]
	})
}

// rewritePercentages turns trailing-percentage arithmetic into explicit
// multiplicative form. Runs before index substitution because percentages
// change expression structure:
//
//	+ N%  →  * (1 + N/100)
//	- N%  →  * (1 - N/100)
//	N%    →  (N/100) *        (leading multiplicative factor)
func rewritePercentages(s string) string {
	s = plusPctRe.ReplaceAllString(s, "* (1 + $1/100)")
	s = minusPctRe.ReplaceAllString(s, "* (1 - $1/100)")
	return barePctRe.ReplaceAllString(s, "($1/100) *")
}

// collapsePlusMinus resolves a "+/-" escalator optimistically as additive.
func collapsePlusMinus(s string) string {
	return strings.ReplaceAll(s, "+/-", "+")
}

// substituteIndexValues replaces every index code present in ctx with its
// numeric value, longest code first, whole-word matched case-insensitively.
func substituteIndexValues(s string, ctx map[string]decimal.Decimal) string {
	if len(ctx) == 0 {
		return s
	}
	codes := make([]string, 0, len(ctx))
	values := make(map[string]string, len(ctx))
	for code, price := range ctx {
		codes = append(codes, code)
		values[strings.ToLower(code)] = price.String()
	}
	re := compileWordAlternation(codes)
	return re.ReplaceAllStringFunc(s, func(m string) string {
		return values[strings.ToLower(m)]
	})
}

// dropAlphaGroups removes parenthesized groups that still contain letters —
// assumed to be unresolved contract-period placeholders like "(n)", not
// numeric sub-expressions. Innermost groups go first so nesting unwinds.
func dropAlphaGroups(s string) string {
	for {
		next := alphaGroupRe.ReplaceAllString(s, "")
		if next == s {
			return s
		}
		s = next
	}
}

// stripAlphaRuns deletes residual alphabetic runs (jargon, units).
func stripAlphaRuns(s string) string {
	return alphaRunRe.ReplaceAllString(s, "")
}

// tidyOperators collapses doubled operator sequences left behind by earlier
// passes (++ → +, -- → +, +- → -, -+ → -) and trims dangling operators.
// A leading '-' survives as unary minus.
func tidyOperators(s string) string {
	for {
		next := doublePlusRe.ReplaceAllString(s, "+")
		next = doubleMinusRe.ReplaceAllString(next, "+")
		next = plusMinusRe.ReplaceAllString(next, "-")
		next = minusPlusRe.ReplaceAllString(next, "-")
		if next == s {
			break
		}
		s = next
	}
	s = leadingOpRe.ReplaceAllString(s, "")
	s = trailingOpRe.ReplaceAllString(s, "")
	return s
}
