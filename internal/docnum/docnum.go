// Package docnum formats the human-readable document codes shared by the
// order, purchase and return flows. Sequence allocation itself is the
// store's job; this package only owns the prefix namespace and the
// zero-padded rendering so both store implementations agree on it.
package docnum

import (
	"fmt"
	"strconv"
)

const (
	OrderPrefix    = "ORD-"
	PurchasePrefix = "PUR-"
	ReturnPrefix   = "ORDR-"
	ProductPrefix  = "PRD-"
)

// SeqDigits is the minimum width of the numeric part. Sequences above
// 999999 render wider rather than wrapping.
const SeqDigits = 6

func Format(prefix string, seq int64) string {
	return fmt.Sprintf("%s%0*d", prefix, SeqDigits, seq)
}

// Parse splits a code back into its prefix and sequence number. It returns
// false for codes that do not end in a positive integer.
func Parse(code string) (prefix string, seq int64, ok bool) {
	idx := len(code)
	for idx > 0 && code[idx-1] >= '0' && code[idx-1] <= '9' {
		idx--
	}
	if idx == len(code) {
		return "", 0, false
	}
	seq, err := strconv.ParseInt(code[idx:], 10, 64)
	if err != nil || seq < 1 {
		return "", 0, false
	}
	return code[:idx], seq, true
}

// IsValidPrefix reports whether the prefix is one of the known document
// families. Store implementations reject counters for anything else.
func IsValidPrefix(prefix string) bool {
	switch prefix {
	case OrderPrefix, PurchasePrefix, ReturnPrefix, ProductPrefix:
		return true
	}
	return false
}
