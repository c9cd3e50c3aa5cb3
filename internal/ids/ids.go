// Package ids derives human-readable sequence identifiers such as PUR-1001,
// DM-1001 and INV-2026-0001 from the identifiers already in use.
//
// The functions are pure: they reserve nothing. Callers that need
// uniqueness across calls must serialize generation with persistence.
package ids

import (
	"fmt"
	"strconv"
	"strings"
)

// Base is the number every prefixed sequence counts up from. The first
// generated identifier of a kind is PREFIX-1001.
const Base = 1000

// Next returns prefix-(n+1) where n is the largest of Base, floor, and every
// numeric suffix found on existing identifiers starting with "prefix-".
// The suffix is the segment after the first dash. Identifiers whose suffix
// is not a number are ignored.
func Next(prefix string, existing []string, floor int) string {
	max := Base
	if floor > max {
		max = floor
	}
	for _, id := range existing {
		if n, ok := Suffix(prefix, id); ok && n > max {
			max = n
		}
	}
	return fmt.Sprintf("%s-%d", prefix, max+1)
}

// Suffix parses the sequence number of id when it belongs to prefix.
func Suffix(prefix, id string) (int, bool) {
	if !strings.HasPrefix(id, prefix+"-") {
		return 0, false
	}
	parts := strings.Split(id, "-")
	if len(parts) < 2 {
		return 0, false
	}
	n, err := strconv.Atoi(parts[1])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// NextYearScoped returns prefix-YYYY-NNNN, counting from 0001 within the
// year. floor is the highest number already issued for that year.
func NextYearScoped(prefix string, year int, existing []string, floor int) string {
	scope := YearScope(prefix, year)
	max := 0
	if floor > max {
		max = floor
	}
	for _, id := range existing {
		if n, ok := YearScopedSuffix(scope, id); ok && n > max {
			max = n
		}
	}
	return fmt.Sprintf("%s-%04d", scope, max+1)
}

// YearScope is the sequence key for a year scoped prefix, e.g. INV-2026.
func YearScope(prefix string, year int) string {
	return fmt.Sprintf("%s-%d", prefix, year)
}

// YearScopedSuffix parses the trailing counter of an identifier in scope.
func YearScopedSuffix(scope, id string) (int, bool) {
	if !strings.HasPrefix(id, scope+"-") {
		return 0, false
	}
	rest := strings.TrimPrefix(id, scope+"-")
	if rest == "" || strings.Contains(rest, "-") {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
