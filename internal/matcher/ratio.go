package matcher

import "strings"

// PartialRatio slides the shorter of a and b over every window of the same
// length in the longer one and returns the best similarity, 0..100. An exact
// substring scores 100. Lengths are counted in runes.
func PartialRatio(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
		a, b = b, a
	}
	if strings.Contains(b, a) {
		return 100
	}

	best := 0
	for start := 0; start+len(short) <= len(long); start++ {
		window := long[start : start+len(short)]
		if r := ratio(short, window); r > best {
			best = r
			if best == 100 {
				break
			}
		}
	}
	return best
}

// ratio is the InDel similarity of a and b: 2*LCS over the combined length,
// rounded to an integer percentage.
func ratio(a, b []rune) int {
	total := len(a) + len(b)
	if total == 0 {
		return 100
	}
	return (200*lcs(a, b) + total/2) / total
}

// lcs returns the length of the longest common subsequence of a and b
func lcs(a, b []rune) int {
	if len(a) > len(b) {
		a, b = b, a
	}

	// One row of the table, updated in place
	row := make([]int, len(a)+1)
	for j := 1; j <= len(b); j++ {
		diagonal := 0
		for i := 1; i <= len(a); i++ {
			above := row[i]
			if a[i-1] == b[j-1] {
				row[i] = diagonal + 1
			} else {
				row[i] = max(row[i], row[i-1])
			}
			diagonal = above
		}
	}
	return row[len(a)]
}
