package phonetic

// Distance computes the Levenshtein edit distance between a and b: the
// minimum number of single-character insertions, deletions, or
// substitutions needed to turn a into b.
//
// Examples:
//
//	Distance("KLKT", "KLKT") -> 0
//	Distance("KLKT", "KLK")  -> 1
func Distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)

	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[lb]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// TolerantMatch reports whether candidate code matches any code in
// queryCodes, either exactly or within maxEdits Levenshtein distance. An
// empty candidate code never matches, per the "empty is a no-alternate
// sentinel" convention.
func TolerantMatch(candidate string, queryCodes map[string]struct{}, maxEdits int) bool {
	if candidate == "" {
		return false
	}
	if _, ok := queryCodes[candidate]; ok {
		return true
	}
	for q := range queryCodes {
		if q == "" {
			continue
		}
		if Distance(candidate, q) <= maxEdits {
			return true
		}
	}
	return false
}

// ExactMatch reports whether candidate code is present (case-sensitive,
// codes are always uppercase) in queryCodes. Empty candidate never matches.
func ExactMatch(candidate string, queryCodes map[string]struct{}) bool {
	if candidate == "" {
		return false
	}
	_, ok := queryCodes[candidate]
	return ok
}
