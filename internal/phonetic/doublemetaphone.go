// Package phonetic implements a Double Metaphone–equivalent phonetic
// encoder and the Levenshtein-based tolerant code comparison used to
// rerank catalogue search hits.
//
// Algorithm: Double Metaphone (Lawrence Philips, 2000). Each input token
// yields a primary code and, where English pronunciation is genuinely
// ambiguous (silent letters, alternate consonant sounds), a second
// alternate code. Codes use 16 consonant symbols (no vowels except a
// leading one) and are always uppercase.
//
// Examples:
//
//	"colgate" -> primary "KLKT",    alternate ""
//	"kolgate" -> primary "KLKT",    alternate ""
//	"schmidt" -> primary "XMT",     alternate "SMT"
package phonetic

import "strings"

// Encode returns the (primary, alternate) Double Metaphone codes for a
// single word. alternate is "" when English pronunciation is unambiguous
// for this word. Both codes are uppercase.
func Encode(word string) (primary, alternate string) {
	e := newEncoder(word)
	e.run()
	primary, alternate = e.primary.String(), e.secondary.String()
	if alternate == primary {
		alternate = ""
	}
	return primary, alternate
}

// Codes returns the non-empty codes (primary, then alternate if present)
// for a single word.
func Codes(word string) []string {
	p, a := Encode(word)
	var out []string
	if p != "" {
		out = append(out, p)
	}
	if a != "" && a != p {
		out = append(out, a)
	}
	return out
}

// QueryCodes splits text on whitespace and returns the set union (as a
// map for O(1) membership) of all non-empty primary and alternate codes
// across all tokens.
func QueryCodes(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(text) {
		for _, c := range Codes(tok) {
			set[c] = struct{}{}
		}
	}
	return set
}

const maxCodeLen = 4

type encoder struct {
	word      []rune // uppercased input
	length    int
	pos       int
	primary   strings.Builder
	secondary strings.Builder
}

func newEncoder(s string) *encoder {
	u := strings.ToUpper(strings.TrimSpace(s))
	return &encoder{word: []rune(u), length: len([]rune(u))}
}

func (e *encoder) at(pos int) rune {
	if pos < 0 || pos >= e.length {
		return 0
	}
	return e.word[pos]
}

func (e *encoder) isVowel(c rune) bool {
	switch c {
	case 'A', 'E', 'I', 'O', 'U', 'Y':
		return true
	}
	return false
}

// stringAt reports whether the substring starting at pos with the given
// length equals any of the candidates.
func (e *encoder) stringAt(pos, length int, candidates ...string) bool {
	if pos < 0 || pos+length > e.length || length <= 0 {
		return false
	}
	sub := string(e.word[pos : pos+length])
	for _, c := range candidates {
		if sub == c {
			return true
		}
	}
	return false
}

func (e *encoder) add(primary, secondary string) {
	e.primary.WriteString(primary)
	if secondary != "" {
		e.secondary.WriteString(secondary)
	} else {
		e.secondary.WriteString(primary)
	}
}

func (e *encoder) addBoth(s string) {
	e.primary.WriteString(s)
	e.secondary.WriteString(s)
}

func (e *encoder) isSlavoGermanic() bool {
	w := string(e.word)
	return strings.Contains(w, "W") || strings.Contains(w, "K") ||
		strings.Contains(w, "CZ") || strings.Contains(w, "WITZ")
}

func (e *encoder) truncate() {
	if e.primary.Len() > maxCodeLen {
		s := e.primary.String()[:maxCodeLen]
		e.primary.Reset()
		e.primary.WriteString(s)
	}
	if e.secondary.Len() > maxCodeLen {
		s := e.secondary.String()[:maxCodeLen]
		e.secondary.Reset()
		e.secondary.WriteString(s)
	}
}

func (e *encoder) run() {
	if e.length == 0 {
		return
	}

	// Skip certain initial letter combinations entirely silent in English.
	if e.stringAt(0, 2, "GN", "KN", "PN", "WR", "PS") {
		e.pos = 1
	}
	// Initial 'X' sounds like 'S'.
	if e.at(0) == 'X' {
		e.addBoth("S")
		e.pos = 1
	}

	for e.pos < e.length && e.primary.Len() < maxCodeLen {
		c := e.at(e.pos)

		if e.isVowel(c) {
			if e.pos == 0 {
				// Vowels only count as a sound at the very start of the word.
				e.addBoth("A")
			}
			e.pos++
			continue
		}

		switch c {
		case 'B':
			e.addBoth("P")
			if e.at(e.pos+1) == 'B' {
				e.pos += 2
			} else {
				e.pos++
			}
		case 'Ç':
			e.addBoth("S")
			e.pos++
		case 'C':
			e.pos = e.handleC()
		case 'D':
			e.pos = e.handleD()
		case 'F':
			e.addBoth("F")
			if e.at(e.pos+1) == 'F' {
				e.pos += 2
			} else {
				e.pos++
			}
		case 'G':
			e.pos = e.handleG()
		case 'H':
			e.pos = e.handleH()
		case 'J':
			e.pos = e.handleJ()
		case 'K':
			e.addBoth("K")
			if e.at(e.pos+1) == 'K' {
				e.pos += 2
			} else {
				e.pos++
			}
		case 'L':
			e.pos = e.handleL()
		case 'M':
			e.addBoth("M")
			if e.stringAt(e.pos+1, 1, "M") || (e.at(e.pos+1) == 'B' && e.at(e.pos+2) == 0) {
				e.pos += 2
			} else {
				e.pos++
			}
		case 'N':
			e.addBoth("N")
			if e.at(e.pos+1) == 'N' {
				e.pos += 2
			} else {
				e.pos++
			}
		case 'Ñ':
			e.addBoth("N")
			e.pos++
		case 'P':
			e.pos = e.handleP()
		case 'Q':
			e.addBoth("K")
			if e.at(e.pos+1) == 'Q' {
				e.pos += 2
			} else {
				e.pos++
			}
		case 'R':
			e.pos = e.handleR()
		case 'S':
			e.pos = e.handleS()
		case 'T':
			e.pos = e.handleT()
		case 'V':
			e.addBoth("F")
			if e.at(e.pos+1) == 'V' {
				e.pos += 2
			} else {
				e.pos++
			}
		case 'W':
			e.pos = e.handleW()
		case 'X':
			e.pos = e.handleX()
		case 'Z':
			e.pos = e.handleZ()
		default:
			e.pos++
		}
	}

	e.truncate()
}

func (e *encoder) handleC() int {
	p := e.pos
	// "ACH" -> K, unless preceded pattern suggests a softer Germanic/Greek form.
	if p > 1 && !e.isVowel(e.at(p-2)) && e.stringAt(p-1, 3, "ACH") &&
		e.at(p+2) != 'I' && (e.at(p+2) != 'E' || e.stringAt(p-2, 6, "BACHER", "MACHER")) {
		e.addBoth("K")
		return p + 2
	}
	if e.stringAt(p, 2, "CH") {
		if p > 0 && e.stringAt(p, 4, "CHAE") {
			e.add("K", "X")
			return p + 2
		}
		if p == 0 && (e.stringAt(p+1, 5, "HARAC", "HARIS") || e.stringAt(p+1, 3, "HOR", "HYM", "HIA", "HEM")) && !e.stringAt(0, 5, "CHORE") {
			e.addBoth("K")
			return p + 2
		}
		if e.isGermanicCH(p) {
			e.addBoth("K")
			return p + 2
		}
		if p > 0 {
			if e.stringAt(0, 2, "MC") {
				e.addBoth("K")
			} else {
				e.add("X", "K")
			}
		} else {
			e.addBoth("X")
		}
		return p + 2
	}
	if e.stringAt(p, 2, "CZ") && !e.stringAt(p-2, 4, "WICZ") {
		e.add("S", "X")
		return p + 2
	}
	if e.stringAt(p+1, 3, "CIA") {
		e.addBoth("X")
		return p + 3
	}
	if e.stringAt(p, 2, "CC") && !(p == 1 && e.at(0) == 'M') {
		if e.stringAt(p+2, 1, "I", "E", "H") && !e.stringAt(p+2, 2, "HU") {
			if e.stringAt(p+1, 3, "ACE") || e.stringAt(p+1, 3, "ECE") || e.stringAt(p+1, 3, "ACH") {
				e.addBoth("KS")
			} else {
				e.addBoth("X")
			}
			return p + 3
		}
		e.addBoth("K")
		return p + 2
	}
	if e.stringAt(p, 2, "CK", "CG", "CQ") {
		e.addBoth("K")
		return p + 2
	}
	if e.stringAt(p, 2, "CI", "CE", "CY") {
		if e.stringAt(p, 3, "CIO", "CIE", "CIA") {
			e.add("S", "X")
		} else {
			e.addBoth("S")
		}
		return p + 2
	}
	if e.stringAt(p+1, 2, " C", " Q", " G") {
		e.addBoth("K")
		return p + 3
	}
	e.addBoth("K")
	if e.stringAt(p+1, 2, "K", "Q") && !e.stringAt(p+1, 2, "CE", "CI") {
		return p + 2
	}
	return p + 1
}

func (e *encoder) isGermanicCH(p int) bool {
	if p > 0 && !e.isVowel(e.at(p-1)) && e.stringAt(p+2, 1, "L", "R", "N", "M", "B", "H", "F", "V", "W") {
		return true
	}
	if p == 0 && (e.stringAt(p+1, 1, "L", "R", "N", "M", "B", "H", "F", "V", "W") || e.isVowel(e.at(p+1)) == false) {
		return false
	}
	return false
}

func (e *encoder) handleD() int {
	p := e.pos
	if e.stringAt(p, 2, "DG") {
		if e.stringAt(p+2, 1, "I", "E", "Y") {
			e.addBoth("J")
			return p + 3
		}
		e.addBoth("TK")
		return p + 2
	}
	if e.stringAt(p, 2, "DT", "DD") {
		e.addBoth("T")
		return p + 2
	}
	e.addBoth("T")
	return p + 1
}

func (e *encoder) handleG() int {
	p := e.pos
	if e.at(p+1) == 'H' {
		if p > 0 && !e.isVowel(e.at(p-1)) {
			e.addBoth("K")
			return p + 2
		}
		if p == 0 {
			if e.at(p+2) == 'I' {
				e.addBoth("J")
			} else {
				e.addBoth("K")
			}
			return p + 2
		}
		if (p >= 2 && e.stringAt(p-2, 1, "B", "H", "D")) ||
			(p >= 3 && e.stringAt(p-3, 1, "B", "H", "D")) ||
			(p >= 4 && e.stringAt(p-4, 1, "B", "H")) {
			e.pos += 2
			return e.pos
		}
		if p > 2 && e.at(p-1) == 'U' && e.stringAt(p-3, 1, "C", "G", "L", "R", "T") {
			e.addBoth("F")
		} else if p > 0 && e.at(p-1) != 'I' {
			e.addBoth("K")
		}
		return p + 2
	}
	if e.at(p+1) == 'N' {
		if p == 1 && e.isVowel(e.at(0)) && !e.isSlavoGermanic() && e.stringAt(p+2, 3, "IED") {
			e.add("", "K")
		} else if !e.stringAt(p+2, 2, "EY") && e.at(p+1) != 'Y' && !e.isSlavoGermanic() {
			e.add("", "K")
		} else {
			e.addBoth("K")
		}
		return p + 2
	}
	if e.stringAt(p+1, 2, "LI") && !e.isSlavoGermanic() {
		e.add("KL", "L")
		return p + 2
	}
	if p == 0 && (e.at(p+1) == 'Y' || e.stringAt(p+1, 2, "ES", "EP", "EB", "EL", "EY", "IB", "IL", "IN", "IE", "EI", "ER")) {
		e.add("K", "J")
		return p + 2
	}
	if (e.stringAt(p+1, 2, "ER") || e.at(p+1) == 'Y') && !e.stringAt(0, 6, "DANGER", "RANGER", "MANGER") &&
		!e.stringAt(p-1, 1, "E", "I") && !e.stringAt(p-1, 3, "RGY", "OGY") {
		e.add("K", "J")
		return p + 2
	}
	if e.stringAt(p+1, 1, "E", "I", "Y") || e.stringAt(p-1, 2, "AGGI", "OGGI") {
		if e.stringAt(0, 4, "VAN ", "VON ") || e.stringAt(0, 3, "SCH") || e.stringAt(p+1, 2, "ET") {
			e.addBoth("K")
		} else if e.stringAt(p+1, 3, "IER") {
			e.addBoth("J")
		} else {
			e.add("J", "K")
		}
		return p + 2
	}
	e.addBoth("K")
	if e.at(p+1) == 'G' {
		return p + 2
	}
	return p + 1
}

func (e *encoder) handleH() int {
	p := e.pos
	if (p == 0 || e.isVowel(e.at(p-1))) && e.isVowel(e.at(p+1)) {
		e.addBoth("H")
		return p + 2
	}
	return p + 1
}

func (e *encoder) handleJ() int {
	p := e.pos
	if e.stringAt(p, 4, "JOSE") || e.stringAt(0, 4, "SAN ") {
		if (p == 0 && e.at(p+4) == ' ') || e.stringAt(0, 4, "SAN ") {
			e.addBoth("H")
		} else {
			e.add("J", "H")
		}
		return p + 1
	}
	if p == 0 && !e.stringAt(p, 4, "JOSE") {
		e.add("J", "A")
	} else if e.isVowel(e.at(p-1)) && !e.isSlavoGermanic() && (e.at(p+1) == 'A' || e.at(p+1) == 'O') {
		e.add("J", "H")
	} else if p == e.length-1 {
		e.add("J", "")
	} else if !e.stringAt(p+1, 1, "L", "T", "K", "S", "N", "M", "B", "Z") && !e.stringAt(p-1, 1, "S", "K", "L") {
		e.addBoth("J")
	} else {
		e.add("", "J")
		return p + 1
	}
	if e.at(p+1) == 'J' {
		return p + 2
	}
	return p + 1
}

func (e *encoder) handleL() int {
	p := e.pos
	e.addBoth("L")
	if e.at(p+1) == 'L' {
		return p + 2
	}
	return p + 1
}

func (e *encoder) handleP() int {
	p := e.pos
	if e.at(p+1) == 'H' {
		e.addBoth("F")
		return p + 2
	}
	e.addBoth("P")
	if e.stringAt(p+1, 1, "P", "B") {
		return p + 2
	}
	return p + 1
}

func (e *encoder) handleR() int {
	p := e.pos
	if p == e.length-1 && !e.isSlavoGermanic() && e.stringAt(p-2, 2, "IE") && !e.stringAt(p-4, 2, "ME", "MA") {
		e.add("", "R")
	} else {
		e.addBoth("R")
	}
	if e.at(p+1) == 'R' {
		return p + 2
	}
	return p + 1
}

func (e *encoder) handleS() int {
	p := e.pos
	if e.stringAt(p-1, 3, "ISL", "YSL") {
		return p + 1
	}
	if p == 0 && e.stringAt(p, 5, "SUGAR") {
		e.add("X", "S")
		return p + 1
	}
	if e.stringAt(p, 2, "SH") {
		if e.stringAt(p+1, 4, "HEIM", "HOEK", "HOLM", "HOLZ") {
			e.addBoth("S")
		} else {
			e.addBoth("X")
		}
		return p + 2
	}
	if e.stringAt(p, 3, "SIO", "SIA") {
		if e.isSlavoGermanic() {
			e.addBoth("S")
		} else {
			e.add("S", "X")
		}
		return p + 3
	}
	if (p == 0 && e.stringAt(p+1, 1, "M", "N", "L", "W")) || e.at(p+1) == 'Z' {
		e.add("S", "X")
		if e.at(p+1) == 'Z' {
			return p + 2
		}
		return p + 1
	}
	if e.stringAt(p, 2, "SC") {
		if e.at(p+2) == 'H' {
			if e.stringAt(p+3, 2, "OO", "ER", "EN", "UY", "ED", "EM") {
				if e.stringAt(p+3, 2, "ER", "EN") {
					e.addBoth("X")
				} else {
					e.addBoth("SK")
				}
			} else if p == 0 && !e.isVowel(e.at(3)) && e.at(3) != 'W' {
				e.add("X", "S")
			} else {
				e.addBoth("X")
			}
			return p + 3
		}
		if e.stringAt(p+2, 1, "I", "E", "Y") {
			e.addBoth("S")
			return p + 3
		}
		e.addBoth("SK")
		return p + 3
	}
	if p == e.length-1 && e.stringAt(p-2, 2, "AI", "OI") {
		e.add("", "S")
	} else {
		e.addBoth("S")
	}
	if e.stringAt(p+1, 1, "S", "Z") {
		return p + 2
	}
	return p + 1
}

func (e *encoder) handleT() int {
	p := e.pos
	if e.stringAt(p, 4, "TION") {
		e.addBoth("X")
		return p + 3
	}
	if e.stringAt(p, 3, "TIA", "TCH") {
		e.addBoth("X")
		return p + 3
	}
	if e.stringAt(p, 2, "TH") || e.stringAt(p, 3, "TTH") {
		if e.stringAt(p+2, 2, "OM", "AM") || e.stringAt(0, 4, "VAN ", "VON ") || e.stringAt(0, 3, "SCH") {
			e.addBoth("T")
		} else {
			e.add("0", "T")
		}
		return p + 2
	}
	e.addBoth("T")
	if e.stringAt(p+1, 1, "T", "D") {
		return p + 2
	}
	return p + 1
}

func (e *encoder) handleW() int {
	p := e.pos
	if e.stringAt(p, 2, "WR") {
		e.addBoth("R")
		return p + 2
	}
	if p == 0 && (e.isVowel(e.at(p+1)) || e.stringAt(p, 2, "WH")) {
		if e.isVowel(e.at(p+1)) {
			e.add("A", "F")
		} else {
			e.addBoth("A")
		}
		return p + 1
	}
	if (p == e.length-1 && e.isVowel(e.at(p-1))) ||
		e.stringAt(p-1, 5, "EWSKI", "EWSKY", "OWSKI", "OWSKY") ||
		e.stringAt(0, 3, "SCH") {
		e.add("", "F")
		return p + 1
	}
	if e.stringAt(p, 4, "WICZ", "WITZ") {
		e.add("TS", "FX")
		return p + 4
	}
	return p + 1
}

func (e *encoder) handleX() int {
	p := e.pos
	if !(p == e.length-1 && (e.stringAt(p-3, 3, "IAU", "EAU") || e.stringAt(p-2, 2, "AU", "OU"))) {
		e.addBoth("KS")
	}
	if e.stringAt(p+1, 1, "C", "X") {
		return p + 2
	}
	return p + 1
}

func (e *encoder) handleZ() int {
	p := e.pos
	if e.at(p+1) == 'H' {
		e.addBoth("J")
		return p + 2
	}
	if e.stringAt(p+1, 2, "ZO", "ZI", "ZA") || (e.isSlavoGermanic() && p > 0 && e.at(p-1) != 'T') {
		e.add("S", "TS")
	} else {
		e.addBoth("S")
	}
	if e.at(p+1) == 'Z' {
		return p + 2
	}
	return p + 1
}
