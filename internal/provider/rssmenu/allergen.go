package rssmenu

import "strings"

// allergenWords is the small fixed vocabulary of multi-letter diet tags
// recognized outside a parenthesized group.
var allergenWords = map[string]bool{
	"VEG": true,
	"VS":  true,
	"ILM": true,
}

// maxBareTokens caps how many trailing space-separated tokens are peeled
// off a line that lists tags without commas.
const maxBareTokens = 4

// ReformatAllergens rewrites a component line so that trailing
// allergen/diet tags end up in one normalized parenthesized group.
//
// A line that already ends in a well-formed "(A, B, ...)" group is left
// alone. Otherwise comma-separated trailing segments are scanned from
// the right; recognized tokens (*, a bare letter, or a vocabulary word)
// are peeled off into a synthesized group, along with a standalone
// trailing "*" and a few trailing bare-word tags. A line with no
// recognizable tags is returned unchanged, minus trailing punctuation.
func ReformatAllergens(line string) string {
	line = strings.Join(strings.Fields(line), " ")
	if line == "" {
		return ""
	}
	if hasWellFormedTagGroup(line) {
		return line
	}

	segments := strings.Split(line, ",")
	var commaTokens []string
	cut := len(segments)
	for i := len(segments) - 1; i > 0; i-- {
		tok, ok := recognizeToken(segments[i])
		if !ok {
			break
		}
		commaTokens = append([]string{tok}, commaTokens...)
		cut = i
	}

	main := strings.TrimSpace(strings.Join(segments[:cut], ","))

	// Tags are sometimes listed without commas ("Kalakeitto L G") or
	// prefixed with a lone star; peel those off the main text too.
	var bareTokens []string
	for len(bareTokens) < maxBareTokens {
		idx := strings.LastIndexByte(main, ' ')
		if idx < 0 {
			break
		}
		tok, ok := recognizeToken(main[idx+1:])
		if !ok {
			break
		}
		bareTokens = append([]string{tok}, bareTokens...)
		main = strings.TrimSpace(main[:idx])
	}

	tokens := append(bareTokens, commaTokens...)
	if len(tokens) == 0 {
		return strings.TrimRight(line, " .,;:")
	}
	main = strings.TrimRight(main, " ,")
	if main == "" {
		return "(" + strings.Join(tokens, ", ") + ")"
	}
	return main + " (" + strings.Join(tokens, ", ") + ")"
}

// recognizeToken reports whether a trailing segment is an allergen tag
// and returns its normalized form: uppercase, except VEG which renders
// as "Veg".
func recognizeToken(seg string) (string, bool) {
	seg = strings.TrimSpace(seg)
	seg = strings.TrimRight(seg, ".")
	if seg == "*" {
		return "*", true
	}
	upper := strings.ToUpper(seg)
	if len(seg) == 1 && isLetter(seg[0]) {
		return upper, true
	}
	if allergenWords[upper] {
		if upper == "VEG" {
			return "Veg", true
		}
		return upper, true
	}
	return "", false
}

// hasWellFormedTagGroup reports whether the line already ends in one
// parenthesized group whose every comma-separated token is a tag.
func hasWellFormedTagGroup(line string) bool {
	if !strings.HasSuffix(line, ")") {
		return false
	}
	idx := strings.LastIndexByte(line, '(')
	if idx <= 0 {
		return false
	}
	inner := line[idx+1 : len(line)-1]
	if strings.ContainsAny(inner, "()") {
		return false
	}
	for _, tok := range strings.Split(inner, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "*" {
			continue
		}
		if allergenWords[strings.ToUpper(tok)] {
			continue
		}
		if len(tok) == 0 || len(tok) > 2 || !lettersOnly(tok) {
			return false
		}
	}
	return true
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func lettersOnly(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isLetter(s[i]) {
			return false
		}
	}
	return true
}
