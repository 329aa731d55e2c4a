// Package menu defines the provider-agnostic menu model shared by the
// parsers, the restaurant state machine and the display code, plus the
// text-cleaning helpers they all use.
package menu

import "strings"

// Section is one set menu: a heading, a price and its component lines.
type Section struct {
	SortOrder  int
	Name       string
	Price      string
	Components []string
}

// TodayMenu is the menu confirmed (or claimed) for one calendar day.
// A nil *TodayMenu means no data could be associated with the reference
// day; an empty Menus slice means a real day with zero set menus.
type TodayMenu struct {
	DateISO   string
	LunchTime string
	Menus     []Section
}

// CleanText collapses runs of whitespace to single spaces and trims.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// SplitComponentSuffix splits a component line into its main text and a
// trailing parenthesized tag group, if the line ends in exactly one such
// group. Lines without a well-formed suffix return the whole text and "".
func SplitComponentSuffix(component string) (string, string) {
	text := CleanText(component)
	if text == "" {
		return "", ""
	}
	idx := strings.LastIndexByte(text, '(')
	if idx <= 0 || !strings.HasSuffix(text, ")") {
		return text, ""
	}
	main := strings.TrimSpace(text[:idx])
	suffix := strings.TrimSpace(text[idx:])
	if main == "" || strings.Count(suffix, "(") != 1 || strings.Count(suffix, ")") != 1 {
		return text, ""
	}
	return main, suffix
}
