package ui

import (
	"fmt"

	"github.com/abelbrown/lunchtray/internal/dates"
	"github.com/abelbrown/lunchtray/internal/menu"
)

// TextFor returns the localized UI string for key. Unknown keys pass
// through unchanged.
func TextFor(language, key string) string {
	if language == "fi" {
		switch key {
		case "loading":
			return "Ladataan ruokalistaa..."
		case "noMenu":
			return "Tälle päivälle ei ole lounaslistaa."
		case "stale":
			return "Ei verkkoyhteyttä. Näytetään viimeisin tallennettu lista"
		case "fetchError":
			return "Päivitysvirhe"
		}
		return key
	}
	switch key {
	case "loading":
		return "Loading menu..."
	case "noMenu":
		return "No lunch menu available for today."
	case "stale":
		return "Offline. Showing last cached menu"
	case "fetchError":
		return "Fetch error"
	}
	return key
}

// DateTimeLine combines the menu's display date and lunch time into
// one line, omitting whichever part is missing.
func DateTimeLine(m *menu.TodayMenu, language string) string {
	if m == nil {
		return ""
	}
	datePart := dates.FormatDisplay(m.DateISO, language)
	timePart := menu.CleanText(m.LunchTime)
	switch {
	case datePart != "" && timePart != "":
		return datePart + " " + timePart
	case datePart != "":
		return datePart
	default:
		return timePart
	}
}

// MenuHeading builds the heading for one set menu, appending the price
// when enabled and present.
func MenuHeading(s menu.Section, showPrices bool) string {
	heading := menu.CleanText(s.Name)
	if heading == "" {
		heading = "Menu"
	}
	price := menu.CleanText(s.Price)
	if showPrices && price != "" {
		return fmt.Sprintf("%s - %s", heading, price)
	}
	return heading
}

// ComponentLine renders one component, optionally dropping its
// trailing allergen group.
func ComponentLine(component string, showAllergens bool) (main, suffix string) {
	main, suffix = menu.SplitComponentSuffix(component)
	if !showAllergens {
		suffix = ""
	}
	return main, suffix
}
