// Package rssmenu parses the RSS lunch feed.
package rssmenu

import (
	"fmt"
	"html"
	"regexp"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/abelbrown/lunchtray/internal/dates"
	"github.com/abelbrown/lunchtray/internal/menu"
	"github.com/abelbrown/lunchtray/internal/provider"
)

// itemDateRe finds a day-first date ("19.2.2026", "19-2-26") inside the
// item title or guid.
var itemDateRe = regexp.MustCompile(`(\d{1,2})[-./](\d{1,2})[-./](\d{2,4})`)

// paragraphRe matches one <p> paragraph of the item description.
var paragraphRe = regexp.MustCompile(`(?is)<p[^>]*>(.*?)</p>`)

// htmlTagRe strips any remaining markup from a description line.
var htmlTagRe = regexp.MustCompile(`<[^>]*>`)

// Parse converts an RSS feed body into a RawPayload. The first channel
// item carries the day's menu: its title (falling back to the guid)
// names the date, and the description's <p> paragraphs become component
// lines, each run through the allergen-token reformatter.
func Parse(code, rawText string, referenceDate time.Time) (*provider.RawPayload, error) {
	feed, err := gofeed.NewParser().ParseString(rawText)
	if err != nil {
		return nil, fmt.Errorf("parse RSS feed: %w", err)
	}

	// Fall back to channel-level fields when the feed has no items.
	title := feed.Title
	guid := ""
	link := feed.Link
	description := feed.Description
	if len(feed.Items) > 0 {
		item := feed.Items[0]
		title = item.Title
		guid = item.GUID
		link = item.Link
		description = item.Description
	}

	out := &provider.RawPayload{
		Kind:           provider.KindRSSFeed,
		RawText:        rawText,
		RestaurantName: menu.CleanText(feed.Title),
		RestaurantURL:  menu.CleanText(link),
		HasDay:         true,
	}

	if d, ok := itemDate(title, guid, referenceDate); ok {
		out.MenuDateISO = dates.DayKey(d)
		out.DateValid = out.MenuDateISO == dates.DayKey(referenceDate)
	}

	components := descriptionLines(description)
	if len(components) > 0 {
		out.Sections = []provider.RawSection{{
			Name:       "Lounas",
			Components: components,
		}}
	}
	return out, nil
}

// itemDate parses the menu date from the item title, falling back to the
// guid. 2-digit years normalize to the 2000s via dates.ParseDayMonth.
func itemDate(title, guid string, ref time.Time) (time.Time, bool) {
	for _, text := range []string{title, guid} {
		m := itemDateRe.FindString(text)
		if m == "" {
			continue
		}
		if d, ok := dates.ParseDayMonth(m, ref); ok {
			return d, true
		}
	}
	return time.Time{}, false
}

// descriptionLines splits the description into component lines: one per
// <p> paragraph, or the whole stripped description as a single fallback
// line. Every line passes through the allergen reformatter.
func descriptionLines(description string) []string {
	var lines []string
	for _, m := range paragraphRe.FindAllStringSubmatch(description, -1) {
		if text := stripMarkup(m[1]); text != "" {
			lines = append(lines, text)
		}
	}
	if len(lines) == 0 {
		if text := stripMarkup(description); text != "" {
			lines = []string{text}
		}
	}
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = ReformatAllergens(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func stripMarkup(s string) string {
	s = htmlTagRe.ReplaceAllString(s, " ")
	return menu.CleanText(html.UnescapeString(s))
}
