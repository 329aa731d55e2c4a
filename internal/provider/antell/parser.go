// Package antell parses the scraped lunch page HTML.
package antell

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/abelbrown/lunchtray/internal/dates"
	"github.com/abelbrown/lunchtray/internal/menu"
	"github.com/abelbrown/lunchtray/internal/provider"
)

// Parse extracts the menu sections, location name and menu date from a
// lunch page. The page carries a day-first date ("19.2." or "19.2.2026")
// whose year, when omitted, is inferred from the reference date; the
// payload is date-valid only when the reconstructed date equals the
// reference day. Sections without any list items are discarded.
func Parse(code, rawText string, referenceDate time.Time) (*provider.RawPayload, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawText))
	if err != nil {
		return nil, fmt.Errorf("parse lunch page HTML: %w", err)
	}

	out := &provider.RawPayload{
		Kind:           provider.KindHTMLScrape,
		RawText:        rawText,
		RestaurantName: elementText(doc.Find("div.location").First()),
	}

	dateText := elementText(doc.Find("div.menu-date").First())
	if d, ok := dates.ParseDayMonth(dateText, referenceDate); ok {
		out.MenuDateISO = dates.DayKey(d)
		out.DateValid = out.MenuDateISO == dates.DayKey(referenceDate)
	}
	// The page always describes some day; even an unparseable date still
	// yields a menu, it just can never be fresh.
	out.HasDay = true

	doc.Find("section.menu-section").Each(func(_ int, sec *goquery.Selection) {
		items := make([]string, 0, 4)
		sec.Find("ul.menu-list > li").Each(func(_ int, li *goquery.Selection) {
			if text := elementText(li); text != "" {
				items = append(items, text)
			}
		})
		if len(items) == 0 {
			return
		}
		name := elementText(sec.Find("h2.menu-title").First())
		if name == "" {
			name = "Menu"
		}
		out.Sections = append(out.Sections, provider.RawSection{
			SortOrder:  len(out.Sections),
			Name:       name,
			Price:      elementText(sec.Find("h2.menu-price").First()),
			Components: items,
		})
	})

	return out, nil
}

// elementText is tag-scoped text extraction: strip nested tags, decode
// entities (both done by the HTML parser) and collapse whitespace.
func elementText(sel *goquery.Selection) string {
	return menu.CleanText(sel.Text())
}
