package provider

import (
	"sort"

	"github.com/abelbrown/lunchtray/internal/menu"
)

// Normalize converts a parsed payload into the shared menu shape. It is
// the single chokepoint all providers flow through: sections are sorted
// by their declared sort key (stable, missing keys coerced to 0 by the
// parsers), every text field is whitespace-collapsed, empty component
// lines and sections with neither a name nor components are dropped, and
// the Menus slice is never nil.
//
// Returns nil when the payload has no day to describe.
func Normalize(p *RawPayload) *menu.TodayMenu {
	if p == nil || !p.HasDay {
		return nil
	}

	sections := make([]RawSection, len(p.Sections))
	copy(sections, p.Sections)
	sort.SliceStable(sections, func(i, j int) bool {
		return sections[i].SortOrder < sections[j].SortOrder
	})

	menus := make([]menu.Section, 0, len(sections))
	for _, s := range sections {
		name := menu.CleanText(s.Name)
		components := make([]string, 0, len(s.Components))
		for _, c := range s.Components {
			if c = menu.CleanText(c); c != "" {
				components = append(components, c)
			}
		}
		if name == "" && len(components) == 0 {
			continue
		}
		menus = append(menus, menu.Section{
			SortOrder:  s.SortOrder,
			Name:       name,
			Price:      menu.CleanText(s.Price),
			Components: components,
		})
	}

	return &menu.TodayMenu{
		DateISO:   p.MenuDateISO,
		LunchTime: menu.CleanText(p.LunchTime),
		Menus:     menus,
	}
}
