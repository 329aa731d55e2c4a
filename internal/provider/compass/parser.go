// Package compass parses the structured JSON menu feed.
package compass

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/abelbrown/lunchtray/internal/dates"
	"github.com/abelbrown/lunchtray/internal/menu"
	"github.com/abelbrown/lunchtray/internal/provider"
)

// feedResponse mirrors the upstream feed document.
type feedResponse struct {
	RestaurantName *string       `json:"RestaurantName"`
	RestaurantURL  *string       `json:"RestaurantUrl"`
	MenusForDays   []feedMenuDay `json:"MenusForDays"`
	ErrorText      *string       `json:"ErrorText"`
}

type feedMenuDay struct {
	Date      *string       `json:"Date"`
	LunchTime *string       `json:"LunchTime"`
	SetMenus  []feedSetMenu `json:"SetMenus"`
}

type feedSetMenu struct {
	SortOrder  json.RawMessage `json:"SortOrder"`
	Name       *string         `json:"Name"`
	Price      *string         `json:"Price"`
	Components []string        `json:"Components"`
}

// Parse converts a structured-feed JSON body into a RawPayload. The day
// whose truncated Date equals the reference date is selected; when no day
// matches, the payload is still valid but carries no menu for the day
// (HasDay false, DateValid false) and MenuDateISO reports the latest day
// present in the feed.
//
// Errors are returned for unparseable JSON, a missing or non-array
// MenusForDays, and a provider-declared error field.
func Parse(code, rawText string, referenceDate time.Time) (*provider.RawPayload, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(rawText), &probe); err != nil {
		return nil, fmt.Errorf("parse feed JSON: %w", err)
	}

	var api feedResponse
	if err := json.Unmarshal([]byte(rawText), &api); err != nil {
		return nil, fmt.Errorf("parse feed JSON: %w", err)
	}

	if errText := menu.CleanText(stringOr(api.ErrorText)); errText != "" {
		return nil, errors.New(errText)
	}

	raw, ok := probe["MenusForDays"]
	if !ok || strings.TrimSpace(string(raw)) == "null" {
		return nil, errors.New("feed has no MenusForDays array")
	}
	if !strings.HasPrefix(strings.TrimSpace(string(raw)), "[") {
		return nil, errors.New("MenusForDays is not an array")
	}

	refKey := dates.DayKey(referenceDate)
	out := &provider.RawPayload{
		Kind:           provider.KindStructuredFeed,
		RawText:        rawText,
		RestaurantName: menu.CleanText(stringOr(api.RestaurantName)),
		RestaurantURL:  menu.CleanText(stringOr(api.RestaurantURL)),
	}

	latest := ""
	for _, day := range api.MenusForDays {
		dayKey := dates.TruncateISO(stringOr(day.Date))
		if dayKey == "" {
			continue
		}
		if dayKey > latest {
			latest = dayKey
		}
		if dayKey != refKey {
			continue
		}
		out.HasDay = true
		out.DateValid = true
		out.MenuDateISO = dayKey
		out.LunchTime = stringOr(day.LunchTime)
		out.Sections = convertSetMenus(day.SetMenus)
		break
	}

	if !out.HasDay {
		// A valid "no data for today" outcome, not a parse failure.
		out.MenuDateISO = latest
	}
	return out, nil
}

func convertSetMenus(setMenus []feedSetMenu) []provider.RawSection {
	sections := make([]provider.RawSection, 0, len(setMenus))
	for _, sm := range setMenus {
		sections = append(sections, provider.RawSection{
			SortOrder:  parseSortOrder(sm.SortOrder),
			Name:       stringOr(sm.Name),
			Price:      stringOr(sm.Price),
			Components: sm.Components,
		})
	}
	return sections
}

// parseSortOrder reads a SortOrder value leniently: numbers and numeric
// strings parse as usual, anything else sorts as 0.
func parseSortOrder(raw json.RawMessage) int {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return 0
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return int(n)
	}
	return 0
}

func stringOr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
