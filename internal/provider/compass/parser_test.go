package compass

import (
	"testing"
	"time"

	"github.com/abelbrown/lunchtray/internal/provider"
)

const sampleFeed = `{
	"RestaurantName": "Snellmania",
	"RestaurantUrl": "https://example.com/snellmania",
	"MenusForDays": [
		{
			"Date": "2026-02-19T00:00:00",
			"LunchTime": "10:30–14:30",
			"SetMenus": [
				{"SortOrder": 2, "Name": "Vegan", "Price": "2,95", "Components": ["Bean stew (G, L)"]},
				{"SortOrder": 1, "Name": "Lunch", "Price": "5,60", "Components": ["Chicken soup (L)", "Rice"]},
				{"Name": "", "Components": []}
			]
		},
		{
			"Date": "2026-02-20T00:00:00",
			"LunchTime": "10:30–14:00",
			"SetMenus": [{"Name": "Friday", "Components": ["Fish"]}]
		}
	]
}`

func ref(t *testing.T, year, month, day int) time.Time {
	t.Helper()
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)
}

func TestParseSelectsMatchingDay(t *testing.T) {
	p, err := Parse("0437", sampleFeed, ref(t, 2026, 2, 19))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !p.HasDay || !p.DateValid {
		t.Fatalf("HasDay=%v DateValid=%v, want both true", p.HasDay, p.DateValid)
	}
	if p.MenuDateISO != "2026-02-19" {
		t.Errorf("MenuDateISO = %q, want 2026-02-19", p.MenuDateISO)
	}
	if p.RestaurantName != "Snellmania" {
		t.Errorf("RestaurantName = %q", p.RestaurantName)
	}

	m := provider.Normalize(p)
	if m == nil {
		t.Fatal("expected a menu")
	}
	if m.LunchTime != "10:30–14:30" {
		t.Errorf("LunchTime = %q", m.LunchTime)
	}
	// Sorted ascending by SortOrder, empty entry dropped.
	if len(m.Menus) != 2 {
		t.Fatalf("got %d menus, want 2", len(m.Menus))
	}
	if m.Menus[0].Name != "Lunch" || m.Menus[1].Name != "Vegan" {
		t.Errorf("menu order = %q, %q; want Lunch, Vegan", m.Menus[0].Name, m.Menus[1].Name)
	}
	if len(m.Menus[0].Components) != 2 {
		t.Errorf("Lunch components = %v", m.Menus[0].Components)
	}
}

func TestParseNoMatchingDay(t *testing.T) {
	p, err := Parse("0437", sampleFeed, ref(t, 2026, 2, 23))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.HasDay || p.DateValid {
		t.Errorf("HasDay=%v DateValid=%v, want both false", p.HasDay, p.DateValid)
	}
	// Latest day in the feed is reported for staleness display.
	if p.MenuDateISO != "2026-02-20" {
		t.Errorf("MenuDateISO = %q, want 2026-02-20", p.MenuDateISO)
	}
	if m := provider.Normalize(p); m != nil {
		t.Errorf("expected nil menu, got %+v", m)
	}
}

func TestParseErrors(t *testing.T) {
	r := ref(t, 2026, 2, 19)

	if _, err := Parse("0437", "not json", r); err == nil {
		t.Error("expected error for invalid JSON")
	}
	if _, err := Parse("0437", `{"RestaurantName": "X"}`, r); err == nil {
		t.Error("expected error for missing MenusForDays")
	}
	if _, err := Parse("0437", `{"MenusForDays": "nope"}`, r); err == nil {
		t.Error("expected error for non-array MenusForDays")
	}
	if _, err := Parse("0437", `{"MenusForDays": null}`, r); err == nil {
		t.Error("expected error for null MenusForDays")
	}
	_, err := Parse("0437", `{"ErrorText": "Cost center not found", "MenusForDays": []}`, r)
	if err == nil || err.Error() != "Cost center not found" {
		t.Errorf("provider error = %v, want provider-declared text", err)
	}
}

func TestParseLenientSortOrder(t *testing.T) {
	body := `{"MenusForDays": [{"Date": "2026-02-19T00:00:00", "SetMenus": [
		{"SortOrder": "7", "Name": "A", "Components": ["x"]},
		{"SortOrder": "junk", "Name": "B", "Components": ["y"]},
		{"Name": "C", "Components": ["z"]}
	]}]}`
	p, err := Parse("0437", body, ref(t, 2026, 2, 19))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	m := provider.Normalize(p)
	if len(m.Menus) != 3 {
		t.Fatalf("got %d menus", len(m.Menus))
	}
	// "junk" and missing both coerce to 0 and keep their relative order.
	want := []string{"B", "C", "A"}
	for i, name := range want {
		if m.Menus[i].Name != name {
			t.Errorf("menus[%d] = %q, want %q", i, m.Menus[i].Name, name)
		}
	}
}

func TestParseIdempotentAcrossReplays(t *testing.T) {
	r := ref(t, 2026, 2, 19)
	p1, err := Parse("0437", sampleFeed, r)
	if err != nil {
		t.Fatal(err)
	}
	p2, err := Parse("0437", sampleFeed, r)
	if err != nil {
		t.Fatal(err)
	}
	m1, m2 := provider.Normalize(p1), provider.Normalize(p2)
	if m1.DateISO != m2.DateISO || len(m1.Menus) != len(m2.Menus) {
		t.Fatal("replayed parse differs")
	}
	for i := range m1.Menus {
		if m1.Menus[i].Name != m2.Menus[i].Name {
			t.Errorf("menus[%d] differs: %q vs %q", i, m1.Menus[i].Name, m2.Menus[i].Name)
		}
	}
}
