// Package provider defines the intermediate record produced by the three
// upstream parsers and the normalizer that reduces it to the shared menu
// model. The parsers themselves live in subpackages (compass, antell,
// rssmenu); each is a pure function over (code, raw text, reference date).
package provider

// Kind identifies the upstream source format of a catalog entry.
type Kind string

const (
	KindStructuredFeed Kind = "structured-feed"
	KindHTMLScrape     Kind = "html-scrape"
	KindRSSFeed        Kind = "rss-feed"
)

// RawPayload is the provider-neutral result of parsing one fetched body.
type RawPayload struct {
	Kind    Kind
	RawText string

	// MenuDateISO is the ISO day the payload claims to describe, or ""
	// when no well-formed date could be extracted.
	MenuDateISO string

	// DateValid reports whether the upstream payload yielded a
	// well-formed date equal to the caller's reference day.
	DateValid bool

	// HasDay reports whether any day could be associated with the
	// payload at all. When false the normalizer yields a nil menu
	// ("no data for today") rather than an empty one.
	HasDay bool

	LunchTime string
	Sections  []RawSection

	RestaurantName string
	RestaurantURL  string
}

// RawSection is one set menu as extracted by a parser, before
// normalization.
type RawSection struct {
	SortOrder  int
	Name       string
	Price      string
	Components []string
}
