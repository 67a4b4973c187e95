// Package scrape fetches and parses department staff listing pages. Page
// layouts vary per department, so fetching and parsing are both handled by
// a closed set of strategies selected with Support predicates.
package scrape

// Layout identifies one of the known staff page layouts.
type Layout int

const (
	// LayoutTable is the standard table listing most departments use.
	LayoutTable Layout = iota
	// LayoutDetailList is the per-person definition-list layout.
	LayoutDetailList
	// LayoutRealEstate is the specialized listing used by one department.
	LayoutRealEstate
)

// Dept describes one department's staff page: where to fetch it and which
// layout strategy applies.
type Dept struct {
	Name     string
	College  string
	Layout   Layout
	ForumIDs []string // paged listing ids, LayoutTable only
	PageURL  string   // direct page, non-table layouts only
}

// Depts is the closed department set the scraper walks each cycle.
var Depts = []Dept{
	{Name: "computer_science", College: "engineering", Layout: LayoutTable, ForumIDs: []string{"1813"}},
	{Name: "electrical_electronics", College: "engineering", Layout: LayoutTable, ForumIDs: []string{"1729", "1730"}},
	{Name: "mechanical_aerospace", College: "engineering", Layout: LayoutTable, ForumIDs: []string{"1771"}},
	{Name: "business_administration", College: "business", Layout: LayoutTable, ForumIDs: []string{"1502"}},
	{Name: "veterinary_medicine", College: "veterinary_medicine", Layout: LayoutTable, ForumIDs: []string{"1920"}},
	{Name: "living_design", College: "art_design", Layout: LayoutDetailList, PageURL: "https://kuad.konkuk.ac.kr/designku/major/craft/professor.do"},
	{Name: "communication_design", College: "art_design", Layout: LayoutDetailList, PageURL: "https://kuad.konkuk.ac.kr/designku/major/comm/professor.do"},
	{Name: "real_estate", College: "real_estate", Layout: LayoutRealEstate, PageURL: "https://rest.konkuk.ac.kr/rest_under/professor.htm"},
}
