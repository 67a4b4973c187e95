// Package kuring contains the core domain types for the KU-ring notice service.
package kuring

// Category is immutable reference data for one notice category.
// Name is the unique key; Code is the short identifier the upstream
// KUIS API expects in request bodies.
type Category struct {
	Name  string `json:"name"`  // unique key, e.g. "bachelor"
	Label string `json:"label"` // human label, e.g. "학사"
	Code  string `json:"code"`  // upstream short code, e.g. "bch"
}

// LibraryCategory is the one category not served by the KUIS API.
const LibraryCategory = "library"

// DefaultCategories is the closed reference set loaded at startup.
var DefaultCategories = []Category{
	{Name: "bachelor", Label: "학사", Code: "bch"},
	{Name: "scholarship", Label: "장학", Code: "sch"},
	{Name: "employment", Label: "취창업", Code: "emp"},
	{Name: "national", Label: "국제", Code: "nat"},
	{Name: "student", Label: "학생", Code: "stu"},
	{Name: "industry_university", Label: "산학", Code: "ind"},
	{Name: "normal", Label: "일반", Code: "nor"},
	{Name: LibraryCategory, Label: "도서관", Code: "lib"},
}

// Notice is the canonical notice record. Identity is (Category, ArticleID);
// dates stay in the upstream string form (e.g. "20240101").
type Notice struct {
	ArticleID   string `json:"article_id"`
	PostedDate  string `json:"posted_date"`
	UpdatedDate string `json:"updated_date,omitempty"` // empty when the source has none
	Subject     string `json:"subject"`
	Category    string `json:"category"`
}

// StaffRecord is one row of a department staff listing. Listings are
// replaced wholesale per scrape cycle, so there is no identity beyond
// the department snapshot it belongs to.
type StaffRecord struct {
	Name    string `json:"name"`
	Major   string `json:"major"`
	Lab     string `json:"lab"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Dept    string `json:"dept"`
	College string `json:"college"`
}
