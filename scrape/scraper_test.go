package scrape

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/KU-Stacks/ku-ring-backend-web/apperror"
)

func newTestScraper(client *http.Client, baseURL string) *Scraper {
	return New(
		[]Fetcher{
			NewPagedFetcher(client, baseURL, testPolicy(), testLogger()),
			NewSinglePageFetcher(client, testPolicy(), testLogger()),
		},
		[]Parser{
			NewTableParser(testLogger()),
			NewDetailListParser(testLogger()),
			NewRealEstateParser(testLogger()),
		},
		testLogger(),
	)
}

func TestScrapeTaggedWithDept(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body><input id="totalPageCount" value="1"/>
<table class="staff_list"><tbody>
<tr><td>김민수</td><td>인공지능</td><td>공학관 301</td><td>02-450-1234</td><td>mskim@konkuk.ac.kr</td></tr>
<tr><td>이정훈</td><td>데이터베이스</td><td>공학관 302</td><td>02-450-1235</td><td>jhlee@konkuk.ac.kr</td></tr>
</tbody></table></body></html>`)
	}))
	t.Cleanup(srv.Close)

	s := newTestScraper(srv.Client(), srv.URL)
	dept := Dept{Name: "computer_science", College: "engineering", Layout: LayoutTable, ForumIDs: []string{"1813"}}

	records, err := s.Scrape(context.Background(), dept)
	if err != nil {
		t.Fatalf("Scrape() error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	for _, r := range records {
		if r.Dept != "computer_science" || r.College != "engineering" {
			t.Errorf("record not tagged with department: %+v", r)
		}
	}
}

func TestScrapeZeroRecordsIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body><input id="totalPageCount" value="1"/><table class="staff_list"><tbody></tbody></table></body></html>`)
	}))
	t.Cleanup(srv.Close)

	s := newTestScraper(srv.Client(), srv.URL)
	dept := Dept{Name: "computer_science", College: "engineering", Layout: LayoutTable, ForumIDs: []string{"1813"}}

	_, err := s.Scrape(context.Background(), dept)
	if !errors.Is(err, apperror.ErrScrapeNoRecords) {
		t.Fatalf("expected ErrScrapeNoRecords, got %v", err)
	}
}

func TestScrapeRejectsUnclaimedDept(t *testing.T) {
	// A scraper with no single-page fetcher cannot serve a detail-list dept.
	s := New(
		[]Fetcher{NewPagedFetcher(nil, "", testPolicy(), testLogger())},
		[]Parser{NewDetailListParser(testLogger())},
		testLogger(),
	)
	dept := Dept{Name: "living_design", Layout: LayoutDetailList, PageURL: "http://example.invalid"}

	_, err := s.Scrape(context.Background(), dept)
	if !errors.Is(err, apperror.ErrScrapeBadDocument) {
		t.Fatalf("expected ErrScrapeBadDocument for unclaimed department, got %v", err)
	}
}

func TestScrapeRejectsMultipleClaims(t *testing.T) {
	s := New(
		[]Fetcher{
			NewPagedFetcher(nil, "", testPolicy(), testLogger()),
			NewPagedFetcher(nil, "", testPolicy(), testLogger()),
		},
		[]Parser{NewTableParser(testLogger())},
		testLogger(),
	)
	dept := Dept{Name: "computer_science", Layout: LayoutTable, ForumIDs: []string{"1813"}}

	_, err := s.Scrape(context.Background(), dept)
	if !errors.Is(err, apperror.ErrScrapeBadDocument) {
		t.Fatalf("expected ErrScrapeBadDocument for ambiguous claims, got %v", err)
	}
}

func TestParseDocuments(t *testing.T) {
	s := newTestScraper(nil, "")
	dept := Dept{Name: "real_estate", College: "real_estate", Layout: LayoutRealEstate}

	records, err := s.ParseDocuments(dept, []*goquery.Document{mustDoc(t, realEstateFixture)})
	if err != nil {
		t.Fatalf("ParseDocuments() error: %v", err)
	}
	if len(records) != 1 || records[0].Name != "강동현" {
		t.Errorf("unexpected records: %+v", records)
	}
}
