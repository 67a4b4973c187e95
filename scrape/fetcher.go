package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/KU-Stacks/ku-ring-backend-web/apperror"
	"github.com/KU-Stacks/ku-ring-backend-web/retrier"
)

// maxStaffPages caps the paging loop so a corrupt page-count hint cannot
// drive an unbounded POST loop.
const maxStaffPages = 20

// Fetcher retrieves the raw documents for one department. Exactly one
// fetcher claims any given department.
type Fetcher interface {
	Support(dept Dept) bool
	Fetch(ctx context.Context, dept Dept) ([]*goquery.Document, error)
}

// PagedFetcher handles the standard paged listing: GET the first page,
// read the totalPageCount hint, then POST an incrementing pageNum until
// the count is exhausted. Page requests within one department are strictly
// sequential; the later pages depend on the first page's count and session
// cookies.
type PagedFetcher struct {
	client  *http.Client
	logger  *slog.Logger
	policy  retrier.Policy
	baseURL string
}

// NewPagedFetcher creates the fetcher for table-layout departments.
func NewPagedFetcher(client *http.Client, baseURL string, policy retrier.Policy, logger *slog.Logger) *PagedFetcher {
	return &PagedFetcher{
		client:  client,
		logger:  logger,
		policy:  policy,
		baseURL: baseURL,
	}
}

// Support claims departments with forum ids (the standard table layout).
func (f *PagedFetcher) Support(dept Dept) bool {
	return dept.Layout == LayoutTable
}

// Fetch accumulates one document per page across all of the department's
// forum ids.
func (f *PagedFetcher) Fetch(ctx context.Context, dept Dept) ([]*goquery.Document, error) {
	var documents []*goquery.Document

	for _, forumID := range dept.ForumIDs {
		pageURL := f.baseURL + "?" + url.Values{"pfForumId": {forumID}}.Encode()

		first, err := f.getDocument(ctx, dept, pageURL)
		if err != nil {
			return nil, err
		}

		totalPages, err := totalPageCount(first)
		if err != nil {
			return nil, err
		}
		if totalPages > maxStaffPages {
			f.logger.Warn("Suspicious page count, capping",
				"dept", dept.Name, "reported", totalPages, "cap", maxStaffPages)
			totalPages = maxStaffPages
		}

		f.logger.Info("Staff listing first page fetched",
			"dept", dept.Name, "forum_id", forumID, "total_pages", totalPages)

		documents = append(documents, first)

		for pageNum := 2; pageNum <= totalPages; pageNum++ {
			doc, err := f.postPage(ctx, dept, pageURL, pageNum)
			if err != nil {
				return nil, err
			}
			documents = append(documents, doc)
		}
	}

	return documents, nil
}

func (f *PagedFetcher) getDocument(ctx context.Context, dept Dept, pageURL string) (*goquery.Document, error) {
	var doc *goquery.Document

	err := f.policy.Do(ctx, "staff_page_"+dept.Name, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
		if err != nil {
			return apperror.Wrap(apperror.ErrFetchTransport, err)
		}

		fetched, err := f.doRequest(req, dept, pageURL)
		if err != nil {
			return err
		}
		doc = fetched
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (f *PagedFetcher) postPage(ctx context.Context, dept Dept, pageURL string, pageNum int) (*goquery.Document, error) {
	var doc *goquery.Document

	err := f.policy.Do(ctx, fmt.Sprintf("staff_page_%s_p%d", dept.Name, pageNum), func() error {
		form := url.Values{"pageNum": {strconv.Itoa(pageNum)}}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, pageURL, strings.NewReader(form.Encode()))
		if err != nil {
			return apperror.Wrap(apperror.ErrFetchTransport, err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		fetched, err := f.doRequest(req, dept, pageURL)
		if err != nil {
			return err
		}
		doc = fetched
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (f *PagedFetcher) doRequest(req *http.Request, dept Dept, pageURL string) (*goquery.Document, error) {
	startTime := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Warn("Staff page request failed",
			"dept", dept.Name,
			"url", pageURL,
			"duration_ms", time.Since(startTime).Milliseconds(),
			"error", err)
		return nil, apperror.Wrap(apperror.ErrFetchTransport, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			f.logger.Warn("Failed to close response body", "error", closeErr)
		}
	}()

	f.logger.Info("Staff page request completed",
		"dept", dept.Name,
		"method", req.Method,
		"status_code", resp.StatusCode,
		"duration_ms", time.Since(startTime).Milliseconds())

	if resp.StatusCode != http.StatusOK {
		return nil, apperror.New(apperror.ErrFetchTransport, fmt.Sprintf("HTTP %d", resp.StatusCode))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, apperror.Wrap(apperror.ErrScrapeBadDocument, err)
	}
	return doc, nil
}

// totalPageCount reads the hidden page-count input the listing embeds.
func totalPageCount(doc *goquery.Document) (int, error) {
	value, exists := doc.Find("input#totalPageCount").First().Attr("value")
	if !exists {
		return 0, apperror.New(apperror.ErrScrapeNoPageCount, "input#totalPageCount missing")
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 1 {
		return 0, apperror.New(apperror.ErrScrapeNoPageCount, fmt.Sprintf("unparseable page count %q", value))
	}
	return n, nil
}

// SinglePageFetcher handles departments whose staff listing is one direct
// page (the detail-list and real-estate layouts).
type SinglePageFetcher struct {
	client *http.Client
	logger *slog.Logger
	policy retrier.Policy
}

// NewSinglePageFetcher creates the fetcher for direct-page departments.
func NewSinglePageFetcher(client *http.Client, policy retrier.Policy, logger *slog.Logger) *SinglePageFetcher {
	return &SinglePageFetcher{client: client, logger: logger, policy: policy}
}

// Support claims departments with a direct page URL.
func (f *SinglePageFetcher) Support(dept Dept) bool {
	return dept.Layout == LayoutDetailList || dept.Layout == LayoutRealEstate
}

// Fetch retrieves the single listing page.
func (f *SinglePageFetcher) Fetch(ctx context.Context, dept Dept) ([]*goquery.Document, error) {
	var doc *goquery.Document

	err := f.policy.Do(ctx, "staff_page_"+dept.Name, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, dept.PageURL, http.NoBody)
		if err != nil {
			return apperror.Wrap(apperror.ErrFetchTransport, err)
		}

		startTime := time.Now()
		resp, err := f.client.Do(req)
		if err != nil {
			f.logger.Warn("Staff page request failed",
				"dept", dept.Name,
				"url", dept.PageURL,
				"duration_ms", time.Since(startTime).Milliseconds(),
				"error", err)
			return apperror.Wrap(apperror.ErrFetchTransport, err)
		}
		defer func() {
			if closeErr := resp.Body.Close(); closeErr != nil {
				f.logger.Warn("Failed to close response body", "error", closeErr)
			}
		}()

		f.logger.Info("Staff page request completed",
			"dept", dept.Name,
			"status_code", resp.StatusCode,
			"duration_ms", time.Since(startTime).Milliseconds())

		if resp.StatusCode != http.StatusOK {
			return apperror.New(apperror.ErrFetchTransport, fmt.Sprintf("HTTP %d", resp.StatusCode))
		}

		fetched, err := goquery.NewDocumentFromReader(resp.Body)
		if err != nil {
			return apperror.Wrap(apperror.ErrScrapeBadDocument, err)
		}
		doc = fetched
		return nil
	})
	if err != nil {
		return nil, err
	}
	return []*goquery.Document{doc}, nil
}
