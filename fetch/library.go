package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/KU-Stacks/ku-ring-backend-web/apperror"
	"github.com/KU-Stacks/ku-ring-backend-web/retrier"
)

// libraryPageSize matches the upstream default page size.
const libraryPageSize = 20

// LibraryNotice is one bulletin row of the library API response.
type LibraryNotice struct {
	ID          json.Number `json:"id"`
	Title       string      `json:"title"`
	DateCreated string      `json:"dateCreated"`
	LastUpdated string      `json:"lastUpdated"`
}

// libraryResponse mirrors the library API envelope.
type libraryResponse struct {
	Success bool `json:"success"`
	Data    struct {
		TotalCount int             `json:"totalCount"`
		List       []LibraryNotice `json:"list"`
	} `json:"data"`
}

// LibraryClient fetches notices from the library bulletin API. The API is
// unauthenticated and stateless.
type LibraryClient struct {
	client  *http.Client
	logger  *slog.Logger
	policy  retrier.Policy
	baseURL string
}

// NewLibraryClient creates a library notice client.
func NewLibraryClient(client *http.Client, baseURL string, policy retrier.Policy, logger *slog.Logger) *LibraryClient {
	return &LibraryClient{
		client:  client,
		logger:  logger,
		policy:  policy,
		baseURL: baseURL,
	}
}

// Notices fetches the latest library bulletin page.
func (c *LibraryClient) Notices(ctx context.Context) ([]LibraryNotice, error) {
	var notices []LibraryNotice

	err := c.policy.Do(ctx, "library_notices", func() error {
		params := url.Values{}
		params.Set("offset", "0")
		params.Set("max", strconv.Itoa(libraryPageSize))

		reqURL := c.baseURL + "?" + params.Encode()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return apperror.Wrap(apperror.ErrFetchTransport, err)
		}
		req.Header.Set("Accept", "application/json")

		startTime := time.Now()
		resp, err := c.client.Do(req)
		if err != nil {
			c.logger.Warn("Library request failed",
				"url", reqURL,
				"duration_ms", time.Since(startTime).Milliseconds(),
				"error", err)
			return apperror.Wrap(apperror.ErrFetchTransport, err)
		}
		defer func() {
			if closeErr := resp.Body.Close(); closeErr != nil {
				c.logger.Warn("Failed to close response body", "error", closeErr)
			}
		}()

		c.logger.Info("Library request completed",
			"status_code", resp.StatusCode,
			"duration_ms", time.Since(startTime).Milliseconds())

		if resp.StatusCode != http.StatusOK {
			return apperror.New(apperror.ErrFetchTransport, fmt.Sprintf("HTTP %d", resp.StatusCode))
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return apperror.Wrap(apperror.ErrFetchTransport, err)
		}

		var decoded libraryResponse
		if err := json.Unmarshal(body, &decoded); err != nil {
			return apperror.Wrap(apperror.ErrFetchTransport, err)
		}
		if !decoded.Success {
			return apperror.New(apperror.ErrFetchTransport, "library API reported failure")
		}

		c.logger.Info("Library notices fetched",
			"count", len(decoded.Data.List),
			"total_count", decoded.Data.TotalCount)

		notices = decoded.Data.List
		return nil
	})
	if err != nil {
		return nil, err
	}
	return notices, nil
}
