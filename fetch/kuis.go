// Package fetch holds the notice API clients: the session-authenticated
// KUIS API and the unauthenticated library API. Each client returns its
// source's raw record shape; normalization happens downstream.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/KU-Stacks/ku-ring-backend-web/apperror"
	"github.com/KU-Stacks/ku-ring-backend-web/auth"
	"github.com/KU-Stacks/ku-ring-backend-web/pkg/kuring"
	"github.com/KU-Stacks/ku-ring-backend-web/retrier"
)

// KuisNotice is one row of the KUIS notice list response.
type KuisNotice struct {
	ArticleID  string `json:"articleId"`
	PostedDate string `json:"postedDt"`
	Subject    string `json:"subject"`
}

// kuisResponse mirrors the KUIS envelope; rows live under DS_LIST.
type kuisResponse struct {
	List []KuisNotice `json:"DS_LIST"`
}

// errMarker appears in KUIS bodies when the session was not accepted.
const errMarker = "ERRMSGINFO"

// KuisClient fetches notices for one category from the KUIS API.
type KuisClient struct {
	client    *http.Client
	sessions  *auth.Manager
	logger    *slog.Logger
	policy    retrier.Policy
	noticeURL string
}

// NewKuisClient creates a KUIS notice client sharing the given session manager.
func NewKuisClient(client *http.Client, sessions *auth.Manager, noticeURL string, policy retrier.Policy, logger *slog.Logger) *KuisClient {
	return &KuisClient{
		client:    client,
		sessions:  sessions,
		logger:    logger,
		policy:    policy,
		noticeURL: noticeURL,
	}
}

// Notices fetches the current notice list for a category. On an
// auth-rejected response it forces a credential renewal and retries once
// before surfacing a permanent error.
func (c *KuisClient) Notices(ctx context.Context, category kuring.Category) ([]KuisNotice, error) {
	var notices []KuisNotice

	err := c.policy.Do(ctx, "kuis_notices_"+category.Name, func() error {
		rows, rejected, err := c.fetchOnce(ctx, category)
		if err != nil {
			return err
		}
		if rejected {
			c.logger.Warn("KUIS rejected session, renewing credential", "category", category.Name)
			c.sessions.ForceRenew()

			rows, rejected, err = c.fetchOnce(ctx, category)
			if err != nil {
				return err
			}
			if rejected {
				return apperror.New(apperror.ErrFetchAuthRejected, category.Name)
			}
		}

		notices = rows
		return nil
	})
	if err != nil {
		return nil, err
	}
	return notices, nil
}

func (c *KuisClient) fetchOnce(ctx context.Context, category kuring.Category) (rows []KuisNotice, rejected bool, err error) {
	session, err := c.sessions.Session(ctx)
	if err != nil {
		return nil, false, err
	}

	body := buildNoticeBody(category)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.noticeURL, strings.NewReader(body))
	if err != nil {
		return nil, false, apperror.Wrap(apperror.ErrFetchTransport, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("Cookie", session)

	startTime := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("KUIS notice request failed",
			"category", category.Name,
			"duration_ms", time.Since(startTime).Milliseconds(),
			"error", err)
		return nil, false, apperror.Wrap(apperror.ErrFetchTransport, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("Failed to close response body", "error", closeErr)
		}
	}()

	c.logger.Info("KUIS notice request completed",
		"category", category.Name,
		"status_code", resp.StatusCode,
		"duration_ms", time.Since(startTime).Milliseconds())

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, true, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, apperror.New(apperror.ErrFetchTransport, fmt.Sprintf("HTTP %d", resp.StatusCode))
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, apperror.Wrap(apperror.ErrFetchTransport, err)
	}

	// An expired session comes back as HTTP 200 with an error envelope.
	if strings.Contains(string(respBody), errMarker) {
		return nil, true, nil
	}

	var decoded kuisResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, false, apperror.Wrap(apperror.ErrFetchTransport, err)
	}

	c.logger.Info("KUIS notices fetched", "category", category.Name, "count", len(decoded.List))
	return decoded.List, false, nil
}

// buildNoticeBody builds the category-specific KUIS request body.
func buildNoticeBody(category kuring.Category) string {
	form := url.Values{}
	form.Set("typeCd", category.Code)
	form.Set("pageNum", "1")
	form.Set("pageCnt", "20")
	return form.Encode()
}
