// Package notice converts source-specific records into the canonical
// Notice shape and decides which fetched notices are genuinely new.
package notice

import (
	"github.com/KU-Stacks/ku-ring-backend-web/apperror"
	"github.com/KU-Stacks/ku-ring-backend-web/fetch"
	"github.com/KU-Stacks/ku-ring-backend-web/pkg/kuring"
)

// FromKuis maps one KUIS row into a Notice. KUIS carries no update date.
func FromKuis(raw fetch.KuisNotice, category string) (kuring.Notice, error) {
	if raw.ArticleID == "" {
		return kuring.Notice{}, apperror.New(apperror.ErrNormalization, "kuis notice missing articleId")
	}
	if raw.Subject == "" {
		return kuring.Notice{}, apperror.New(apperror.ErrNormalization, "kuis notice missing subject")
	}
	if raw.PostedDate == "" {
		return kuring.Notice{}, apperror.New(apperror.ErrNormalization, "kuis notice missing postedDt")
	}

	return kuring.Notice{
		ArticleID:  raw.ArticleID,
		PostedDate: raw.PostedDate,
		Subject:    raw.Subject,
		Category:   category,
	}, nil
}

// FromLibrary maps one library bulletin into a Notice.
func FromLibrary(raw fetch.LibraryNotice, category string) (kuring.Notice, error) {
	if raw.ID.String() == "" {
		return kuring.Notice{}, apperror.New(apperror.ErrNormalization, "library notice missing id")
	}
	if raw.Title == "" {
		return kuring.Notice{}, apperror.New(apperror.ErrNormalization, "library notice missing title")
	}
	if raw.DateCreated == "" {
		return kuring.Notice{}, apperror.New(apperror.ErrNormalization, "library notice missing dateCreated")
	}

	return kuring.Notice{
		ArticleID:   raw.ID.String(),
		PostedDate:  raw.DateCreated,
		UpdatedDate: raw.LastUpdated,
		Subject:     raw.Title,
		Category:    category,
	}, nil
}
