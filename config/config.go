// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing, the process exits.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration for the notice service.
type Config struct {
	Port         string
	DatabasePath string // sqlite file, ":memory:" for tests
	DeployEnv    string // "prod" or "dev"; non-prod suffixes push topics

	// Upstream endpoints.
	LoginURL       string
	APISkeletonURL string
	KuisNoticeURL  string
	LibraryURL     string
	StaffBaseURL   string

	// KUIS login identity.
	KuisID       string
	KuisPassword string

	// Push payload link bases.
	NormalBaseURL  string
	LibraryBaseURL string

	HTTPTimeout          time.Duration
	FetchIntervalMinutes int
	ScrapeIntervalHours  int
}

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	required := func(key string) (string, error) {
		v := os.Getenv(key)
		if v == "" {
			return "", fmt.Errorf("%s is required", key)
		}
		return v, nil
	}

	loginURL, err := required("KUIS_LOGIN_URL")
	if err != nil {
		return nil, err
	}
	skeletonURL, err := required("KUIS_API_SKELETON_URL")
	if err != nil {
		return nil, err
	}
	noticeURL, err := required("KUIS_NOTICE_URL")
	if err != nil {
		return nil, err
	}
	kuisID, err := required("KUIS_ID")
	if err != nil {
		return nil, err
	}
	kuisPassword, err := required("KUIS_PASSWORD")
	if err != nil {
		return nil, err
	}

	deployEnv := os.Getenv("DEPLOY_ENV")
	if deployEnv == "" {
		deployEnv = "dev"
	}
	if deployEnv != "prod" && deployEnv != "dev" {
		return nil, fmt.Errorf("DEPLOY_ENV must be \"prod\" or \"dev\", got %q", deployEnv)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./kuring.db"
	}

	timeoutSec := 30
	if s := os.Getenv("HTTP_TIMEOUT_SECONDS"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			return nil, fmt.Errorf("HTTP_TIMEOUT_SECONDS must be a positive integer, got %q", s)
		}
		timeoutSec = v
	}

	fetchInterval := 10
	if s := os.Getenv("FETCH_INTERVAL_MINUTES"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			return nil, fmt.Errorf("FETCH_INTERVAL_MINUTES must be a positive integer, got %q", s)
		}
		fetchInterval = v
	}

	scrapeInterval := 24
	if s := os.Getenv("SCRAPE_INTERVAL_HOURS"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			return nil, fmt.Errorf("SCRAPE_INTERVAL_HOURS must be a positive integer, got %q", s)
		}
		scrapeInterval = v
	}

	libraryURL := os.Getenv("LIBRARY_NOTICE_URL")
	if libraryURL == "" {
		libraryURL = "https://library.konkuk.ac.kr/pyxis-api/1/bulletin-boards/1/bulletins"
	}

	staffBaseURL := os.Getenv("STAFF_BASE_URL")
	if staffBaseURL == "" {
		staffBaseURL = "https://www.konkuk.ac.kr/jsp/searchPfInfo.jsp"
	}

	normalBaseURL := os.Getenv("NOTICE_NORMAL_BASE_URL")
	if normalBaseURL == "" {
		normalBaseURL = "https://www.konkuk.ac.kr/do/MessageBoard/ArticleRead.do"
	}

	libraryBaseURL := os.Getenv("NOTICE_LIBRARY_BASE_URL")
	if libraryBaseURL == "" {
		libraryBaseURL = "https://library.konkuk.ac.kr/library-guide/bulletins/notice"
	}

	return &Config{
		Port:                 port,
		DatabasePath:         dbPath,
		DeployEnv:            deployEnv,
		LoginURL:             loginURL,
		APISkeletonURL:       skeletonURL,
		KuisNoticeURL:        noticeURL,
		LibraryURL:           libraryURL,
		StaffBaseURL:         staffBaseURL,
		KuisID:               kuisID,
		KuisPassword:         kuisPassword,
		NormalBaseURL:        normalBaseURL,
		LibraryBaseURL:       libraryBaseURL,
		HTTPTimeout:          time.Duration(timeoutSec) * time.Second,
		FetchIntervalMinutes: fetchInterval,
		ScrapeIntervalHours:  scrapeInterval,
	}, nil
}
