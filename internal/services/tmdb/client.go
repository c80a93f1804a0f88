package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/moviezhub/moviezhub/internal/config"
	"github.com/moviezhub/moviezhub/internal/models"
)

const (
	defaultBaseURL = "https://api.themoviedb.org/3"
	imageBaseURL   = "https://image.tmdb.org/t/p/w500"

	requestTimeout = 5 * time.Second
)

// ErrNotFound is returned when the search yields no results for a title
var ErrNotFound = errors.New("no TMDB match found")

// Client handles communication with the TMDB API
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a new TMDB API client
func NewClient(cfg *config.Config, logger *logrus.Logger) (*Client, error) {
	if cfg.TMDBAPIKey == "" {
		return nil, fmt.Errorf("TMDB API key is required")
	}

	return &Client{
		apiKey:     cfg.TMDBAPIKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logger,
	}, nil
}

type searchResponse struct {
	Results []struct {
		ID int64 `json:"id"`
	} `json:"results"`
}

type detailResponse struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`      // Movies
	Name         string  `json:"name"`       // TV
	PosterPath   string  `json:"poster_path"`
	Overview     string  `json:"overview"`
	ReleaseDate  string  `json:"release_date"`   // Movies
	FirstAirDate string  `json:"first_air_date"` // TV
	VoteAverage  float64 `json:"vote_average"`
	Genres       []struct {
		Name string `json:"name"`
	} `json:"genres"`
}

// Resolve looks up the canonical record for a parsed title. It performs a
// search scoped by kind (and, for movies, by year when present), trusts the
// provider's first result, then fetches its details. ErrNotFound is
// returned when the search comes back empty; network failures are wrapped
// and not retried.
func (c *Client) Resolve(ctx context.Context, title string, kind models.ContentKind, year string) (*models.CanonicalMeta, error) {
	searchType := "movie"
	if kind == models.KindSeries {
		searchType = "tv"
	}

	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("query", title)
	if year != "" && searchType == "movie" {
		params.Set("primary_release_year", year)
	}

	var search searchResponse
	if err := c.doRequest(ctx, "/search/"+searchType+"?"+params.Encode(), &search); err != nil {
		return nil, fmt.Errorf("TMDB search failed: %w", err)
	}
	if len(search.Results) == 0 {
		return nil, ErrNotFound
	}

	tmdbID := search.Results[0].ID
	c.logger.WithFields(logrus.Fields{
		"title":   title,
		"tmdb_id": tmdbID,
	}).Debug("TMDB search matched")

	detailParams := url.Values{}
	detailParams.Set("api_key", c.apiKey)

	var detail detailResponse
	path := "/" + searchType + "/" + strconv.FormatInt(tmdbID, 10) + "?" + detailParams.Encode()
	if err := c.doRequest(ctx, path, &detail); err != nil {
		return nil, fmt.Errorf("TMDB detail lookup failed: %w", err)
	}

	meta := &models.CanonicalMeta{
		TMDBID:      detail.ID,
		Title:       detail.Title,
		Overview:    detail.Overview,
		ReleaseDate: detail.ReleaseDate,
		Rating:      detail.VoteAverage,
	}
	if searchType == "tv" {
		meta.Title = detail.Name
		meta.ReleaseDate = detail.FirstAirDate
	}
	if detail.PosterPath != "" {
		meta.PosterURL = imageBaseURL + detail.PosterPath
	}
	for _, g := range detail.Genres {
		meta.Genres = append(meta.Genres, g.Name)
	}

	return meta, nil
}

// doRequest performs a GET against the TMDB API and decodes the JSON response
func (c *Client) doRequest(ctx context.Context, path string, result interface{}) error {
	fullURL := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("API request failed with status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
