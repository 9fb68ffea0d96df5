// Package restcountries resolves country capitals through the REST Countries API.
package restcountries

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/couchcryptid/case-enrichment-etl/internal/adapter/remote"
	"github.com/couchcryptid/case-enrichment-etl/internal/cache"
	"github.com/tidwall/gjson"
)

// Provider names the client in cache keys and metrics.
const Provider = "restcountries"

var errNoCapital = errors.New("no capital listed")

// Client implements domain.CapitalResolver.
type Client struct {
	baseURL string
	http    *remote.Client
	fetcher *cache.Fetcher
	logger  *slog.Logger
}

// NewClient creates a REST Countries client rooted at baseURL (for example
// https://restcountries.com/v3.1).
func NewClient(baseURL string, http *remote.Client, fetcher *cache.Fetcher, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    http,
		fetcher: fetcher,
		logger:  logger,
	}
}

// Capital returns the first capital of the country whose full name matches.
func (c *Client) Capital(ctx context.Context, country string) (string, error) {
	reqURL := fmt.Sprintf("%s/name/%s?fullText=true&fields=name,capital", c.baseURL, url.PathEscape(country))

	doc, err := c.fetcher.Fetch(ctx, Provider, cache.RequestKey(Provider, reqURL), func(ctx context.Context) ([]byte, error) {
		body, err := c.http.GetJSON(ctx, reqURL)
		if err != nil {
			return nil, err
		}
		if capitalOf(body) == "" {
			return nil, errNoCapital
		}
		return body, nil
	})
	if err != nil {
		return "", err
	}

	capital := capitalOf(doc)
	if capital == "" {
		return "", fmt.Errorf("%s: %w", country, errNoCapital)
	}
	if n := gjson.GetBytes(doc, "0.capital.#").Int(); n > 1 {
		c.logger.Debug("country lists several capitals, using the first",
			"country", country,
			"capitals", n,
			"capital", capital,
		)
	}
	return capital, nil
}

func capitalOf(doc []byte) string {
	return gjson.GetBytes(doc, "0.capital.0").String()
}
