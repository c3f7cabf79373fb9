// Package api provides the interface for fuel price API sources.
package api

import (
	"context"

	"golang.org/x/oauth2"

	"github.com/andygrunwald/fuel-price-ingester/internal/config"
)

// Source defines the interface of an upstream fuel price API.
type Source interface {
	// Name returns the source identifier.
	Name() string

	// FetchToken exchanges the API key and secret for a short-lived access token.
	FetchToken(ctx context.Context, cfg config.FuelAPIConfig) (*oauth2.Token, error)

	// FetchNewPrices returns the raw JSON payload of the new prices endpoint.
	FetchNewPrices(ctx context.Context, token *oauth2.Token, cfg config.FuelAPIConfig) ([]byte, error)
}
