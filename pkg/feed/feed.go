package feed

import "context"

// Observation is one price observation delivered by the external market
// data provider.
type Observation struct {
	Pair      string   `json:"pair"`
	Price     float64  `json:"price"`
	Exchanges []string `json:"exchanges"`
}

// Client is the contract for the external market data provider: fetch the
// current top instruments with a representative price each. The provider's
// real endpoint layout, rate limits and pagination live behind this
// interface.
type Client interface {
	FetchObservations(ctx context.Context, count int) ([]Observation, error)
}
