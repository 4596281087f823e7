package types

// Record is a single price observation for a trading pair.
// A later write for the same (Pair, Timestamp) replaces the prior one.
type Record struct {
	Pair         string   `json:"pair"`
	Timestamp    int64    `json:"timestamp"` // epoch milliseconds
	AveragePrice float64  `json:"averagePrice"`
	Exchanges    []string `json:"exchanges"`
}

// LatestRequest asks for the most recent record of each pair.
type LatestRequest struct {
	Pairs []string `json:"pairs"`
}

// HistoryRequest asks for all records of each pair within [From, To].
type HistoryRequest struct {
	Pairs []string `json:"pairs"`
	From  int64    `json:"from"`
	To    int64    `json:"to"`
}

// CollectResponse acknowledges an on-demand collection run.
type CollectResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ErrorResponse is the payload returned for any handler-level failure.
type ErrorResponse struct {
	Error string `json:"error"`
}
