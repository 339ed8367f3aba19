package handlers

import (
	"net/http"

	"github.com/snowtransfer/snowtransfer/internal/rest"
)

// BucketsResponse is the ratelimiter snapshot served at /buckets.
type BucketsResponse struct {
	Global  rest.GlobalLock    `json:"global"`
	Buckets []rest.BucketState `json:"buckets"`
}

// BucketsHandler serves a snapshot of every bucket the limiter knows.
func BucketsHandler(limiter *rest.Ratelimiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buckets := limiter.Buckets()
		if buckets == nil {
			buckets = []rest.BucketState{}
		}
		writeJSON(w, http.StatusOK, BucketsResponse{
			Global:  limiter.GlobalLockState(),
			Buckets: buckets,
		})
	}
}
