package handlers

import (
	"net/http"

	apperrors "github.com/snowtransfer/snowtransfer/internal/errors"
)

// errorResponder writes dispatcher and input errors as envelopes. The server
// swaps it for one that also counts the error.
type errorResponder func(http.ResponseWriter, *http.Request, error)

func respondWithEnvelope(w http.ResponseWriter, r *http.Request, err error) {
	_, _ = apperrors.RespondWithError(w, r, err)
}

var httpErrorResponder errorResponder = respondWithEnvelope

// SetHTTPErrorResponder installs responder for proxy and health errors; nil
// restores the plain envelope writer.
func SetHTTPErrorResponder(responder func(http.ResponseWriter, *http.Request, error)) {
	if responder == nil {
		httpErrorResponder = respondWithEnvelope
		return
	}
	httpErrorResponder = responder
}

// ResetHTTPErrorResponder restores the plain envelope writer.
func ResetHTTPErrorResponder() {
	SetHTTPErrorResponder(nil)
}

func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	httpErrorResponder(w, r, err)
}
