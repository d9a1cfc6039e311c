package httpx

import (
	"errors"
	"net/http"
)

// ErrUnavailable marks failures answered before a store holds its first
// snapshot. Domain not-loaded sentinels wrap it so transport code can map
// them without importing the domain packages.
var ErrUnavailable = errors.New("not ready")

// RespondError maps domain errors to HTTP responses using RFC7807. Handlers
// translate their own typed errors (unknown role, unknown group, absent
// action) before calling this; anything unrecognized is an internal error.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnavailable):
		Problem(w, http.StatusServiceUnavailable, "Service Unavailable", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
