package handler

import (
	"encoding/json"
	"net/http"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/amd-eai/airm/internal/apierrors"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.FromContext(r.Context()).Error(err, "encode response body")
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apierrors.Validation("malformed request body")
	}

	return nil
}

// writeError renders err as an HTTP response, mapping it to an
// apierrors.Error first if it isn't one already (spec §7 "handlers never
// swallow unknown exceptions").
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if apiErr, ok := apierrors.As(err); ok {
		apiErr.Write(w, r)
		return
	}

	apierrors.InconsistentState(err.Error()).Write(w, r)
}
