package apierrors

import (
	"encoding/json"
	"net/http"
)

func writeJSON(w http.ResponseWriter, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}

	_, err = w.Write(body)

	return err
}

// HandleError is the top-level handler every HTTP route should funnel its
// error return through (mirrors the teacher's errors.HandleError).
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if apiErr, ok := As(err); ok {
		apiErr.Write(w, r)
		return
	}

	InconsistentState(err.Error()).Write(w, r)
}
