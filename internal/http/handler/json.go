package handler

import (
	"encoding/json"
	"net/http"
)

// decodeJSON parses the request body strictly; any syntax error or
// unknown field is the caller's problem, not ours.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
