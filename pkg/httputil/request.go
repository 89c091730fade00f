package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// maxRequestBody caps API request bodies at 1 MiB
const maxRequestBody = 1 << 20

// DecodeJSON decodes a JSON request body into dst. Unknown fields are
// rejected so that client typos surface as 400s instead of silent drops.
func DecodeJSON(r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxRequestBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return E(http.StatusBadRequest, CodeMalformed, fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}

// RequireField returns a malformed error when value is empty
func RequireField(name, value string) error {
	if value == "" {
		return E(http.StatusBadRequest, CodeMalformed, fmt.Sprintf("missing required field %q", name))
	}
	return nil
}
