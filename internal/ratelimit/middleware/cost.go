package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
)

// CostFunc returns how many units a request consumes. It must leave the
// request body readable for the next handler.
type CostFunc func(r *http.Request) int

// UnitCost charges one unit per request.
func UnitCost(*http.Request) int {
	return 1
}

// BatchCost charges one unit per entry of the "numbers" array, reading at most
// maxBytes of the body. Bodies it cannot parse cost one unit and are left for
// the handler to reject.
func BatchCost(maxBytes int64) CostFunc {
	return func(r *http.Request) int {
		if r.Body == nil || r.Body == http.NoBody {
			return 1
		}
		head, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
		r.Body = struct {
			io.Reader
			io.Closer
		}{io.MultiReader(bytes.NewReader(head), r.Body), r.Body}
		if err != nil {
			return 1
		}

		var payload struct {
			Numbers []json.RawMessage `json:"numbers"`
		}
		if err := json.Unmarshal(head, &payload); err != nil || len(payload.Numbers) == 0 {
			return 1
		}
		return len(payload.Numbers)
	}
}
