package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/mesh-intelligence/gridbook/pkg/types"
)

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 8 << 20

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, types.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, types.ErrInvalidArgument):
		return http.StatusBadRequest, "bad_request"
	}
	return http.StatusInternalServerError, "internal_server_error"
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	var fe *types.FieldError
	switch {
	case errors.As(err, &fe):
		msg = fe.Error()
	case status == http.StatusInternalServerError:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = "internal server error"
	}
	writeJSON(w, status, errorBody{Error: code, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// readBody reads a JSON body, validates it against schema and decodes it
// into dst. Numbers decode as json.Number so cell values stay exact.
func readBody(w http.ResponseWriter, r *http.Request, schema *gojsonschema.Schema, dst any) error {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		return &types.FieldError{Message: fmt.Sprintf("read body: %v", err)}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		data = []byte("{}")
	}
	if err := validate(schema, data); err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return &types.FieldError{Message: fmt.Sprintf("invalid JSON body: %v", err)}
	}
	return nil
}

// optionalInt parses a query parameter. Absent or empty yields nil.
func optionalInt(r *http.Request, name string) (*int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, types.NewFieldError(name, "must be an integer")
	}
	return &v, nil
}

// optionalID parses a sheet id query parameter.
func optionalID(r *http.Request, name string) (*int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 1 {
		return nil, types.NewFieldError(name, "must be a positive integer")
	}
	return &v, nil
}

// toInt converts a decoded JSON value to an int. Integral json.Numbers,
// whole floats and numeric strings convert; anything else fails.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
		if f, err := n.Float64(); err == nil {
			return floatToInt(f)
		}
	case float64:
		return floatToInt(n)
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i, true
		}
	}
	return 0, false
}

// floatToInt accepts whole floats inside the int range.
func floatToInt(f float64) (int, bool) {
	if math.IsNaN(f) || f < float64(math.MinInt) || f >= -float64(math.MinInt) || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}
