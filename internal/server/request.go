package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/spf13/cast"
)

var errInvalidRequest = errors.New("invalid request")

// convertRequest is the decoded body of a convert call. Optional fields
// left out of the body are nil and fall back to the stored defaults.
type convertRequest struct {
	HTML            string
	PostID          int
	ColumnDetection *bool
	PersistMedia    bool
	ScoreThreshold  *float64
}

// decodeConvertRequest reads a JSON object. Values are coerced the way form
// input usually arrives: numbers may be strings and booleans may be 1/0,
// "yes"/"no" or "on"/"off".
func decodeConvertRequest(r io.Reader) (convertRequest, error) {
	var raw map[string]any
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return convertRequest{}, fmt.Errorf("%w: %w", errInvalidRequest, err)
	}

	var req convertRequest
	var err error

	if v, ok := raw["html"]; ok && v != nil {
		if req.HTML, err = cast.ToStringE(v); err != nil {
			return req, fieldError("html", err)
		}
	}

	if v, ok := raw["post_id"]; ok && v != nil {
		if req.PostID, err = cast.ToIntE(v); err != nil {
			return req, fieldError("post_id", err)
		}
		if req.PostID < 0 {
			req.PostID = 0
		}
	}

	if v, ok := raw["column_detection"]; ok && v != nil {
		b, err := looseBool(v)
		if err != nil {
			return req, fieldError("column_detection", err)
		}
		req.ColumnDetection = &b
	}

	if v, ok := raw["persist_media"]; ok && v != nil {
		if req.PersistMedia, err = looseBool(v); err != nil {
			return req, fieldError("persist_media", err)
		}
	}

	if v, ok := raw["score_threshold"]; ok && v != nil {
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return req, fieldError("score_threshold", err)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return req, fieldError("score_threshold", fmt.Errorf("%v is not a finite number", f))
		}
		req.ScoreThreshold = &f
	}

	return req, nil
}

// looseBool accepts JSON booleans, numbers and the usual truthy strings.
// Any other string is false.
func looseBool(v any) (bool, error) {
	switch b := v.(type) {
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "1", "true", "yes", "on":
			return true, nil
		default:
			return false, nil
		}
	case float64:
		return b != 0, nil
	default:
		return cast.ToBoolE(v)
	}
}

func fieldError(field string, err error) error {
	return fmt.Errorf("%w: field %s: %w", errInvalidRequest, field, err)
}
