package video

import (
	"encoding/json"
	"errors"
	"fmt"
)

// OperationStatus is the decoded state of a long-running generation
// operation as reported by the upstream service.
type OperationStatus struct {
	Name     string           `json:"name"`
	Done     bool             `json:"done"`
	Error    *OperationError  `json:"error,omitempty"`
	Response *OperationResult `json:"response,omitempty"`
}

// OperationError is the structured terminal failure payload.
type OperationError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

func (e *OperationError) Error() string {
	raw, err := json.Marshal(e)
	if err != nil {
		return e.Message
	}
	return string(raw)
}

// OperationResult covers the known shapes the upstream success payload can
// take. The service has shipped several variants of where the media URI
// lives; all are decoded side by side and resolved by ExtractVideoURL.
type OperationResult struct {
	GenerateVideoResponse *struct {
		GeneratedSamples []struct {
			Video struct {
				URI string `json:"uri"`
			} `json:"video"`
		} `json:"generatedSamples"`
	} `json:"generateVideoResponse,omitempty"`
	Predictions []struct {
		VideoURI string `json:"videoUri"`
	} `json:"predictions,omitempty"`
	VideoURI string `json:"videoUri,omitempty"`
	URI      string `json:"uri,omitempty"`
}

// ErrNoResultURL is returned when a finished operation carries none of the
// known result URL shapes. Callers must never substitute a placeholder.
var ErrNoResultURL = errors.New("operation completed but no result URL was returned")

// resultExtractors are tried in priority order; first non-empty match wins.
// This list is the single extraction implementation shared by the
// synchronous generation path and the reconciliation sweep.
var resultExtractors = []func(*OperationResult) string{
	func(r *OperationResult) string {
		if r.GenerateVideoResponse != nil && len(r.GenerateVideoResponse.GeneratedSamples) > 0 {
			return r.GenerateVideoResponse.GeneratedSamples[0].Video.URI
		}
		return ""
	},
	func(r *OperationResult) string {
		if len(r.Predictions) > 0 {
			return r.Predictions[0].VideoURI
		}
		return ""
	},
	func(r *OperationResult) string { return r.VideoURI },
	func(r *OperationResult) string { return r.URI },
}

// ExtractVideoURL resolves the media URL from a finished operation payload,
// trying each known response shape in order.
func ExtractVideoURL(result *OperationResult) (string, error) {
	if result == nil {
		return "", fmt.Errorf("empty operation response: %w", ErrNoResultURL)
	}
	for _, extract := range resultExtractors {
		if url := extract(result); url != "" {
			return url, nil
		}
	}
	return "", ErrNoResultURL
}
