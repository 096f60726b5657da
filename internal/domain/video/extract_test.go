package video

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestExtractVideoURL(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{
			name:    "nested generateVideoResponse shape",
			payload: `{"generateVideoResponse":{"generatedSamples":[{"video":{"uri":"https://example.com/a.mp4"}}]}}`,
			want:    "https://example.com/a.mp4",
		},
		{
			name:    "predictions shape",
			payload: `{"predictions":[{"videoUri":"https://example.com/b.mp4"}]}`,
			want:    "https://example.com/b.mp4",
		},
		{
			name:    "flat videoUri shape",
			payload: `{"videoUri":"https://example.com/c.mp4"}`,
			want:    "https://example.com/c.mp4",
		},
		{
			name:    "flat uri shape",
			payload: `{"uri":"https://example.com/d.mp4"}`,
			want:    "https://example.com/d.mp4",
		},
		{
			name: "nested shape wins over flat",
			payload: `{"generateVideoResponse":{"generatedSamples":[{"video":{"uri":"https://example.com/nested.mp4"}}]},` +
				`"uri":"https://example.com/flat.mp4"}`,
			want: "https://example.com/nested.mp4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var result OperationResult
			if err := json.Unmarshal([]byte(tt.payload), &result); err != nil {
				t.Fatalf("unmarshal payload: %v", err)
			}
			got, err := ExtractVideoURL(&result)
			if err != nil {
				t.Fatalf("ExtractVideoURL() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ExtractVideoURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractVideoURLNoMatch(t *testing.T) {
	var result OperationResult
	if err := json.Unmarshal([]byte(`{"something":"else"}`), &result); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}

	_, err := ExtractVideoURL(&result)
	if !errors.Is(err, ErrNoResultURL) {
		t.Errorf("ExtractVideoURL() error = %v, want ErrNoResultURL", err)
	}
}

func TestExtractVideoURLNilResult(t *testing.T) {
	_, err := ExtractVideoURL(nil)
	if !errors.Is(err, ErrNoResultURL) {
		t.Errorf("ExtractVideoURL(nil) error = %v, want ErrNoResultURL", err)
	}
}

func TestOperationErrorSerializesStructured(t *testing.T) {
	opErr := &OperationError{Code: 13, Message: "internal error", Status: "INTERNAL"}
	serialized := opErr.Error()

	var decoded OperationError
	if err := json.Unmarshal([]byte(serialized), &decoded); err != nil {
		t.Fatalf("error string is not JSON: %v", err)
	}
	if decoded.Code != 13 || decoded.Message != "internal error" || decoded.Status != "INTERNAL" {
		t.Errorf("round-tripped error = %+v", decoded)
	}
}
