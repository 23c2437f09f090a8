package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// maxResponseBytes caps how much of a provider response is read into memory.
const maxResponseBytes = 8 << 20

// maxErrorBody caps how much of a non-2xx response body ends up in an error.
const maxErrorBody = 512

// postJSON sends body as JSON to endpoint and returns the raw response payload.
// A non-2xx status is reported as an error carrying the (truncated) body.
// Transport errors omit the endpoint, which may carry credentials.
func postJSON(ctx context.Context, client *http.Client, endpoint string, header http.Header, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := string(data)
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, msg)
	}
	return data, nil
}

// decodeVector extracts the embedding from a provider payload.
func decodeVector(payload []byte) ([]float64, error) {
	vec, ok := FindNumericArray(payload)
	if !ok {
		return nil, ErrNoVector
	}
	return vec, nil
}
