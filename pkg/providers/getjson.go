// Package providers holds the HTTP clients of the network backed tools.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-go-golems/wayfinder/pkg/inference/retry"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 512

// GetJSON issues a GET request and decodes the JSON response into out.
//
// Non 200 responses are returned as *retry.StatusError and undecodable bodies
// as *retry.MalformedResponseError so the default retry classifier can tell
// transient failures from fatal ones. Transport errors are returned wrapped.
func GetJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, out interface{}) error {
	return doJSON(ctx, client, http.MethodGet, url, headers, nil, out)
}

// PostJSON posts in as a JSON body and decodes the JSON response into out,
// with the same error mapping as GetJSON.
func PostJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, in interface{}, out interface{}) error {
	b, err := json.Marshal(in)
	if err != nil {
		return errors.Wrap(err, "failed to marshal request")
	}
	return doJSON(ctx, client, http.MethodPost, url, headers, b, out)
}

func doJSON(ctx context.Context, client *http.Client, method string, url string, headers map[string]string, body []byte, out interface{}) error {
	if client == nil {
		client = http.DefaultClient
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return errors.Wrap(err, "could not create request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, url)
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		log.Debug().Int("status", resp.StatusCode).Str("url", url).Msg("upstream returned an error status")
		return &retry.StatusError{StatusCode: resp.StatusCode, URL: url, Body: string(errBody)}
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "reading response of %s", url)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &retry.MalformedResponseError{Err: err}
	}
	return nil
}
