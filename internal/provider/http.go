package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/varoOP/niterudb/internal/domain"
)

// newHTTPClient returns the client adapters share. Per-call deadlines come
// from the caller's context; the client timeout is only a backstop.
func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

// statusError reports a non-2xx response.
type statusError struct {
	code int
	url  string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status code %d from %s", e.code, e.url)
}

// isStatus reports whether err carries a response with the given status code.
func isStatus(err error, code int) bool {
	var se *statusError
	return errors.As(err, &se) && se.code == code
}

// getJSON fetches url and decodes the JSON body into out.
func getJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return doJSON(client, req, out)
}

// postJSON posts body as JSON to url and decodes the JSON response into out.
func postJSON(ctx context.Context, client *http.Client, url string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "failed to marshal request body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return doJSON(client, req, out)
}

func doJSON(client *http.Client, req *http.Request, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &statusError{code: resp.StatusCode, url: req.URL.String()}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrap(err, "failed to unmarshal response")
	}
	return nil
}

// parseFuzzyDate parses "2011", "2011-04" or "2011-04-06" into a FuzzyDate.
// Anything unparseable is an unknown date.
func parseFuzzyDate(s string) domain.FuzzyDate {
	if s == "" {
		return domain.FuzzyDate{}
	}
	// Some sources append a time component.
	if i := strings.IndexByte(s, 'T'); i > 0 {
		s = s[:i]
	}

	var d domain.FuzzyDate
	parts := strings.SplitN(s, "-", 3)
	if y, err := strconv.Atoi(parts[0]); err == nil {
		d.Year = y
	}
	if len(parts) > 1 {
		if m, err := strconv.Atoi(parts[1]); err == nil {
			d.Month = m
		}
	}
	if len(parts) > 2 {
		if day, err := strconv.Atoi(parts[2]); err == nil {
			d.Day = day
		}
	}
	return d
}
