package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// maxResponseBody caps how much of a provider response is kept for error text.
const maxResponseBody = 64 << 10

type response struct {
	status int
	body   []byte
}

// transportError marks a failure to complete the HTTP exchange.
type transportError struct{ err error }

func (e *transportError) Error() string { return e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

// postJSON POSTs payload as JSON and returns status and (capped) body.
// Errors building or completing the request are *transportError with the
// target URL reduced to scheme and host.
func (d *Dispatcher) postJSON(ctx context.Context, target string, payload any) (response, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return response{}, fmt.Errorf("encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(b))
	if err != nil {
		return response{}, &transportError{err: redactURL(err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return response{}, &transportError{err: redactURL(err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return response{status: resp.StatusCode}, &transportError{err: fmt.Errorf("read response: %w", err)}
	}
	return response{status: resp.StatusCode, body: body}, nil
}

// redactURL hides the path and query of the URL carried by a *url.Error.
// Webhook URLs hold their secret in the path.
func redactURL(err error) error {
	var ue *url.Error
	if !errors.As(err, &ue) || ue.URL == "" {
		return err
	}
	safe := "<redacted>"
	if u, perr := url.Parse(ue.URL); perr == nil && u.Host != "" {
		safe = u.Scheme + "://" + u.Host + "/<redacted>"
	}
	cp := *ue
	cp.URL = safe
	msg := cp.Error()
	if ue != err {
		msg = strings.ReplaceAll(err.Error(), ue.Error(), msg)
	}
	return &redactedError{msg: msg, err: err}
}
