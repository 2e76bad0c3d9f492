package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// WebhookDispatcher POSTs each request as JSON to a bridge endpoint.
type WebhookDispatcher struct {
	URL    string
	Token  string
	Client *http.Client
}

var _ Dispatcher = (*WebhookDispatcher)(nil)

func (d *WebhookDispatcher) Dispatch(ctx context.Context, req Request) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.URL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	hreq.Header.Add("Content-Type", "application/json")
	if d.Token != "" {
		hreq.Header.Add("Authorization", "Bearer "+d.Token)
	}
	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(hreq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("dispatch webhook POST failed. status=%d", resp.StatusCode)
	}
	return nil
}
