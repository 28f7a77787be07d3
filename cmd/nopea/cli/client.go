package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/false-systems/nopea/internal/httpapi"
	"github.com/false-systems/nopea/internal/memory"
)

// apiClient is a thin HTTP client against a running "nopea serve"
// instance, following the CLI-talks-to-a-running-server shape the
// "status"/"context"/"history"/"memory" commands need: those commands
// report the server's live state, not state re-derived from scratch on
// every invocation.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{baseURL: baseURL, http: &http.Client{Timeout: 30 * time.Second}}
}

func (c *apiClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("nopea server unreachable at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var apiErr map[string]string
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr["error"])
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *apiClient) Deploy(ctx context.Context, req httpapi.DeployRequest) (httpapi.DeployResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return httpapi.DeployResponse{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/deploy", bytes.NewReader(body))
	if err != nil {
		return httpapi.DeployResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return httpapi.DeployResponse{}, fmt.Errorf("nopea server unreachable at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	var out httpapi.DeployResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return httpapi.DeployResponse{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return out, fmt.Errorf("deploy request rejected: status %d", resp.StatusCode)
	}
	return out, nil
}

func (c *apiClient) Context(ctx context.Context, service, namespace string) (memory.Context, error) {
	var out memory.Context
	q := url.Values{}
	if namespace != "" {
		q.Set("namespace", namespace)
	}
	path := "/api/context/" + url.PathEscape(service)
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	return out, c.get(ctx, path, &out)
}

func (c *apiClient) History(ctx context.Context, service string) (httpapi.HistoryResponse, error) {
	var out httpapi.HistoryResponse
	return out, c.get(ctx, "/api/history/"+url.PathEscape(service), &out)
}

func (c *apiClient) Memory(ctx context.Context) (httpapi.MemoryResponse, error) {
	var out httpapi.MemoryResponse
	return out, c.get(ctx, "/api/memory", &out)
}
