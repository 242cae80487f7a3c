package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Client talks to the Odoo 19+ /json/2/<model>/<method> endpoint with a
// Bearer API key. Every call carries a hard timeout; a slow ERP is a
// failed sync, never a stuck worker.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *logrus.Logger
}

var ErrNotConfigured = errors.New("erp base url or api key not configured")

func NewClient(baseURL, apiKey string, timeout time.Duration, log *logrus.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

func (c *Client) configured() bool {
	return c.baseURL != "" && c.apiKey != ""
}

func (c *Client) request(ctx context.Context, model, method string, payload any) (json.RawMessage, error) {
	if !c.configured() {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/json/2/%s/%s", c.baseURL, model, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("erp request %s.%s: %w", model, method, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("erp api error %d on %s.%s: %s", resp.StatusCode, model, method, strings.TrimSpace(string(data)))
	}
	return json.RawMessage(data), nil
}

const scaleRecordModel = "x_scale_records"

// CreateRecord creates a scale record in the ERP and returns its id.
// Odoo answers a create with a list of ids.
func (c *Client) CreateRecord(ctx context.Context, vals map[string]any) (int64, error) {
	raw, err := c.request(ctx, scaleRecordModel, "create", map[string]any{
		"vals_list": []map[string]any{vals},
	})
	if err != nil {
		return 0, err
	}

	var ids []int64
	if err := json.Unmarshal(raw, &ids); err == nil && len(ids) > 0 {
		return ids[0], nil
	}
	var id int64
	if err := json.Unmarshal(raw, &id); err == nil && id > 0 {
		return id, nil
	}
	return 0, fmt.Errorf("erp create returned no id: %s", string(raw))
}

// UpdateRecord writes vals onto an existing scale record.
func (c *Client) UpdateRecord(ctx context.Context, externalID int64, vals map[string]any) error {
	_, err := c.request(ctx, scaleRecordModel, "write", map[string]any{
		"ids":  []int64{externalID},
		"vals": vals,
	})
	return err
}

// searchRead fetches records of an arbitrary model, used by the
// reference-data sync.
func (c *Client) searchRead(ctx context.Context, model string, domain []any, fields []string) ([]map[string]any, error) {
	raw, err := c.request(ctx, model, "search_read", map[string]any{
		"domain": domain,
		"fields": fields,
		"limit":  1000,
	})
	if err != nil {
		return nil, err
	}

	var records []map[string]any
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("erp %s.search_read: bad response: %w", model, err)
	}
	return records, nil
}

// Ping verifies connectivity and credentials with a minimal user query.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.searchRead(ctx, "res.users",
		[]any{[]any{"id", "=", 1}},
		[]string{"name", "login"})
	return err
}
