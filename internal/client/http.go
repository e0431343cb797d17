package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/alfredjeanlab/dealdesk/internal/model"
)

// HTTPClient implements DealClient using the dealdesk REST API.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var _ DealClient = (*HTTPClient)(nil)

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithToken sets the bearer token sent on every request.
func WithToken(token string) Option {
	return func(c *HTTPClient) { c.token = token }
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.httpClient = hc }
}

// NewHTTPClient creates a client targeting baseURL (e.g. "http://localhost:8080").
// Requests carry no timeout of their own; callers bound them with ctx.
func NewHTTPClient(baseURL string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

func dossierPath(id string) string {
	return "/api/dossiers/" + url.PathEscape(id)
}

// --- Dossiers ---

func (c *HTTPClient) ListDossiers(ctx context.Context, req *ListDossiersRequest) (*ListDossiersResponse, error) {
	q := url.Values{}
	if req != nil {
		if len(req.Status) > 0 {
			q.Set("statut", strings.Join(req.Status, ","))
		}
		if req.Search != "" {
			q.Set("search", req.Search)
		}
		if req.Sort != "" {
			q.Set("sort", req.Sort)
		}
		if req.Limit > 0 {
			q.Set("limit", strconv.Itoa(req.Limit))
		}
		if req.Offset > 0 {
			q.Set("offset", strconv.Itoa(req.Offset))
		}
	}
	path := "/api/dossiers"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var dossiers []*model.Dossier
	header, err := c.do(ctx, http.MethodGet, path, nil, &dossiers)
	if err != nil {
		return nil, err
	}
	total := len(dossiers)
	if v := header.Get("X-Total-Count"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			total = n
		}
	}
	return &ListDossiersResponse{Dossiers: dossiers, Total: total}, nil
}

func (c *HTTPClient) CreateDossier(ctx context.Context, req *CreateDossierRequest) (*model.Dossier, error) {
	var d model.Dossier
	if err := c.doJSON(ctx, http.MethodPost, "/api/dossiers", req, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *HTTPClient) GetDossier(ctx context.Context, id string) (*model.Dossier, error) {
	var d model.Dossier
	if err := c.doJSON(ctx, http.MethodGet, dossierPath(id), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *HTTPClient) UpdateDossier(ctx context.Context, id string, req *UpdateDossierRequest) (*model.Dossier, error) {
	var d model.Dossier
	if err := c.doJSON(ctx, http.MethodPatch, dossierPath(id), req, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// UpdateStatus sends the wire value of status, never its label.
func (c *HTTPClient) UpdateStatus(ctx context.Context, id string, status model.Status) (*model.Dossier, error) {
	body := map[string]string{"statut": status.String()}
	var d model.Dossier
	if err := c.doJSON(ctx, http.MethodPatch, dossierPath(id)+"/status", body, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *HTTPClient) DeleteDossier(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, dossierPath(id), nil, nil)
}

func (c *HTTPClient) GetRoadshow(ctx context.Context, id string) (*model.Roadshow, error) {
	var rs model.Roadshow
	if err := c.doJSON(ctx, http.MethodGet, dossierPath(id)+"/roadshow", nil, &rs); err != nil {
		return nil, err
	}
	return &rs, nil
}

func (c *HTTPClient) LinkCompany(ctx context.Context, dossierID, companyID string) error {
	body := map[string]string{"societe_id": companyID}
	return c.doJSON(ctx, http.MethodPost, dossierPath(dossierID)+"/societes", body, nil)
}

// --- Companies ---

func (c *HTTPClient) ListCompanies(ctx context.Context) ([]*model.Company, error) {
	var out []*model.Company
	if err := c.doJSON(ctx, http.MethodGet, "/api/societes", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) CreateCompany(ctx context.Context, req *CreateCompanyRequest) (*model.Company, error) {
	var co model.Company
	if err := c.doJSON(ctx, http.MethodPost, "/api/societes", req, &co); err != nil {
		return nil, err
	}
	return &co, nil
}

// --- Interactions ---

func (c *HTTPClient) ListInteractions(ctx context.Context, dossierID string) ([]*model.Interaction, error) {
	path := "/api/interactions"
	if dossierID != "" {
		path += "?" + url.Values{"dossier_id": {dossierID}}.Encode()
	}
	var out []*model.Interaction
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) CreateInteraction(ctx context.Context, req *CreateInteractionRequest) (*model.Interaction, error) {
	var i model.Interaction
	if err := c.doJSON(ctx, http.MethodPost, "/api/interactions", req, &i); err != nil {
		return nil, err
	}
	return &i, nil
}

// --- Reminders ---

func (c *HTTPClient) ListReminders(ctx context.Context, overdueOnly bool) ([]*model.Reminder, error) {
	path := "/api/rappels"
	if overdueOnly {
		path += "?echus=true"
	}
	var out []*model.Reminder
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) CreateReminder(ctx context.Context, req *CreateReminderRequest) (*model.Reminder, error) {
	var r model.Reminder
	if err := c.doJSON(ctx, http.MethodPost, "/api/rappels", req, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *HTTPClient) CompleteReminder(ctx context.Context, id string) (*model.Reminder, error) {
	var r model.Reminder
	if err := c.doJSON(ctx, http.MethodPost, "/api/rappels/"+url.PathEscape(id)+"/fait", nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// --- Dashboard ---

func (c *HTTPClient) GetStats(ctx context.Context) (*model.DashboardStats, error) {
	var s model.DashboardStats
	if err := c.doJSON(ctx, http.MethodGet, "/api/dashboard/stats", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// --- Identity provider ---

// LoginURL returns where /api/login redirects, without following it.
func (c *HTTPClient) LoginURL(ctx context.Context, returnTo string) (string, error) {
	path := "/api/login"
	if returnTo != "" {
		path += "?" + url.Values{"return_to": {returnTo}}.Encode()
	}
	return c.redirectLocation(ctx, path)
}

// LogoutURL returns where /api/logout redirects.
func (c *HTTPClient) LogoutURL(ctx context.Context) (string, error) {
	return c.redirectLocation(ctx, "/api/logout")
}

func (c *HTTPClient) redirectLocation(ctx context.Context, path string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return "", err
	}
	hc := *c.httpClient
	hc.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	resp, err := hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 300 || resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return "", apiError(resp.StatusCode, body)
	}
	loc := resp.Header.Get("Location")
	if loc == "" {
		return "", errors.New("redirect without Location header")
	}
	return loc, nil
}

// --- Health ---

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/health", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// --- internal helpers ---

// APIError represents a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
	// Fields holds per-field messages for validation failures.
	Fields map[string]string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.StatusCode == http.StatusNotFound
}

func apiError(status int, body []byte) *APIError {
	var errResp struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		return &APIError{StatusCode: status, Message: errResp.Error, Fields: errResp.Fields}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{StatusCode: status, Message: msg}
}

func (c *HTTPClient) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// doJSON performs an HTTP request with optional JSON body and decodes the JSON response.
// If result is nil, the response body is discarded (for DELETE/204 responses).
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body, result any) error {
	_, err := c.do(ctx, method, path, body, result)
	return err
}

// do is doJSON that also returns the response headers.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, result any) (http.Header, error) {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return resp.Header, nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, apiError(resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return nil, fmt.Errorf("decoding response: %w", err)
		}
	}
	return resp.Header, nil
}
