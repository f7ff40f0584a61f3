package cuopssdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal cuops HTTP API client.
type Client struct {
	BaseURL     string
	BasePath    string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "/v1",
		Timeout:  10 * time.Second,
	}
}

// Balance is the computed position of a contract. Amounts are content units.
type Balance struct {
	Total       float64 `json:"total"`
	Used        float64 `json:"used"`
	Remaining   float64 `json:"remaining"`
	PercentUsed float64 `json:"percent_used"`
	OverBudget  bool    `json:"over_budget"`
}

// Contract represents the API contract model with its balance.
type Contract struct {
	ID                string  `json:"id"`
	CustomerID        string  `json:"customer_id"`
	Name              string  `json:"name"`
	Status            string  `json:"status"`
	TotalContentUnits float64 `json:"total_content_units"`
	UsedContentUnits  float64 `json:"used_content_units"`
	StartDate         string  `json:"start_date"`
	EndDate           string  `json:"end_date"`
	Balance           Balance `json:"balance"`
}

// ContractSelection lists active contracts; Selected is set when only one exists.
type ContractSelection struct {
	Options  []Contract `json:"options"`
	Selected *Contract  `json:"selected,omitempty"`
}

// Idea represents a backlog idea (partial).
type Idea struct {
	ID         string   `json:"id"`
	CustomerID *string  `json:"customer_id,omitempty"`
	Title      string   `json:"title"`
	Status     string   `json:"status"`
	TopicTags  []string `json:"topic_tags"`
}

// Content represents a content object with its derived status (partial).
type Content struct {
	ID            string  `json:"id"`
	IdeaID        *string `json:"idea_id,omitempty"`
	ContractID    *string `json:"contract_id,omitempty"`
	WorkingTitle  string  `json:"working_title"`
	ContentType   string  `json:"content_type"`
	ContentUnits  float64 `json:"content_units"`
	TotalTasks    int     `json:"total_tasks"`
	DoneTasks     int     `json:"done_tasks"`
	DerivedStatus string  `json:"derived_status"`
}

// Task represents a production task (partial).
type Task struct {
	ID              string `json:"id"`
	ContentObjectID string `json:"content_object_id"`
	Title           string `json:"title"`
	Status          string `json:"status"`
	SortOrder       int    `json:"sort_order"`
}

// Event represents a log entry.
type Event struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	CustomerID string         `json:"customer_id,omitempty"`
	EntityID   string         `json:"entity_id"`
	EntityKind string         `json:"entity_kind"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

// CommissionRequest carries the commission parameters; zero values are omitted.
type CommissionRequest struct {
	ContentType  string  `json:"content_type"`
	CustomerID   string  `json:"customer_id,omitempty"`
	ContractID   string  `json:"contract_id,omitempty"`
	ContentUnits float64 `json:"content_units,omitempty"`
}

// APIError wraps non-2xx responses. Code and Message come from the error envelope when present.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// IsInsufficientBalance reports whether err is the API's insufficient_balance error.
func IsInsufficientBalance(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.Code == "insufficient_balance"
}

// ActiveContracts returns the contracts a customer can commission against.
func (c *Client) ActiveContracts(ctx context.Context, customerID string) (ContractSelection, error) {
	var resp ContractSelection
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("customers/%s/contracts/active", url.PathEscape(customerID)), nil, &resp)
	return resp, err
}

// Contract fetches a contract with its balance.
func (c *Client) Contract(ctx context.Context, id string) (Contract, error) {
	var resp Contract
	err := c.do(ctx, http.MethodGet, "contracts/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// SubmitIdea adds an idea to the backlog.
func (c *Client) SubmitIdea(ctx context.Context, customerID, title string, topics []string) (Idea, error) {
	body := map[string]any{"title": title}
	if customerID != "" {
		body["customer_id"] = customerID
	}
	if len(topics) > 0 {
		body["topic_tags"] = topics
	}
	var resp Idea
	err := c.do(ctx, http.MethodPost, "ideas", body, &resp)
	return resp, err
}

// Commission turns an idea into a content object and debits its contract.
func (c *Client) Commission(ctx context.Context, ideaID string, req CommissionRequest) (Content, error) {
	var resp Content
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("ideas/%s/commission", url.PathEscape(ideaID)), req, &resp)
	return resp, err
}

// Content lists content objects, optionally scoped to a customer.
func (c *Client) Content(ctx context.Context, customerID string) ([]Content, error) {
	endpoint := "content"
	if customerID != "" {
		endpoint += "?customer_id=" + url.QueryEscape(customerID)
	}
	var resp []Content
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// AddTask appends a production task to a content object.
func (c *Client) AddTask(ctx context.Context, contentID, title string) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("content/%s/tasks", url.PathEscape(contentID)), map[string]any{"title": title}, &resp)
	return resp, err
}

// ToggleTask flips a task between todo and done.
func (c *Client) ToggleTask(ctx context.Context, id string) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("tasks/%s/toggle", url.PathEscape(id)), nil, &resp)
	return resp, err
}

// Events returns recent events, newest first.
func (c *Client) Events(ctx context.Context, customerID string, limit int) ([]Event, error) {
	q := url.Values{}
	if customerID != "" {
		q.Set("customer_id", customerID)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	endpoint := "events"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var env struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.Trim(c.BasePath, "/")
}
