package server

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"cuops/internal/domain"
	"cuops/internal/engine"
	"cuops/internal/ledger"
	"cuops/internal/repo"
)

// Content-unit amounts travel as JSON numbers with at most two decimals.

// Request payloads

type CreateCustomerRequest struct {
	Name           string `json:"name" minLength:"1"`
	Status         string `json:"status,omitempty" enum:"active,inactive,archived"`
	Industry       string `json:"industry,omitempty"`
	PrimaryContact string `json:"primary_contact,omitempty"`
}

type UpdateCustomerRequest struct {
	Name           *string `json:"name,omitempty"`
	Status         *string `json:"status,omitempty" enum:"active,inactive,archived"`
	Industry       *string `json:"industry,omitempty"`
	PrimaryContact *string `json:"primary_contact,omitempty"`
}

type CreateContractRequest struct {
	Name              string   `json:"name" minLength:"1"`
	Status            string   `json:"status,omitempty" enum:"draft,active,completed,expired"`
	TotalContentUnits float64  `json:"total_content_units" minimum:"0"`
	RolloverUnits     float64  `json:"rollover_units,omitempty" minimum:"0"`
	StartDate         string   `json:"start_date" example:"2025-01-01"`
	EndDate           string   `json:"end_date" example:"2025-12-31"`
	MonthlyFee        *float64 `json:"monthly_fee,omitempty" minimum:"0"`
	Notes             string   `json:"notes,omitempty"`
}

type UpdateContractStatusRequest struct {
	Status string `json:"status" enum:"draft,active,completed,expired"`
}

type PreflightRequest struct {
	ContractID   string  `json:"contract_id,omitempty"`
	ContentUnits float64 `json:"content_units" minimum:"0"`
}

type CreateIdeaRequest struct {
	CustomerID          string   `json:"customer_id,omitempty"`
	Title               string   `json:"title" minLength:"1"`
	Description         string   `json:"description,omitempty"`
	PredictedEngagement *float64 `json:"predicted_engagement,omitempty"`
	TopicTags           []string `json:"topic_tags,omitempty"`
	StrategicTags       []string `json:"strategic_tags,omitempty"`
	EventTags           []string `json:"event_tags,omitempty"`
}

type UpdateIdeaRequest struct {
	CustomerID          *string  `json:"customer_id,omitempty"`
	Title               *string  `json:"title,omitempty"`
	Description         *string  `json:"description,omitempty"`
	PredictedEngagement *float64 `json:"predicted_engagement,omitempty"`
	ClearEngagement     bool     `json:"clear_predicted_engagement,omitempty"`
	TopicTags           []string `json:"topic_tags,omitempty"`
	StrategicTags       []string `json:"strategic_tags,omitempty"`
	EventTags           []string `json:"event_tags,omitempty"`
}

type CommissionRequest struct {
	ContentType  string  `json:"content_type" enum:"article,video,graphic,thread,newsletter,podcast,other"`
	CustomerID   string  `json:"customer_id,omitempty"`
	ContractID   string  `json:"contract_id,omitempty"`
	ContentUnits float64 `json:"content_units,omitempty" minimum:"0"`
}

type UpdateContentRequest struct {
	WorkingTitle *string `json:"working_title,omitempty"`
	FinalTitle   *string `json:"final_title,omitempty"`
	Body         *string `json:"body,omitempty"`
	ContentType  *string `json:"content_type,omitempty" enum:"article,video,graphic,thread,newsletter,podcast,other"`
	Evergreen    *bool   `json:"evergreen,omitempty"`
}

type LinkPostRequest struct {
	PostID   string `json:"post_id" minLength:"1"`
	Platform string `json:"platform" minLength:"1"`
}

type CreateTaskRequest struct {
	Title     string `json:"title" minLength:"1"`
	SortOrder *int   `json:"sort_order,omitempty"`
	DueDate   string `json:"due_date,omitempty" example:"2025-04-01"`
	Assignee  string `json:"assignee,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

type UpdateTaskRequest struct {
	Title     *string `json:"title,omitempty"`
	Status    *string `json:"status,omitempty" enum:"todo,done"`
	SortOrder *int    `json:"sort_order,omitempty"`
	DueDate   *string `json:"due_date,omitempty"`
	Assignee  *string `json:"assignee,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

// Responses

type BalanceResponse struct {
	Total       float64 `json:"total"`
	Used        float64 `json:"used"`
	Remaining   float64 `json:"remaining"`
	PercentUsed float64 `json:"percent_used"`
	OverBudget  bool    `json:"over_budget"`
}

type ContractResponse struct {
	ID                string          `json:"id"`
	CustomerID        string          `json:"customer_id"`
	Name              string          `json:"name"`
	Status            string          `json:"status"`
	TotalContentUnits float64         `json:"total_content_units"`
	RolloverUnits     float64         `json:"rollover_units"`
	UsedContentUnits  float64         `json:"used_content_units"`
	StartDate         string          `json:"start_date"`
	EndDate           string          `json:"end_date"`
	MonthlyFee        *float64        `json:"monthly_fee,omitempty"`
	Notes             string          `json:"notes,omitempty"`
	CreatedAt         string          `json:"created_at"`
	UpdatedAt         string          `json:"updated_at"`
	Balance           BalanceResponse `json:"balance"`
}

type ContractSelectionResponse struct {
	Options  []ContractResponse `json:"options"`
	Selected *ContractResponse  `json:"selected,omitempty"`
}

type PreflightResponse struct {
	ContractSelectionResponse
	Cost       float64 `json:"cost"`
	Affordable bool    `json:"affordable"`
	Reason     string  `json:"reason,omitempty"`
}

type DebitResponse struct {
	ContentObjectID string  `json:"content_object_id"`
	WorkingTitle    string  `json:"working_title"`
	ContentUnits    float64 `json:"content_units"`
	CreatedAt       string  `json:"created_at"`
}

type ContractLedgerResponse struct {
	ContractResponse
	Debits []DebitResponse `json:"debits"`
}

type ContentResponse struct {
	ID            string  `json:"id"`
	IdeaID        *string `json:"idea_id,omitempty"`
	CustomerID    *string `json:"customer_id,omitempty"`
	ContractID    *string `json:"contract_id,omitempty"`
	WorkingTitle  string  `json:"working_title"`
	FinalTitle    *string `json:"final_title,omitempty"`
	ContentType   string  `json:"content_type"`
	Body          string  `json:"body,omitempty"`
	Status        string  `json:"status,omitempty"`
	Evergreen     bool    `json:"evergreen"`
	ContentUnits  float64 `json:"content_units"`
	PublishedAt   *string `json:"published_at,omitempty"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
	TotalTasks    int     `json:"total_tasks"`
	DoneTasks     int     `json:"done_tasks"`
	DerivedStatus string  `json:"derived_status"`
}

type ContentDetailResponse struct {
	ContentResponse
	Tasks    []domain.Task     `json:"tasks"`
	Progress ledger.Progress   `json:"progress"`
	Posts    []domain.PostLink `json:"posts"`
}

type EventResponse struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id,omitempty"`
	CustomerID string         `json:"customer_id,omitempty"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

func units(f float64) decimal.Decimal {
	return ledger.UnitsFromFloat(f)
}

func toFloat(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func balanceResponse(b ledger.Balance) BalanceResponse {
	return BalanceResponse{
		Total:       toFloat(b.Total),
		Used:        toFloat(b.Used),
		Remaining:   toFloat(b.Remaining),
		PercentUsed: toFloat(b.PercentUsed),
		OverBudget:  b.OverBudget,
	}
}

func contractResponse(opt ledger.ContractOption) ContractResponse {
	c := opt.Contract
	resp := ContractResponse{
		ID:                c.ID,
		CustomerID:        c.CustomerID,
		Name:              c.Name,
		Status:            c.Status,
		TotalContentUnits: toFloat(c.TotalContentUnits),
		RolloverUnits:     toFloat(c.RolloverUnits),
		UsedContentUnits:  toFloat(c.UsedContentUnits),
		StartDate:         c.StartDate,
		EndDate:           c.EndDate,
		Notes:             c.Notes,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
		Balance:           balanceResponse(opt.Balance),
	}
	if c.MonthlyFee != nil {
		fee := toFloat(*c.MonthlyFee)
		resp.MonthlyFee = &fee
	}
	return resp
}

func contractResponses(opts []ledger.ContractOption) []ContractResponse {
	out := make([]ContractResponse, 0, len(opts))
	for _, o := range opts {
		out = append(out, contractResponse(o))
	}
	return out
}

func selectionResponse(sel engine.ContractSelection) ContractSelectionResponse {
	resp := ContractSelectionResponse{Options: contractResponses(sel.Options)}
	if sel.Selected != nil {
		s := contractResponse(*sel.Selected)
		resp.Selected = &s
	}
	return resp
}

func ledgerResponse(l engine.ContractLedger) ContractLedgerResponse {
	resp := ContractLedgerResponse{ContractResponse: contractResponse(l.ContractOption), Debits: []DebitResponse{}}
	for _, d := range l.Debits {
		resp.Debits = append(resp.Debits, debitResponse(d))
	}
	return resp
}

func debitResponse(d repo.ContractDebit) DebitResponse {
	return DebitResponse{
		ContentObjectID: d.ContentObjectID,
		WorkingTitle:    d.WorkingTitle,
		ContentUnits:    toFloat(d.ContentUnits),
		CreatedAt:       d.CreatedAt,
	}
}

func contentResponse(c domain.ContentObject) ContentResponse {
	return ContentResponse{
		ID:            c.ID,
		IdeaID:        c.IdeaID,
		CustomerID:    c.CustomerID,
		ContractID:    c.ContractID,
		WorkingTitle:  c.WorkingTitle,
		FinalTitle:    c.FinalTitle,
		ContentType:   c.ContentType,
		Body:          c.Body,
		Status:        c.Status,
		Evergreen:     c.Evergreen,
		ContentUnits:  toFloat(c.ContentUnits),
		PublishedAt:   c.PublishedAt,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
		TotalTasks:    c.TotalTasks,
		DoneTasks:     c.DoneTasks,
		DerivedStatus: c.DerivedStatus,
	}
}

func contentResponses(items []domain.ContentObject) []ContentResponse {
	out := make([]ContentResponse, 0, len(items))
	for _, c := range items {
		out = append(out, contentResponse(c))
	}
	return out
}

func eventResponse(e domain.Event) EventResponse {
	payload := map[string]any{}
	if e.Payload != "" {
		if err := json.Unmarshal([]byte(e.Payload), &payload); err != nil {
			payload = map[string]any{"raw": e.Payload}
		}
	}
	return EventResponse{
		ID:         e.ID,
		TS:         e.TS,
		Type:       e.Type,
		EntityKind: e.EntityKind,
		EntityID:   e.EntityID,
		CustomerID: e.CustomerID,
		ActorID:    e.ActorID,
		Payload:    payload,
	}
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
