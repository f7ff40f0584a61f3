package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TimeLayout is fixed-width so stored timestamps sort lexicographically.
const TimeLayout = "2006-01-02T15:04:05.000000Z07:00"

// DateLayout is used for contract start and end dates.
const DateLayout = "2006-01-02"

// FormatTime renders t in the storage layout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

const (
	CustomerActive   = "active"
	CustomerInactive = "inactive"
	CustomerArchived = "archived"
)

const (
	ContractDraft     = "draft"
	ContractActive    = "active"
	ContractCompleted = "completed"
	ContractExpired   = "expired"
)

const (
	IdeaSubmitted    = "submitted"
	IdeaShortlisted  = "shortlisted"
	IdeaCommissioned = "commissioned"
	IdeaRejected     = "rejected"
)

// Explicit content object flags. An empty status means the status is
// derived from the task list.
const (
	ContentPublished = "published"
	ContentSpiked    = "spiked"
)

const (
	TaskTodo = "todo"
	TaskDone = "done"
)

var ContentTypes = []string{"article", "video", "graphic", "thread", "newsletter", "podcast", "other"}

func ValidContentType(v string) bool {
	return oneOf(v, ContentTypes...)
}

func ValidCustomerStatus(v string) bool {
	return oneOf(v, CustomerActive, CustomerInactive, CustomerArchived)
}

func ValidContractStatus(v string) bool {
	return oneOf(v, ContractDraft, ContractActive, ContractCompleted, ContractExpired)
}

func ValidTaskStatus(v string) bool {
	return oneOf(v, TaskTodo, TaskDone)
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

type Customer struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Status         string `json:"status"`
	Industry       string `json:"industry,omitempty"`
	PrimaryContact string `json:"primary_contact,omitempty"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

type Contract struct {
	ID                string           `json:"id"`
	CustomerID        string           `json:"customer_id"`
	Name              string           `json:"name"`
	Status            string           `json:"status"`
	TotalContentUnits decimal.Decimal  `json:"total_content_units"`
	RolloverUnits     decimal.Decimal  `json:"rollover_units"`
	UsedContentUnits  decimal.Decimal  `json:"used_content_units"`
	StartDate         string           `json:"start_date"`
	EndDate           string           `json:"end_date"`
	MonthlyFee        *decimal.Decimal `json:"monthly_fee,omitempty"`
	Notes             string           `json:"notes,omitempty"`
	CreatedAt         string           `json:"created_at"`
	UpdatedAt         string           `json:"updated_at"`
}

type Idea struct {
	ID                  string   `json:"id"`
	CustomerID          *string  `json:"customer_id,omitempty"`
	Title               string   `json:"title"`
	Description         string   `json:"description,omitempty"`
	Status              string   `json:"status"`
	PredictedEngagement *float64 `json:"predicted_engagement,omitempty"`
	TopicTags           []string `json:"topic_tags"`
	StrategicTags       []string `json:"strategic_tags"`
	EventTags           []string `json:"event_tags"`
	CreatedAt           string   `json:"created_at"`
	UpdatedAt           string   `json:"updated_at"`
}

type ContentObject struct {
	ID           string          `json:"id"`
	IdeaID       *string         `json:"idea_id,omitempty"`
	CustomerID   *string         `json:"customer_id,omitempty"`
	ContractID   *string         `json:"contract_id,omitempty"`
	WorkingTitle string          `json:"working_title"`
	FinalTitle   *string         `json:"final_title,omitempty"`
	ContentType  string          `json:"content_type"`
	Body         string          `json:"body,omitempty"`
	Status       string          `json:"status,omitempty"`
	Evergreen    bool            `json:"evergreen"`
	ContentUnits decimal.Decimal `json:"content_units"`
	PublishedAt  *string         `json:"published_at,omitempty"`
	CreatedAt    string          `json:"created_at"`
	UpdatedAt    string          `json:"updated_at"`

	// Aggregates filled by list and detail reads.
	TotalTasks    int    `json:"total_tasks"`
	DoneTasks     int    `json:"done_tasks"`
	DerivedStatus string `json:"derived_status"`
}

type Task struct {
	ID              string  `json:"id"`
	ContentObjectID string  `json:"content_object_id"`
	Title           string  `json:"title"`
	Status          string  `json:"status"`
	SortOrder       int     `json:"sort_order"`
	DueDate         *string `json:"due_date,omitempty"`
	Assignee        *string `json:"assignee,omitempty"`
	Notes           *string `json:"notes,omitempty"`
	CompletedAt     *string `json:"completed_at,omitempty"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

// PostLink records a social post published for a content object.
type PostLink struct {
	ContentObjectID string `json:"content_object_id"`
	PostID          string `json:"post_id"`
	Platform        string `json:"platform"`
	CreatedAt       string `json:"created_at"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	CustomerID string `json:"customer_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

type APIKey struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at"`
}
