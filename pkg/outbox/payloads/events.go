package payloads

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaterialRequestedEvent is queued when a supervisor asks for material.
type MaterialRequestedEvent struct {
	NotificationID uuid.UUID  `json:"notification_id"`
	OwnerID        uuid.UUID  `json:"owner_id"`
	ProjectID      *uuid.UUID `json:"project_id,omitempty"`
	Item           string     `json:"item"`
	Quantity       string     `json:"quantity"`
	RequestedBy    string     `json:"requested_by"`
}

// MaterialRequestApprovedEvent is queued when the approval saga completes.
type MaterialRequestApprovedEvent struct {
	SagaID         uuid.UUID       `json:"saga_id"`
	NotificationID uuid.UUID       `json:"notification_id"`
	OwnerID        uuid.UUID       `json:"owner_id"`
	TransactionID  uuid.UUID       `json:"transaction_id"`
	OrderID        uuid.UUID       `json:"order_id"`
	Item           string          `json:"item"`
	Cost           decimal.Decimal `json:"cost"`
}

// OrderDeliveredEvent is queued when a store keeper receives an order.
type OrderDeliveredEvent struct {
	OrderID         uuid.UUID  `json:"order_id"`
	OwnerID         uuid.UUID  `json:"owner_id"`
	ProjectID       *uuid.UUID `json:"project_id,omitempty"`
	InventoryItemID uuid.UUID  `json:"inventory_item_id"`
	Item            string     `json:"item"`
	Quantity        int64      `json:"quantity"`
}

// IssueReportedEvent is queued when a site issue is raised.
type IssueReportedEvent struct {
	IssueID   uuid.UUID  `json:"issue_id"`
	OwnerID   uuid.UUID  `json:"owner_id"`
	ProjectID *uuid.UUID `json:"project_id,omitempty"`
	Title     string     `json:"title"`
	Priority  string     `json:"priority"`
	Reporter  string     `json:"reporter"`
	SiteName  string     `json:"site_name"`
}
