package notifications

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/siteboss-backend/pkg/db/models"
	"github.com/angelmondragon/siteboss-backend/pkg/enums"
	"github.com/angelmondragon/siteboss-backend/pkg/types"
)

const (
	// MaterialRequestTitle marks notifications that start the approval workflow.
	MaterialRequestTitle = "Material Request"
	approveOrderAction   = "Approve Order"
)

type NotificationDTO struct {
	ID          uuid.UUID              `json:"id"`
	ProjectID   *uuid.UUID             `json:"project_id,omitempty"`
	Type        enums.NotificationType `json:"type"`
	Title       string                 `json:"title"`
	Message     string                 `json:"message"`
	Action      *string                `json:"action,omitempty"`
	Item        *string                `json:"item,omitempty"`
	RequestedBy string                 `json:"requested_by"`
	CreatedAt   time.Time              `json:"created_at"`
}

func FromModel(n *models.Notification) *NotificationDTO {
	if n == nil {
		return nil
	}
	return &NotificationDTO{
		ID:          n.ID,
		ProjectID:   n.ProjectID,
		Type:        n.Type,
		Title:       n.Title,
		Message:     n.Message,
		Action:      n.Action,
		Item:        n.Item,
		RequestedBy: n.RequestedBy,
		CreatedAt:   n.CreatedAt,
	}
}

func FromModels(rows []models.Notification) []NotificationDTO {
	out := make([]NotificationDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}

// MaterialRequestInput is the supervisor's request form.
type MaterialRequestInput struct {
	Item     string            `json:"item" validate:"required"`
	Quantity types.LooseAmount `json:"quantity"`
}

type CountResult struct {
	Count int64 `json:"count"`
}
