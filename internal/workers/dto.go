package workers

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/siteboss-backend/pkg/db/models"
	"github.com/angelmondragon/siteboss-backend/pkg/enums"
)

// WorkerDTO is the transport shape that omits the access code hash.
type WorkerDTO struct {
	ID            uuid.UUID          `json:"id"`
	ProjectID     *uuid.UUID         `json:"project_id,omitempty"`
	Name          string             `json:"name"`
	Mobile        string             `json:"mobile"`
	Role          enums.Role         `json:"role"`
	Status        enums.WorkerStatus `json:"status"`
	HasAccessCode bool               `json:"has_access_code"`
	LastLoginAt   *time.Time         `json:"last_login_at,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}

// IssuedWorker carries the one-time plaintext access code.
type IssuedWorker struct {
	Worker     WorkerDTO `json:"worker"`
	AccessCode string    `json:"access_code,omitempty"`
}

func FromModel(w *models.Worker) *WorkerDTO {
	if w == nil {
		return nil
	}
	return &WorkerDTO{
		ID:            w.ID,
		ProjectID:     w.ProjectID,
		Name:          w.Name,
		Mobile:        w.Mobile,
		Role:          w.Role,
		Status:        w.Status,
		HasAccessCode: w.AccessCodeHash != nil,
		LastLoginAt:   w.LastLoginAt,
		CreatedAt:     w.CreatedAt,
	}
}

func FromModels(rows []models.Worker) []WorkerDTO {
	out := make([]WorkerDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}

// CreateWorkerInput is the owner's add-staff form.
type CreateWorkerInput struct {
	Name      string     `json:"name" validate:"required"`
	Mobile    string     `json:"mobile" validate:"required,mobile"`
	Role      string     `json:"role" validate:"required"`
	ProjectID *uuid.UUID `json:"project_id"`
}

// UpdateWorkerInput edits name or site assignment. The role never changes.
type UpdateWorkerInput struct {
	Name      *string    `json:"name"`
	ProjectID *uuid.UUID `json:"project_id"`
}
