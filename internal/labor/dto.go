package labor

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/siteboss-backend/pkg/db/models"
	"github.com/angelmondragon/siteboss-backend/pkg/enums"
)

type EntryDTO struct {
	ID        uuid.UUID       `json:"id"`
	ProjectID uuid.UUID       `json:"project_id"`
	Name      string          `json:"name"`
	Type      enums.LaborType `json:"type"`
	Present   bool            `json:"present"`
	CreatedAt time.Time       `json:"created_at"`
}

func FromModel(l *models.LaborEntry) *EntryDTO {
	if l == nil {
		return nil
	}
	return &EntryDTO{
		ID:        l.ID,
		ProjectID: l.ProjectID,
		Name:      l.Name,
		Type:      l.Type,
		Present:   l.Present,
		CreatedAt: l.CreatedAt,
	}
}

func FromModels(rows []models.LaborEntry) []EntryDTO {
	out := make([]EntryDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}

type AddLaborInput struct {
	Name      string     `json:"name" validate:"required"`
	Type      string     `json:"type"`
	ProjectID *uuid.UUID `json:"project_id"`
}

// Summary is the attendance headline for one site.
type Summary struct {
	Present int64 `json:"present"`
	Total   int64 `json:"total"`
}
