package projects

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/siteboss-backend/pkg/db/models"
	"github.com/angelmondragon/siteboss-backend/pkg/enums"
	"github.com/angelmondragon/siteboss-backend/pkg/types"
)

// ProjectDTO is the wire shape of a project.
type ProjectDTO struct {
	ID        uuid.UUID           `json:"id"`
	Name      string              `json:"name"`
	Location  string              `json:"location"`
	Latitude  *float64            `json:"latitude,omitempty"`
	Longitude *float64            `json:"longitude,omitempty"`
	Budget    decimal.Decimal     `json:"budget"`
	StartDate types.Date          `json:"start_date"`
	Status    enums.ProjectStatus `json:"status"`
	Progress  int                 `json:"progress"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

func FromModel(p *models.Project) *ProjectDTO {
	if p == nil {
		return nil
	}
	return &ProjectDTO{
		ID:        p.ID,
		Name:      p.Name,
		Location:  p.Location,
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		Budget:    p.Budget,
		StartDate: types.DateOf(p.StartDate),
		Status:    p.Status,
		Progress:  p.Progress,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func FromModels(rows []models.Project) []ProjectDTO {
	out := make([]ProjectDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}

// CreateProjectInput is the owner's new site form.
type CreateProjectInput struct {
	Name      string            `json:"name" validate:"required"`
	Location  string            `json:"location"`
	Latitude  *float64          `json:"latitude"`
	Longitude *float64          `json:"longitude"`
	Budget    types.LooseAmount `json:"budget"`
	StartDate types.Date        `json:"start_date"`
	Status    string            `json:"status"`
	Progress  types.LooseAmount `json:"progress"`
}

// UpdateProjectInput carries the editable project fields. Absent fields are
// left untouched.
type UpdateProjectInput struct {
	Name     *string           `json:"name"`
	Location *string           `json:"location"`
	Budget   types.LooseAmount `json:"budget"`
	Status   *string           `json:"status"`
	Progress types.LooseAmount `json:"progress"`
}
