package issues

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/siteboss-backend/pkg/db/models"
	"github.com/angelmondragon/siteboss-backend/pkg/enums"
)

type IssueDTO struct {
	ID         uuid.UUID           `json:"id"`
	ProjectID  *uuid.UUID          `json:"project_id,omitempty"`
	Title      string              `json:"title"`
	Priority   enums.IssuePriority `json:"priority"`
	Status     enums.IssueStatus   `json:"status"`
	Reporter   string              `json:"reporter"`
	SiteName   string              `json:"site_name"`
	ResolvedAt *time.Time          `json:"resolved_at,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
}

func FromModel(i *models.Issue) *IssueDTO {
	if i == nil {
		return nil
	}
	return &IssueDTO{
		ID:         i.ID,
		ProjectID:  i.ProjectID,
		Title:      i.Title,
		Priority:   i.Priority,
		Status:     i.Status,
		Reporter:   i.Reporter,
		SiteName:   i.SiteName,
		ResolvedAt: i.ResolvedAt,
		CreatedAt:  i.CreatedAt,
	}
}

func FromModels(rows []models.Issue) []IssueDTO {
	out := make([]IssueDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}

// CreateIssueInput is the report-issue form.
type CreateIssueInput struct {
	Title     string     `json:"title" validate:"required"`
	Priority  string     `json:"priority"`
	ProjectID *uuid.UUID `json:"project_id"`
}

// OpenCount is the badge value shown on dashboards.
type OpenCount struct {
	Open int64 `json:"open"`
}
