package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/siteboss-backend/pkg/db/models"
)

var projects = NewTable[models.Project]("project", nil)

// ProjectName returns the display name of an owned project, or "" when the
// project does not exist.
func ProjectName(ctx context.Context, tx *gorm.DB, ownerID, projectID uuid.UUID) (string, error) {
	var project models.Project
	err := tx.WithContext(ctx).
		Select("name").
		Where("id = ? AND owner_id = ?", projectID, ownerID).
		First(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", projects.MapError("lookup", err)
	}
	return project.Name, nil
}
