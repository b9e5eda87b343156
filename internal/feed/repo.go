package feed

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/siteboss-backend/internal/repo"
	"github.com/angelmondragon/siteboss-backend/pkg/db/models"
	"github.com/angelmondragon/siteboss-backend/pkg/pagination"
)

type Repository interface {
	List(ctx context.Context, filter repo.Filter) ([]models.FeedPost, *pagination.Cursor, error)
	Create(ctx context.Context, post *models.FeedPost) error
}

var table = repo.NewTable("feed post", func(p models.FeedPost) pagination.Cursor {
	return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
})

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) List(ctx context.Context, filter repo.Filter) ([]models.FeedPost, *pagination.Cursor, error) {
	return table.List(ctx, r.db, filter)
}

func (r *repository) Create(ctx context.Context, post *models.FeedPost) error {
	return table.Create(ctx, r.db, post)
}
