package dashboard

import (
	"context"

	"github.com/angelmondragon/siteboss-backend/internal/access"
	"github.com/angelmondragon/siteboss-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/siteboss-backend/pkg/errors"
)

// Service provides the owner console aggregates.
type Service interface {
	Stats(ctx context.Context, actor access.Actor) (*Stats, error)
	MapSites(ctx context.Context, actor access.Actor) ([]MapSite, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "dashboard repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Stats(ctx context.Context, actor access.Actor) (*Stats, error) {
	if err := actor.Require(enums.RoleOwner); err != nil {
		return nil, err
	}
	owner := actor.OwnerID

	var (
		stats Stats
		err   error
	)
	if stats.ActiveSites, err = s.repo.CountProjects(ctx, owner, enums.ProjectStatusActive); err != nil {
		return nil, err
	}
	if stats.TotalWorkers, err = s.repo.CountWorkers(ctx, owner); err != nil {
		return nil, err
	}
	if stats.CashOutflow, err = s.repo.SumExpenses(ctx, owner); err != nil {
		return nil, err
	}
	if stats.Notifications, err = s.repo.CountNotifications(ctx, owner); err != nil {
		return nil, err
	}
	if stats.OpenIssues, err = s.repo.CountOpenIssues(ctx, owner); err != nil {
		return nil, err
	}
	return &stats, nil
}

// MapSites lists the sites that carry coordinates, newest first, with their
// staffing and open issue counts.
func (s *service) MapSites(ctx context.Context, actor access.Actor) ([]MapSite, error) {
	if err := actor.Require(enums.RoleOwner); err != nil {
		return nil, err
	}
	rows, err := s.repo.MappedProjects(ctx, actor.OwnerID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []MapSite{}, nil
	}
	staffed, err := s.repo.WorkersPerProject(ctx, actor.OwnerID)
	if err != nil {
		return nil, err
	}
	open, err := s.repo.OpenIssuesPerProject(ctx, actor.OwnerID)
	if err != nil {
		return nil, err
	}

	sites := make([]MapSite, 0, len(rows))
	for _, p := range rows {
		if !p.HasCoordinates() {
			continue
		}
		sites = append(sites, MapSite{
			ID:         p.ID,
			Name:       p.Name,
			Location:   p.Location,
			Latitude:   *p.Latitude,
			Longitude:  *p.Longitude,
			Status:     p.Status,
			Progress:   p.Progress,
			Workers:    staffed[p.ID],
			OpenIssues: open[p.ID],
		})
	}
	return sites, nil
}
