package dashboard

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/siteboss-backend/pkg/enums"
)

// Stats are the owner console's headline cards.
type Stats struct {
	ActiveSites   int64           `json:"active_sites"`
	TotalWorkers  int64           `json:"total_workers"`
	CashOutflow   decimal.Decimal `json:"cash_outflow"`
	Notifications int64           `json:"notifications"`
	OpenIssues    int64           `json:"open_issues"`
}

// MapSite is one pin on the live map.
type MapSite struct {
	ID         uuid.UUID           `json:"id"`
	Name       string              `json:"name"`
	Location   string              `json:"location"`
	Latitude   float64             `json:"latitude"`
	Longitude  float64             `json:"longitude"`
	Status     enums.ProjectStatus `json:"status"`
	Progress   int                 `json:"progress"`
	Workers    int64               `json:"workers"`
	OpenIssues int64               `json:"open_issues"`
}
