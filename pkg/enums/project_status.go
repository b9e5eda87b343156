package enums

// ProjectStatus maps to the project_status enum in Postgres.
type ProjectStatus string

const (
	ProjectStatusActive    ProjectStatus = "ACTIVE"
	ProjectStatusPlanning  ProjectStatus = "PLANNING"
	ProjectStatusDelayed   ProjectStatus = "DELAYED"
	ProjectStatusCompleted ProjectStatus = "COMPLETED"
)

var validProjectStatuses = values[ProjectStatus]{
	ProjectStatusActive,
	ProjectStatusPlanning,
	ProjectStatusDelayed,
	ProjectStatusCompleted,
}

func (p ProjectStatus) IsValid() bool {
	return validProjectStatuses.has(p)
}

func ParseProjectStatus(value string) (ProjectStatus, error) {
	return validProjectStatuses.parse("project status", value)
}
