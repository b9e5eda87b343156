package enums

// IssuePriority maps to the issue_priority enum in Postgres.
type IssuePriority string

const (
	IssuePriorityHigh   IssuePriority = "HIGH"
	IssuePriorityMedium IssuePriority = "MEDIUM"
	IssuePriorityLow    IssuePriority = "LOW"
)

var validIssuePriorities = values[IssuePriority]{
	IssuePriorityHigh,
	IssuePriorityMedium,
	IssuePriorityLow,
}

func (i IssuePriority) IsValid() bool {
	return validIssuePriorities.has(i)
}

func ParseIssuePriority(value string) (IssuePriority, error) {
	return validIssuePriorities.parse("issue priority", value)
}

// IssueStatus maps to the issue_status enum in Postgres.
type IssueStatus string

const (
	IssueStatusOpen     IssueStatus = "OPEN"
	IssueStatusResolved IssueStatus = "RESOLVED"
)

var validIssueStatuses = values[IssueStatus]{
	IssueStatusOpen,
	IssueStatusResolved,
}

func (i IssueStatus) IsValid() bool {
	return validIssueStatuses.has(i)
}

func ParseIssueStatus(value string) (IssueStatus, error) {
	return validIssueStatuses.parse("issue status", value)
}
