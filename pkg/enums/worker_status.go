package enums

// WorkerStatus maps to the worker_status enum in Postgres.
type WorkerStatus string

const (
	WorkerStatusActive   WorkerStatus = "ACTIVE"
	WorkerStatusInactive WorkerStatus = "INACTIVE"
)

var validWorkerStatuses = values[WorkerStatus]{
	WorkerStatusActive,
	WorkerStatusInactive,
}

func (w WorkerStatus) IsValid() bool {
	return validWorkerStatuses.has(w)
}

func ParseWorkerStatus(value string) (WorkerStatus, error) {
	return validWorkerStatuses.parse("worker status", value)
}
