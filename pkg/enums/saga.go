package enums

// SagaStatus maps to the saga_status enum in Postgres.
type SagaStatus string

const (
	SagaStatusRunning     SagaStatus = "RUNNING"
	SagaStatusCompleted   SagaStatus = "COMPLETED"
	SagaStatusCompensated SagaStatus = "COMPENSATED"
	SagaStatusFailed      SagaStatus = "FAILED"
)

var validSagaStatuses = values[SagaStatus]{
	SagaStatusRunning,
	SagaStatusCompleted,
	SagaStatusCompensated,
	SagaStatusFailed,
}

func (s SagaStatus) IsValid() bool {
	return validSagaStatuses.has(s)
}

func ParseSagaStatus(value string) (SagaStatus, error) {
	return validSagaStatuses.parse("saga status", value)
}

// IsTerminal reports whether the saga no longer needs work.
func (s SagaStatus) IsTerminal() bool {
	return s != SagaStatusRunning
}

// SagaStep records the last completed step of a material request saga.
type SagaStep string

const (
	SagaStepStarted             SagaStep = "started"
	SagaStepTransactionCreated  SagaStep = "transaction_created"
	SagaStepOrderCreated        SagaStep = "order_created"
	SagaStepNotificationRemoved SagaStep = "notification_removed"
)

var validSagaSteps = values[SagaStep]{
	SagaStepStarted,
	SagaStepTransactionCreated,
	SagaStepOrderCreated,
	SagaStepNotificationRemoved,
}

func (s SagaStep) IsValid() bool {
	return validSagaSteps.has(s)
}

func ParseSagaStep(value string) (SagaStep, error) {
	return validSagaSteps.parse("saga step", value)
}
