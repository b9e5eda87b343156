package enums

// TransactionType maps to the transaction_type enum in Postgres.
type TransactionType string

const (
	TransactionTypeExpense TransactionType = "EXPENSE"
	TransactionTypeIncome  TransactionType = "INCOME"
)

var validTransactionTypes = values[TransactionType]{
	TransactionTypeExpense,
	TransactionTypeIncome,
}

func (t TransactionType) IsValid() bool {
	return validTransactionTypes.has(t)
}

func ParseTransactionType(value string) (TransactionType, error) {
	return validTransactionTypes.parse("transaction type", value)
}

// SettledStatus is the status a transaction of this type lands in once money moves.
func (t TransactionType) SettledStatus() TransactionStatus {
	if t == TransactionTypeIncome {
		return TransactionStatusReceived
	}
	return TransactionStatusPaid
}

// TransactionStatus maps to the transaction_status enum in Postgres.
type TransactionStatus string

const (
	TransactionStatusPaid     TransactionStatus = "PAID"
	TransactionStatusPending  TransactionStatus = "PENDING"
	TransactionStatusReceived TransactionStatus = "RECEIVED"
)

var validTransactionStatuses = values[TransactionStatus]{
	TransactionStatusPaid,
	TransactionStatusPending,
	TransactionStatusReceived,
}

func (t TransactionStatus) IsValid() bool {
	return validTransactionStatuses.has(t)
}

func ParseTransactionStatus(value string) (TransactionStatus, error) {
	return validTransactionStatuses.parse("transaction status", value)
}
