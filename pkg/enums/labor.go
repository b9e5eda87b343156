package enums

// LaborType maps to the labor_type enum in Postgres.
type LaborType string

const (
	LaborTypeHelper    LaborType = "Helper"
	LaborTypeMason     LaborType = "Mason"
	LaborTypeCarpenter LaborType = "Carpenter"
)

var validLaborTypes = values[LaborType]{
	LaborTypeHelper,
	LaborTypeMason,
	LaborTypeCarpenter,
}

func (l LaborType) IsValid() bool {
	return validLaborTypes.has(l)
}

func ParseLaborType(value string) (LaborType, error) {
	return validLaborTypes.parse("labor type", value)
}
