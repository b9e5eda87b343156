package enums

// DefaultView is the landing screen an owner picks in their profile.
type DefaultView string

const (
	DefaultViewDashboard DefaultView = "dashboard"
	DefaultViewMap       DefaultView = "map"
)

var validDefaultViews = values[DefaultView]{
	DefaultViewDashboard,
	DefaultViewMap,
}

func (d DefaultView) IsValid() bool {
	return validDefaultViews.has(d)
}

func ParseDefaultView(value string) (DefaultView, error) {
	return validDefaultViews.parse("default view", value)
}
