package enums

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeUrgent  NotificationType = "URGENT"
	NotificationTypeWarning NotificationType = "WARNING"
	NotificationTypeSuccess NotificationType = "SUCCESS"
	NotificationTypeInfo    NotificationType = "INFO"
)

var validNotificationTypes = values[NotificationType]{
	NotificationTypeUrgent,
	NotificationTypeWarning,
	NotificationTypeSuccess,
	NotificationTypeInfo,
}

func (n NotificationType) IsValid() bool {
	return validNotificationTypes.has(n)
}

func ParseNotificationType(value string) (NotificationType, error) {
	return validNotificationTypes.parse("notification type", value)
}
