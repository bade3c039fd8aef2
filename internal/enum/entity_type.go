package enum

type EntityType string

const (
	BOOKING             EntityType = "BOOKING"
	SERVICE_TICKET      EntityType = "SERVICE_TICKET"
	CONTRACT_DOCUMENT   EntityType = "CONTRACT_DOCUMENT"
	TENANT_NOTIFICATION EntityType = "TENANT_NOTIFICATION"
)

func (entityType EntityType) String() string {
	return string(entityType)
}
