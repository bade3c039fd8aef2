package enum

type Pipeline string

const (
	PipelineDocuments Pipeline = "documents"
	PipelineTickets   Pipeline = "tickets"
	PipelineBackfill  Pipeline = "backfill"
)

func (p Pipeline) String() string {
	return string(p)
}

type NotificationType string

const (
	NotificationSystemMessage    NotificationType = "System Message"
	NotificationContractDocument NotificationType = "Contract Document"
)

func (t NotificationType) String() string {
	return string(t)
}
