package cron_config

type Config struct {
	// Heartbeat check, every minute
	CronScheduleHeartbeat string `env:"CRON_SCHEDULE_HEARTBEAT" envDefault:"0 * * * * *"`
	// Contract document sync, every 2 minutes
	CronScheduleDocumentSync string `env:"CRON_SCHEDULE_DOCUMENT_SYNC" envDefault:"0 */2 * * * *"`
	// Service ticket sync, every 3 minutes
	CronScheduleTicketSync string `env:"CRON_SCHEDULE_TICKET_SYNC" envDefault:"0 */3 * * * *"`
}
