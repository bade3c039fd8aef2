package config

import "time"

type AppConfig struct {
	APIPort      string `env:"PORT,required" envDefault:"12222"`
	RabbitMQURL  string `env:"RABBITMQ_URL"`
	RedisURL     string `env:"REDIS_URL"`
	SyncTimezone string `env:"SYNC_TIMEZONE" envDefault:"Local"`
	PodName      string `env:"POD_NAME" envDefault:"local"`
	PodNamespace string `env:"POD_NAMESPACE" envDefault:"default"`
}

type MailboxConfig struct {
	Host        string        `env:"EMAIL_HOST" envDefault:"imappro.zoho.in"`
	Port        int           `env:"EMAIL_PORT" envDefault:"993"`
	User        string        `env:"EMAIL_USER"`
	Password    string        `env:"EMAIL_PASSWORD"`
	TLS         bool          `env:"EMAIL_TLS" envDefault:"true"`
	DialTimeout time.Duration `env:"EMAIL_DIAL_TIMEOUT" envDefault:"30s"`
	// Candidate sent folders, tried in order. Quoted and unquoted spellings of the same name count once.
	Folders []string `env:"EMAIL_FOLDERS" envSeparator:";" envDefault:"Sent;Sent Items;[Gmail]/Sent Mail;\"Sent\""`
}

type DatabaseConfig struct {
	Host            string `env:"POSTGRES_HOST,required" envDefault:"localhost"`
	Port            string `env:"POSTGRES_PORT,required" envDefault:"5432"`
	User            string `env:"POSTGRES_USER,required" envDefault:"postgres"`
	DBName          string `env:"POSTGRES_DB_NAME,required" envDefault:"tenant_portal"`
	Password        string `env:"POSTGRES_PASSWORD"`
	MaxConn         int    `env:"POSTGRES_DB_MAX_CONN" envDefault:"25"`
	MaxIdleConn     int    `env:"POSTGRES_DB_MAX_IDLE_CONN" envDefault:"10"`
	ConnMaxLifetime int    `env:"POSTGRES_DB_CONN_MAX_LIFETIME" envDefault:"60"`
	LogLevel        string `env:"POSTGRES_LOG_LEVEL" envDefault:"WARN"`
	SSLMode         string `env:"POSTGRES_SSL_MODE" envDefault:"require"`
}

type S3StorageConfig struct {
	AccessKeyID     string `env:"AWS_S3_ACCESS_KEY_ID"`
	AccessKeySecret string `env:"AWS_S3_ACCESS_KEY_SECRET"`
	Region          string `env:"AWS_S3_REGION" envDefault:"us-east-1"`
	Bucket          string `env:"AWS_S3_BUCKET"`
	CDNDomain       string `env:"AWS_S3_CDN_DOMAIN"`
	// S3-compatible endpoint (R2, MinIO). Empty means AWS.
	Endpoint   string        `env:"AWS_S3_ENDPOINT"`
	PresignTTL time.Duration `env:"AWS_S3_PRESIGN_TTL" envDefault:"1h"`
}

type NotificationConfig struct {
	QueueSize      int           `env:"NOTIFICATION_QUEUE_SIZE" envDefault:"100"`
	PublishTimeout time.Duration `env:"NOTIFICATION_PUBLISH_TIMEOUT" envDefault:"5s"`
	DrainTimeout   time.Duration `env:"NOTIFICATION_DRAIN_TIMEOUT" envDefault:"10s"`
}
