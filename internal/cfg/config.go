package cfg

import (
	"log"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

type Config struct {
	Env      string `env:"ENV" env-default:"local"`
	LogLevel string `env:"LOG_LEVEL" env-default:"info"`
	HTTP     HTTPConfig
	GRPC     GRPCConfig
	DB       DBConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Minio    MinioConfig
	Mongo    MongoConfig
	JWT      JWTConfig
	Ingest   IngestConfig
}

type HTTPConfig struct {
	Port               string        `env:"HTTP_PORT" env-default:"8081"`
	ShutdownTimeout    time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"10s"`
	MaxBodyBytes       int64         `env:"HTTP_MAX_BODY_BYTES" env-default:"5242880"`
	MaxUploadBytes     int64         `env:"HTTP_MAX_UPLOAD_BYTES" env-default:"209715200"`
	CORSAllowedOrigins string        `env:"CORS_ALLOWED_ORIGINS" env-default:"*"`
	RateLimitRequests  int           `env:"RATE_LIMIT_REQUESTS" env-default:"0"`
	RateLimitWindow    time.Duration `env:"RATE_LIMIT_WINDOW" env-default:"1m"`
	TrustProxyHeaders  bool          `env:"HTTP_TRUST_PROXY_HEADERS" env-default:"false"`
}

type GRPCConfig struct {
	Port string `env:"GRPC_PORT" env-default:"9091"`
}

type DBConfig struct {
	Driver          string        `env:"DB_DRIVER" env-default:"postgres"`
	Host            string        `env:"DB_HOST" env-default:"localhost"`
	Port            string        `env:"DB_PORT" env-default:"5432"`
	User            string        `env:"DB_USER"`
	Password        string        `env:"DB_PASSWORD"`
	Name            string        `env:"DB_NAME"`
	SQLitePath      string        `env:"DB_SQLITE_PATH" env-default:"contributions.db"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" env-default:"20"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" env-default:"5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"1h"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
}

type KafkaConfig struct {
	Brokers string `env:"KAFKA_BROKERS"`
	Topic   string `env:"KAFKA_TOPIC" env-default:"contribution-events"`
	GroupID string `env:"KAFKA_GROUP_ID" env-default:"contribution-notifier"`
}

type MinioConfig struct {
	Endpoint  string `env:"MINIO_ENDPOINT"`
	AccessKey string `env:"MINIO_ACCESS_KEY"`
	SecretKey string `env:"MINIO_SECRET_KEY"`
	UseSSL    bool   `env:"MINIO_USE_SSL" env-default:"false"`
	Bucket    string `env:"MINIO_BUCKET" env-default:"task-assets"`
	PublicURL string `env:"MINIO_PUBLIC_URL"`
}

type MongoConfig struct {
	URI        string `env:"MONGODB_URI"`
	Database   string `env:"MONGODB_DATABASE" env-default:"contributions"`
	Collection string `env:"MONGODB_COLLECTION" env-default:"assets"`
	// NotificationCollection is the worker inbox filled by the notifier.
	NotificationCollection string `env:"MONGODB_NOTIFICATION_COLLECTION" env-default:"notifications"`
}

type JWTConfig struct {
	Secret string `env:"JWT_SECRET"`
}

type IngestConfig struct {
	ChunkSize int           `env:"INGEST_CHUNK_SIZE" env-default:"50"`
	DedupTTL  time.Duration `env:"INGEST_DEDUP_TTL" env-default:"0s"`
}

func LoadConfig() (Config, error) {
	// .env is optional
	if err := godotenv.Load(); err != nil {
		log.Println(".env not found, using environment variables")
	}

	var conf Config
	if err := cleanenv.ReadEnv(&conf); err != nil {
		return Config{}, err
	}
	return conf, nil
}

// KafkaBrokers splits the comma separated broker list.
func (c Config) KafkaBrokers() []string {
	return SplitCSV(c.Kafka.Brokers)
}

func SplitCSV(value string) []string {
	parts := strings.Split(value, ",")
	var result []string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}
