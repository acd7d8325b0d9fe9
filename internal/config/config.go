package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	MySQL     MySQLConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	S3        S3Config
	Analysis  AnalysisConfig
	Advisor   AdvisorConfig
	Executor  ExecutorConfig
	Pipeline  PipelineConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type MySQLConfig struct {
	DSN string
}

type JWTConfig struct {
	Secret     string
	Expiration int // hours
}

type RateLimitConfig struct {
	JobsPerHour    int
	UploadsPerHour int
}

type S3Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

type AnalysisConfig struct {
	ServiceURL string
	Timeout    int // seconds
}

type AdvisorConfig struct {
	ServiceURL string
	Timeout    int // seconds
}

type ExecutorConfig struct {
	ServiceURL string
	Timeout    int // seconds
}

// PipelineConfig tunes the orchestrator: worker pool size, the queue lease,
// and the backoff steps applied to retried external calls.
type PipelineConfig struct {
	Concurrency  int
	LeaseSeconds int
	RetryShortMs int
	RetryLongMs  int
}

// Load reads configuration from config.yaml (optional) and the environment.
func Load() (*Config, error) {
	// Resolve docker secrets before viper reads the environment
	readSecret("JWT_SECRET")
	readSecret("MYSQL_DSN")
	readSecret("S3_SECRET_ACCESS_KEY")
	readSecret("REDIS_PASSWORD")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("server.port", "3000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("mysql.dsn", "clipvibe:clipvibe@tcp(localhost:3306)/clipvibe?parseTime=true")
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.expiration", 24)
	viper.SetDefault("ratelimit.jobs_per_hour", 10)
	viper.SetDefault("ratelimit.uploads_per_hour", 50)
	viper.SetDefault("s3.endpoint", "")
	viper.SetDefault("s3.region", "auto")
	viper.SetDefault("s3.bucket_name", "clipvibe")
	viper.SetDefault("analysis.service_url", "http://localhost:8001")
	viper.SetDefault("analysis.timeout", 30)
	viper.SetDefault("advisor.service_url", "http://localhost:8002")
	viper.SetDefault("advisor.timeout", 30)
	viper.SetDefault("executor.service_url", "http://localhost:8003")
	viper.SetDefault("executor.timeout", 180)
	viper.SetDefault("pipeline.concurrency", 2)
	viper.SetDefault("pipeline.lease_seconds", 900)
	viper.SetDefault("pipeline.retry_short_ms", 500)
	viper.SetDefault("pipeline.retry_long_ms", 2000)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetString("server.port"),
			Env:  viper.GetString("server.env"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		MySQL: MySQLConfig{
			DSN: viper.GetString("mysql.dsn"),
		},
		JWT: JWTConfig{
			Secret:     viper.GetString("jwt.secret"),
			Expiration: viper.GetInt("jwt.expiration"),
		},
		RateLimit: RateLimitConfig{
			JobsPerHour:    viper.GetInt("ratelimit.jobs_per_hour"),
			UploadsPerHour: viper.GetInt("ratelimit.uploads_per_hour"),
		},
		S3: S3Config{
			Endpoint:        viper.GetString("s3.endpoint"),
			Region:          viper.GetString("s3.region"),
			AccessKeyID:     viper.GetString("s3.access_key_id"),
			SecretAccessKey: viper.GetString("s3.secret_access_key"),
			BucketName:      viper.GetString("s3.bucket_name"),
			PublicURL:       viper.GetString("s3.public_url"),
		},
		Analysis: AnalysisConfig{
			ServiceURL: viper.GetString("analysis.service_url"),
			Timeout:    viper.GetInt("analysis.timeout"),
		},
		Advisor: AdvisorConfig{
			ServiceURL: viper.GetString("advisor.service_url"),
			Timeout:    viper.GetInt("advisor.timeout"),
		},
		Executor: ExecutorConfig{
			ServiceURL: viper.GetString("executor.service_url"),
			Timeout:    viper.GetInt("executor.timeout"),
		},
		Pipeline: PipelineConfig{
			Concurrency:  viper.GetInt("pipeline.concurrency"),
			LeaseSeconds: viper.GetInt("pipeline.lease_seconds"),
			RetryShortMs: viper.GetInt("pipeline.retry_short_ms"),
			RetryLongMs:  viper.GetInt("pipeline.retry_long_ms"),
		},
	}

	return cfg, nil
}
