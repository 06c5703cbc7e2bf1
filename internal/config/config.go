package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds everything the server and the CLI read at startup.
type Config struct {
	Port      string          `mapstructure:"port"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"db"`
	Auth      AuthConfig      `mapstructure:"auth"`
	CORS      CORSConfig      `mapstructure:"cors"`
	GCP       GCPConfig       `mapstructure:"gcp"`
	Batch     BatchConfig     `mapstructure:"batch"`
	Storage   StorageConfig   `mapstructure:"storage"`
	MinIO     MinIOConfig     `mapstructure:"minio"`
	S3        S3Config        `mapstructure:"s3"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN renders the postgres connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type AuthConfig struct {
	JWTSecret    string        `mapstructure:"jwt_secret"`
	TokenTTL     time.Duration `mapstructure:"token_ttl"`
	CookieDomain string        `mapstructure:"cookie_domain"`
	CookieSecure bool          `mapstructure:"cookie_secure"`
}

type CORSConfig struct {
	AllowedOrigin string `mapstructure:"allowed_origin"`
}

// GCPConfig scopes batch jobs to a project and region. Credentials are
// optional; application default credentials apply when both are empty.
type GCPConfig struct {
	ProjectID       string `mapstructure:"project_id"`
	Region          string `mapstructure:"region"`
	CredentialsFile string `mapstructure:"credentials_file"`
	CredentialsJSON string `mapstructure:"credentials_json"`
}

type BatchConfig struct {
	Backend        string        `mapstructure:"backend"`
	ImageURI       string        `mapstructure:"image_uri"`
	Entrypoint     string        `mapstructure:"entrypoint"`
	Script         string        `mapstructure:"script"`
	MachineType    string        `mapstructure:"machine_type"`
	MaxRunDuration time.Duration `mapstructure:"max_run_duration"`
	EnvLabel       string        `mapstructure:"env_label"`
	LocalWorkdir   string        `mapstructure:"local_workdir"`
}

type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	Bucket  string `mapstructure:"bucket"`
}

type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

type S3Config struct {
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	ForcePathStyle  bool   `mapstructure:"force_path_style"`
}

type RateLimitConfig struct {
	SubmitPerMinute float64 `mapstructure:"submit_per_minute"`
	Burst           int     `mapstructure:"burst"`
}

// Backend names accepted in batch.backend and storage.backend.
const (
	BackendGCP    = "gcp"
	BackendLocal  = "local"
	BackendMemory = "memory"
	BackendMinIO  = "minio"
	BackendS3     = "s3"
	BackendGCS    = "gcs"
)

// SetDefaults registers a default for every key. Viper only resolves
// environment variables during Unmarshal for keys it already knows about.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "scrape_portal")
	v.SetDefault("db.sslmode", "disable")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.cookie_domain", "localhost")
	v.SetDefault("auth.cookie_secure", false)

	v.SetDefault("cors.allowed_origin", "http://localhost:3000")

	v.SetDefault("gcp.project_id", "")
	v.SetDefault("gcp.region", "")
	v.SetDefault("gcp.credentials_file", "")
	v.SetDefault("gcp.credentials_json", "")

	v.SetDefault("batch.backend", BackendGCP)
	v.SetDefault("batch.image_uri", "")
	v.SetDefault("batch.entrypoint", "python")
	v.SetDefault("batch.script", "scraper.py")
	v.SetDefault("batch.machine_type", "e2-small")
	v.SetDefault("batch.max_run_duration", 2*time.Hour)
	v.SetDefault("batch.env_label", "prod")
	v.SetDefault("batch.local_workdir", ".")

	v.SetDefault("storage.backend", BackendGCS)
	v.SetDefault("storage.bucket", "")

	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.access_key", "")
	v.SetDefault("minio.secret_key", "")
	v.SetDefault("minio.use_ssl", false)

	v.SetDefault("s3.region", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_access_key", "")
	v.SetDefault("s3.force_path_style", false)

	v.SetDefault("ratelimit.submit_per_minute", 6.0)
	v.SetDefault("ratelimit.burst", 2)
}

// New returns a viper instance bound to the environment, where a key such as
// minio.endpoint is read from MINIO_ENDPOINT.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// Load reads an optional .env file, then the environment, and validates the
// backend settings. Callers that issue tokens also need ValidateServer.
func Load() (*Config, error) {
	// A missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg, err := LoadWithViper(New())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithViper unmarshals cfg from an already prepared viper instance.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	cfg.Batch.Backend = strings.ToLower(strings.TrimSpace(cfg.Batch.Backend))
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	return &cfg, nil
}

// Validate checks that the settings the selected backends depend on are
// present. Values are not otherwise interpreted.
func (c *Config) Validate() error {
	return c.validate(false)
}

// ValidateServer is Validate plus the settings only the HTTP server needs.
func (c *Config) ValidateServer() error {
	return c.validate(true)
}

func (c *Config) validate(server bool) error {
	var missing []string
	require := func(key, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, key)
		}
	}

	if server {
		require("auth.jwt_secret", c.Auth.JWTSecret)
	}

	switch c.Batch.Backend {
	case BackendGCP:
		require("gcp.project_id", c.GCP.ProjectID)
		require("gcp.region", c.GCP.Region)
		require("batch.image_uri", c.Batch.ImageURI)
	case BackendLocal, BackendMemory:
	default:
		return errors.Newf("unknown batch backend %q", c.Batch.Backend)
	}
	if c.Batch.MaxRunDuration <= 0 {
		return errors.New("batch.max_run_duration must be positive")
	}

	switch c.Storage.Backend {
	case BackendGCS, BackendS3:
		require("storage.bucket", c.Storage.Bucket)
	case BackendMinIO:
		require("storage.bucket", c.Storage.Bucket)
		require("minio.endpoint", c.MinIO.Endpoint)
	case BackendMemory:
	default:
		return errors.Newf("unknown storage backend %q", c.Storage.Backend)
	}

	if len(missing) > 0 {
		return errors.WithHint(
			errors.Newf("missing configuration: %s", strings.Join(missing, ", ")),
			"set the matching environment variables, e.g. GCP_PROJECT_ID, or add them to .env",
		)
	}
	return nil
}
