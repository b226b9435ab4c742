package core

import (
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Database engines
const (
	EnginePostgres = "postgres" // lib/pq
	EnginePgx      = "pgx"      // jackc/pgx stdlib
	EngineSQLite   = "sqlite"   // modernc.org/sqlite
	EngineMemory   = "memory"   // in-process store, nothing persisted
)

const defaultSecretKey = "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy"

// Upload backends
const (
	UploadsLocal = "local"
	UploadsS3    = "s3"
)

type (
	Config struct {
		Env              string `mapstructure:"-"`
		Build            string `mapstructure:"build"`
		Debug            bool   `mapstructure:"debug"`
		TestMode         bool   `mapstructure:"testMode"`
		AppName          string `mapstructure:"appName"`
		SecretKey        string `mapstructure:"secretKey"`
		DefaultFromEmail string `mapstructure:"defaultFromEmail"`
		FrontendBaseURL  string `mapstructure:"frontendBaseURL"`
		RollbarToken     string `mapstructure:"rollbarToken"`
		SendgridApiKey   string `mapstructure:"sendgridApiKey"`

		Server   ServerConfig   `mapstructure:"server"`
		Database DatabaseConfig `mapstructure:"database"`
		Uploads  UploadsConfig  `mapstructure:"uploads"`
		Admin    AdminConfig    `mapstructure:"admin"`
	}

	ServerConfig struct {
		Host                   string        `mapstructure:"host"`
		Address                string        `mapstructure:"address"`
		DebugHost              string        `mapstructure:"debugHost"`
		ShutdownTimeout        time.Duration `mapstructure:"shutdownTimeout"`
		SessionCookie          string        `mapstructure:"sessionCookie"`
		SessionExpirationDelta time.Duration `mapstructure:"sessionExpirationDelta"`
		DisableReqLogs         bool          `mapstructure:"disableReqLogs"`
	}

	DatabaseConfig struct {
		Engine        string `mapstructure:"engine"`
		Host          string `mapstructure:"host"`
		Port          string `mapstructure:"port"`
		Name          string `mapstructure:"name"`
		User          string `mapstructure:"user"`
		Password      string `mapstructure:"password"`
		AdminUser     string `mapstructure:"adminUser"`
		AdminPassword string `mapstructure:"adminPassword"`
		DisableTLS    bool   `mapstructure:"disableTLS"`
	}

	UploadsConfig struct {
		Backend     string `mapstructure:"backend"`
		Dir         string `mapstructure:"dir"`
		BaseURL     string `mapstructure:"baseURL"`
		S3Bucket    string `mapstructure:"s3Bucket"`
		S3Region    string `mapstructure:"s3Region"`
		S3Endpoint  string `mapstructure:"s3Endpoint"`
		S3AccessKey string `mapstructure:"s3AccessKey"`
		S3SecretKey string `mapstructure:"s3SecretKey"`
	}

	// AdminConfig holds the credentials of the bootstrap admin account.
	AdminConfig struct {
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		Email    string `mapstructure:"email"`
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// DefaultFromAddress parses DefaultFromEmail, falling back to a bare address on error.
func (c *Config) DefaultFromAddress() mail.Address {
	addr, err := mail.ParseAddress(c.DefaultFromEmail)
	if err != nil {
		return mail.Address{Address: c.DefaultFromEmail}
	}
	return *addr
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)
	v.SetDefault("build", "dev")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "College Admin")
	v.SetDefault("secretKey", defaultSecretKey)
	v.SetDefault("defaultFromEmail", "College Admin <noreply@localhost>")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":3000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.sessionCookie", "college_session")
	v.SetDefault("server.sessionExpirationDelta", 12*time.Hour)
	v.SetDefault("server.disableReqLogs", false)

	v.SetDefault("database.engine", EngineSQLite)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "college.db")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("uploads.backend", UploadsLocal)
	v.SetDefault("uploads.dir", filepath.Join("public", "uploads"))
	v.SetDefault("uploads.baseURL", "/uploads")
	v.SetDefault("uploads.s3Bucket", "college")
	v.SetDefault("uploads.s3Region", "us-east-1")
	v.SetDefault("uploads.s3Endpoint", "")
	v.SetDefault("uploads.s3AccessKey", "")
	v.SetDefault("uploads.s3SecretKey", "")

	v.SetDefault("admin.username", "admin")
	v.SetDefault("admin.password", "admin123")
	v.SetDefault("admin.name", "Super Admin")
	v.SetDefault("admin.email", "admin@college.com")
}

// NewConfig loads the configuration for the current ENV (DEV by default).
// Values come from defaults, then an optional config/.env.<env> file, then the environment,
// where every key is prefixed with the ENV name, e.g. DEV_DATABASE_ENGINE=postgres.
func NewConfig() (*Config, error) {
	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}

	v := viper.New()
	setDefaults(v)
	if env == "TEST" {
		v.SetDefault("testMode", true)
		v.SetDefault("database.name", ":memory:")
	}
	if env == "PROD" {
		v.SetDefault("debug", false)
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", dotEnvPath)
	}

	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	conf := new(Config)
	if err := v.Unmarshal(conf); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	conf.Env = env

	if !conf.Debug && conf.SecretKey == defaultSecretKey {
		return nil, errors.Errorf("config: %s_SECRETKEY must be set outside debug mode", env)
	}
	return conf, nil
}

// NewTestConfig returns the configuration used by tests: in-memory SQLite, no request logs.
func NewTestConfig() *Config {
	v := viper.New()
	setDefaults(v)
	v.Set("testMode", true)
	v.Set("database.name", ":memory:")
	v.Set("server.disableReqLogs", true)

	conf := new(Config)
	_ = v.Unmarshal(conf)
	conf.Env = "TEST"
	return conf
}
