package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host                      string
		DebugHost                 string
		ReadTimeout               time.Duration
		WriteTimeout              time.Duration
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	// StorageConfig selects where proof images are kept: "local" (default) or "gcs".
	StorageConfig struct {
		Driver          string
		LocalDir        string
		PublicBaseURL   string
		GCSBucket       string
		GCSCredentials  string
		MaxUploadBytes  int64
		ProofPathPrefix string
	}

	Config struct {
		Env             string // DEV (local; default), TEST, QA, PROD
		Build           string
		Debug           bool
		TestMode        bool
		AppName         string
		SecretKey       string
		WorkDir         string
		FrontendBaseURL string
		SupportEmail    string
		SendgridApiKey  string
		RollbarToken    string
		Server          ServerConfig
		Database        DatabaseConfig
		Storage         StorageConfig

		defaultFromEmail string
	}
)

// Address returns the "host:port" the database listens on.
func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: c.defaultFromEmail}
	}
	if addr.Name == "" {
		addr.Name = c.AppName
	}
	return *addr
}

// NewConfig loads the configuration from defaults, `config/.env.<env>` (if any) and the environment.
// Environment variables are prefixed with the upper-cased env name, e.g. `PROD_DATABASE_HOST`.
func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("build", "dev")
	conf.SetDefault("appName", "Reel Bingo")
	conf.SetDefault("secretKey", "d7#hq1+k0u@t!x8_2fz^m5a&o(9c=w3s)yl4r6bvn-jpe*gi")
	conf.SetDefault("frontendBaseURL", "http://localhost:5173")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")
	conf.SetDefault("supportEmail", "support@localhost")
	conf.SetDefault("sendgridApiKey", "")
	conf.SetDefault("rollbarToken", "")

	conf.SetDefault("server.host", "0.0.0.0:8000")
	conf.SetDefault("server.debugHost", "0.0.0.0:4000")
	conf.SetDefault("server.readTimeout", 10*time.Second)
	conf.SetDefault("server.writeTimeout", 30*time.Second)
	conf.SetDefault("server.shutdownTimeout", 10*time.Second)
	conf.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("server.jwtRefreshExpirationDelta", 30*24*time.Hour)

	conf.SetDefault("database.engine", "postgres")
	conf.SetDefault("database.host", "localhost")
	conf.SetDefault("database.port", 5432)
	conf.SetDefault("database.name", "bingo")
	conf.SetDefault("database.user", "bingo")
	conf.SetDefault("database.password", "bingo")
	conf.SetDefault("database.adminUser", "postgres")
	conf.SetDefault("database.adminPassword", "postgres")
	conf.SetDefault("database.disableTLS", true)

	conf.SetDefault("storage.driver", "local")
	conf.SetDefault("storage.localDir", filepath.Join(os.TempDir(), "bingo-proofs"))
	conf.SetDefault("storage.publicBaseURL", "")
	conf.SetDefault("storage.gcsBucket", "")
	conf.SetDefault("storage.gcsCredentials", "")
	conf.SetDefault("storage.maxUploadBytes", int64(5*1024*1024))
	conf.SetDefault("storage.proofPathPrefix", "proof-images")

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		Env:             env,
		Build:           conf.GetString("build"),
		Debug:           conf.GetBool("debug"),
		TestMode:        conf.GetBool("testMode"),
		AppName:         conf.GetString("appName"),
		SecretKey:       conf.GetString("secretKey"),
		WorkDir:         wd,
		FrontendBaseURL: strings.TrimSuffix(conf.GetString("frontendBaseURL"), "/"),
		SupportEmail:    conf.GetString("supportEmail"),
		SendgridApiKey:  conf.GetString("sendgridApiKey"),
		RollbarToken:    conf.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:                      conf.GetString("server.host"),
			DebugHost:                 conf.GetString("server.debugHost"),
			ReadTimeout:               conf.GetDuration("server.readTimeout"),
			WriteTimeout:              conf.GetDuration("server.writeTimeout"),
			ShutdownTimeout:           conf.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        conf.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: conf.GetDuration("server.jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("database.engine"),
			Host:          conf.GetString("database.host"),
			Port:          conf.GetInt("database.port"),
			Name:          conf.GetString("database.name"),
			User:          conf.GetString("database.user"),
			Password:      conf.GetString("database.password"),
			AdminUser:     conf.GetString("database.adminUser"),
			AdminPassword: conf.GetString("database.adminPassword"),
			DisableTLS:    conf.GetBool("database.disableTLS"),
		},
		Storage: StorageConfig{
			Driver:          strings.ToLower(conf.GetString("storage.driver")),
			LocalDir:        conf.GetString("storage.localDir"),
			PublicBaseURL:   strings.TrimSuffix(conf.GetString("storage.publicBaseURL"), "/"),
			GCSBucket:       conf.GetString("storage.gcsBucket"),
			GCSCredentials:  conf.GetString("storage.gcsCredentials"),
			MaxUploadBytes:  conf.GetInt64("storage.maxUploadBytes"),
			ProofPathPrefix: conf.GetString("storage.proofPathPrefix"),
		},
		defaultFromEmail: conf.GetString("defaultFromEmail"),
	}
}

// NewTestConfig returns a Config suitable for unit tests; it never touches the environment.
func NewTestConfig() *Config {
	return &Config{
		Env:             "TEST",
		Build:           "test",
		TestMode:        true,
		AppName:         "Reel Bingo",
		SecretKey:       "secret",
		FrontendBaseURL: "http://localhost:5173",
		SupportEmail:    "support@test.test",
		Server: ServerConfig{
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
			ShutdownTimeout:           time.Second,
		},
		Storage: StorageConfig{
			Driver:          "memory",
			PublicBaseURL:   "http://media.test",
			MaxUploadBytes:  5 * 1024 * 1024,
			ProofPathPrefix: "proof-images",
		},
		defaultFromEmail: "noreply@test.test",
	}
}
