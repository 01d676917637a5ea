package core

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Addr           string
		DisableReqLogs bool
	}

	StorageConfig struct {
		Driver        string // memory | sqlite | postgres | redis
		DSN           string
		Key           string // durable storage slot holding the session record
		RedisAddr     string
		RedisPassword string
	}

	RegistryConfig struct {
		Driver string // memory | sqlite | postgres
		DSN    string
	}

	Config struct {
		AppName              string
		Env                  string
		Build                string
		Debug                bool
		TestMode             bool
		DefaultFromEmail     string
		FrontendBaseURL      string
		ProfileEditLink      string
		SendgridAPIKey       string
		RollbarToken         string
		SecretKey            string
		PasswordResetTimeout time.Duration // reset links stay valid this long, in whole days
		Server               ServerConfig
		Storage              StorageConfig
		Registry             RegistryConfig
	}
)

// LoadConfig reads the configuration from the environment.
// A `config/.env.<env>` file is loaded first when it exists under workDir.
func LoadConfig(workDir string) (*Config, error) {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Jamii")
	v.SetDefault("build", "dev")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("profileEditLink", "/profile/edit")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("secretKey", "insecure-dev-secret")
	v.SetDefault("passwordResetTimeout", 72*time.Hour)
	v.SetDefault("serverAddr", ":8000")
	v.SetDefault("serverDisableReqLogs", false)
	v.SetDefault("storageDriver", "sqlite")
	v.SetDefault("storageDSN", "jamii.db")
	v.SetDefault("storageKey", "user")
	v.SetDefault("redisAddr", "127.0.0.1:6379")
	v.SetDefault("redisPassword", "")
	v.SetDefault("registryDriver", "memory")
	v.SetDefault("registryDSN", "jamii-users.db")
	v.SetDefault("testMode", false)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
		v.SetDefault("storageDriver", "memory")
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "stat %s", dotEnvPath)
	}
	v.AutomaticEnv()

	return &Config{
		AppName:              v.GetString("appName"),
		Env:                  env,
		Build:                v.GetString("build"),
		Debug:                v.GetBool("debug"),
		TestMode:             v.GetBool("testMode"),
		DefaultFromEmail:     v.GetString("defaultFromEmail"),
		FrontendBaseURL:      strings.TrimSuffix(v.GetString("frontendBaseURL"), "/"),
		ProfileEditLink:      v.GetString("profileEditLink"),
		SendgridAPIKey:       v.GetString("sendgridApiKey"),
		RollbarToken:         v.GetString("rollbarToken"),
		SecretKey:            v.GetString("secretKey"),
		PasswordResetTimeout: v.GetDuration("passwordResetTimeout"),
		Server: ServerConfig{
			Addr:           v.GetString("serverAddr"),
			DisableReqLogs: v.GetBool("serverDisableReqLogs"),
		},
		Storage: StorageConfig{
			Driver:        strings.ToLower(v.GetString("storageDriver")),
			DSN:           v.GetString("storageDSN"),
			Key:           v.GetString("storageKey"),
			RedisAddr:     v.GetString("redisAddr"),
			RedisPassword: v.GetString("redisPassword"),
		},
		Registry: RegistryConfig{
			Driver: strings.ToLower(v.GetString("registryDriver")),
			DSN:    v.GetString("registryDSN"),
		},
	}, nil
}
