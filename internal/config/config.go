package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const defaultConfigPath = "./config/local.yaml"

type Config struct {
	Env        string `yaml:"env" env:"ENV" env-default:"prod"`
	HTTPServer `yaml:"http_server"`
	MySQL      MySQL     `yaml:"mysql"`
	Mongo      Mongo     `yaml:"mongo"`
	JWT        JWT       `yaml:"jwt"`
	Admin      Admin     `yaml:"admin"`
	S3         S3        `yaml:"s3"`
	Form       Form      `yaml:"form"`
	RateLimit  RateLimit `yaml:"rate_limit"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:4001"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
	// RequestTimeout bounds the storage calls of one request.
	RequestTimeout time.Duration `yaml:"request_timeout" env-default:"5s"`
	AllowedOrigins []string      `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" env-separator:","`
}

type MySQL struct {
	User      string `yaml:"user" env:"MYSQL_USER" env-required:"true"`
	Password  string `yaml:"password" env:"MYSQL_PASSWORD"`
	Host      string `yaml:"host" env:"MYSQL_HOST" env-default:"localhost"`
	Port      int    `yaml:"port" env:"MYSQL_PORT" env-default:"3306"`
	Name      string `yaml:"name" env:"MYSQL_DATABASE" env-required:"true"`
	ParseTime bool   `yaml:"parse_time" env-default:"true"`
}

type Mongo struct {
	URI      string `yaml:"uri" env:"MONGO_URI" env-default:"mongodb://localhost:27017"`
	Database string `yaml:"database" env:"MONGO_DATABASE" env-default:"valuation"`
}

type JWT struct {
	Secret string        `yaml:"secret" env:"JWT_SECRET" env-required:"true"`
	TTL    time.Duration `yaml:"ttl" env-default:"12h"`
}

type Admin struct {
	Login string `yaml:"login" env:"ADMIN_LOGIN"`
	Pass  string `yaml:"pass" env:"ADMIN_PASS"`
}

type S3 struct {
	Endpoint        string `yaml:"endpoint" env:"S3_ENDPOINT"`
	Region          string `yaml:"region" env:"S3_REGION" env-default:"auto"`
	Bucket          string `yaml:"bucket" env:"S3_BUCKET"`
	AccessKeyID     string `yaml:"access_key_id" env:"S3_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" env:"S3_SECRET_ACCESS_KEY"`
	PublicURL       string `yaml:"public_url" env:"S3_PUBLIC_URL"`
	MaxUploadMB     int64  `yaml:"max_upload_mb" env-default:"10"`
}

// Enabled reports whether file uploads are configured.
func (s S3) Enabled() bool {
	return s.Bucket != "" && s.AccessKeyID != ""
}

type Form struct {
	Debounce time.Duration `yaml:"debounce" env-default:"300ms"`
}

type RateLimit struct {
	LoginPerMinute int `yaml:"login_per_minute" env-default:"10"`
	Burst          int `yaml:"burst" env-default:"5"`
}

// DSN is the go-sql-driver connection string.
func (m MySQL) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=%v",
		m.User,
		m.Password,
		m.Host,
		m.Port,
		m.Name,
		m.ParseTime,
	)
}

// MustConfig loads an optional .env file, then the yaml file at CONFIG_PATH
// (./config/local.yaml by default). Environment variables override the file.
func MustConfig() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("cannot read .env: %s", err)
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("config file does not exist: %s", configPath)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}

	return &cfg
}
