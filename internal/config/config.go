package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env         string            `yaml:"env" env-default:"local"`
	DSN         string            `yaml:"dsn" env:"BOLTVAULT_DSN" env-required:"true"`
	HTTP        HTTPConfig        `yaml:"http"`
	Session     SessionConfig     `yaml:"session"`
	FileStorage FileStorageConfig `yaml:"file_storage"`
	Redis       RedisConf         `yaml:"redis"`
	Gallery     GalleryConfig     `yaml:"gallery"`
}

type HTTPConfig struct {
	Host            string        `yaml:"host" env:"BOLTVAULT_HTTP_HOST"`
	Port            string        `yaml:"port" env:"BOLTVAULT_HTTP_PORT" env-default:"8080"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env-default:"10s"`
}

type SessionConfig struct {
	Secret        string        `yaml:"secret" env:"BOLTVAULT_SESSION_SECRET" env-required:"true"`
	CookieSecret  string        `yaml:"cookie_secret" env:"BOLTVAULT_COOKIE_SECRET" env-required:"true"`
	TokenTTL      time.Duration `yaml:"token_ttl" env-default:"24h"`
	WorkspaceTTL  time.Duration `yaml:"workspace_ttl" env-default:"30m"`
	SecureCookies bool          `yaml:"secure_cookies" env-default:"false"`
}

type FileStorageConfig struct {
	BaseDir string `yaml:"base_dir" env-default:"./uploads"`
	BaseURL string `yaml:"base_url" env-default:"http://localhost:8080/uploads"`
	MaxSize int64  `yaml:"max_size" env-default:"52428800"`
}

type RedisConf struct {
	RedisAddr     string `yaml:"redis_addr" env:"BOLTVAULT_REDIS_ADDR" env-default:"localhost:6379"`
	RedisPassword string `yaml:"redispassword" env:"BOLTVAULT_REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env-default:"0"`
}

type GalleryConfig struct {
	PageSize       int           `yaml:"page_size" env-default:"20"`
	SearchDebounce time.Duration `yaml:"search_debounce" env-default:"300ms"`
}

func MustLoad() *Config {
	path := fetchConfigPath()
	if path == "" {
		panic("config path is empty")
	}

	return MustLoadPath(path)
}

func MustLoadPath(configPath string) *Config {
	// check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("cannot read config: " + err.Error())
	}

	return &cfg
}

func fetchConfigPath() string {
	var res string

	// --config="path/to/config.yaml"
	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	return res
}
