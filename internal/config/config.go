package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

var (
	ErrEmptyPort       = errors.New("port must not be empty")
	ErrInvalidDuration = errors.New("duration must be positive")
)

type Config struct {
	LogLevel       string   `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort       string   `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort     string   `yaml:"socket-port" env:"SOCKET_PORT" env-default:"3001"`
	AllowedOrigins []string `yaml:"allowed-origins" env:"ALLOWED_ORIGINS" env-separator:","`
	Rooms          Rooms    `yaml:"rooms"`
	Redis          Redis    `yaml:"redis"`
}

type Rooms struct {
	Expiry        time.Duration `yaml:"expiry" env:"ROOM_EXPIRY" env-default:"24h"`
	SweepInterval time.Duration `yaml:"sweep-interval" env:"ROOM_SWEEP_INTERVAL" env-default:"1h"`
}

type Redis struct {
	Enabled    bool          `yaml:"enabled" env:"REDIS_ENABLED" env-default:"false"`
	Host       string        `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port       string        `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password   string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB         int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	ResultsTTL time.Duration `yaml:"results-ttl" env:"REDIS_RESULTS_TTL" env-default:"168h"`
}

// MustLoad - load all configurations from the yml file at path, falling back to the
// environment alone when the file does not exist.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(fmt.Errorf("unable to load config: %w", err))
	}

	return config
}

func Load(path string) (*Config, error) {
	config := &Config{}

	var err error
	if _, statErr := os.Stat(path); statErr == nil {
		err = cleanenv.ReadConfig(path, config)
	} else {
		err = cleanenv.ReadEnv(config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err = config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (that *Config) Validate() error {
	if that.HTTPPort == "" || that.SocketPort == "" {
		return ErrEmptyPort
	}

	if that.Rooms.Expiry <= 0 {
		return fmt.Errorf("%w: rooms.expiry %s", ErrInvalidDuration, that.Rooms.Expiry)
	}

	if that.Rooms.SweepInterval <= 0 {
		return fmt.Errorf("%w: rooms.sweep-interval %s", ErrInvalidDuration, that.Rooms.SweepInterval)
	}

	return nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
