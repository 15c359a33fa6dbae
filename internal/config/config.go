package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

const defaultPort = 4000

type Server struct {
	Host  string `toml:"host"`
	Port  int    `toml:"port"`
	Debug bool   `toml:"debug_mode"`
}

type Auth struct {
	SqliteFile    string `toml:"sqlite_file"`
	SessionSecret string `toml:"session_secret"`
	SessionTTL    string `toml:"session_ttl"`
}

type Config struct {
	Server Server `toml:"server"`
	Auth   Auth   `toml:"auth"`
}

func New() (Config, error) {
	return Load("configs/server.toml")
}

// Load reads the toml file and applies environment overrides: PORT,
// SESSION_SECRET and DATABASE_URL win over the file values.
func Load(path string) (Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, err
	}
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return Config{}, errors.New("invalid PORT value: " + port)
		}
		cfg.Server.Port = p
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaultPort
	}
	if secret := os.Getenv("SESSION_SECRET"); secret != "" {
		cfg.Auth.SessionSecret = secret
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		cfg.Auth.SqliteFile = dsn
	}
	if cfg.Auth.SessionSecret == "" {
		return Config{}, errors.New("session secret is not set")
	}
	return cfg, nil
}
