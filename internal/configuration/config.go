package configuration

import (
	"github.com/BurntSushi/toml"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/pkg/errors"

	"ecoretail/internal/logger"
)

type Config struct {
	ServerAddress string
	DatabaseURI   string
	RedisAddress  string
	DealsFile     string
	GeminiAPIKey  string
	MapsAPIKey    string
	LogLevel      logger.Level
	LogToFile     bool
	AuthSecretKey jwk.Key
}

type tomlConfig struct {
	ServerAddress string `toml:"server_address"`
	DatabaseURI   string `toml:"database_uri"`
	RedisAddress  string `toml:"redis_address"`
	DealsFile     string `toml:"deals_file"`
	GeminiAPIKey  string `toml:"gemini_api_key"`
	MapsAPIKey    string `toml:"maps_api_key"`
	LogLevel      string `toml:"log_level"`
	LogToFile     bool   `toml:"log_to_file"`
	AuthSecretKey string `toml:"auth_secret_key"`
}

func GetConfig(path string) (*Config, error) {
	var tc tomlConfig
	_, err := toml.DecodeFile(path, &tc)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode toml file with path: %s", path)
	}

	if tc.ServerAddress == "" {
		tc.ServerAddress = "localhost:8888"
	}

	if tc.DatabaseURI == "" {
		tc.DatabaseURI = "mongodb://localhost:27017"
	}

	if tc.LogLevel == "" {
		tc.LogLevel = "INFO"
	}
	logLevel, err := logger.ParseLevel(tc.LogLevel)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse log_level")
	}

	if tc.GeminiAPIKey == "" {
		return nil, errors.New("gemini_api_key is not set")
	}

	if tc.MapsAPIKey == "" {
		return nil, errors.New("maps_api_key is not set")
	}

	if tc.AuthSecretKey == "" {
		return nil, errors.New("auth_secret_key is not set")
	}

	authSecretKey, err := jwk.FromRaw([]byte(tc.AuthSecretKey))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create key from auth_secret_key")
	}

	return &Config{
		ServerAddress: tc.ServerAddress,
		DatabaseURI:   tc.DatabaseURI,
		RedisAddress:  tc.RedisAddress,
		DealsFile:     tc.DealsFile,
		GeminiAPIKey:  tc.GeminiAPIKey,
		MapsAPIKey:    tc.MapsAPIKey,
		LogLevel:      logLevel,
		LogToFile:     tc.LogToFile,
		AuthSecretKey: authSecretKey,
	}, nil
}
