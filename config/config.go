package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"kheops-album-tools/constants"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingKey is wrapped by every lookup of an absent required key.
var ErrMissingKey = errors.New("config: missing key")

type Config struct {
	v    *viper.Viper
	Path string
}

type KeycloakConfig struct {
	URI          string
	Realm        string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
}

type MetadataConfig struct {
	Backend     string
	MongoURI    string
	Database    string
	Collection  string
	ESAddresses []string
	IndexPrefix string
}

type MinIOConfig struct {
	URI             string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UseSSL          bool
}

// Load reads the JSON configuration file at path. A .env file next to it is
// loaded first; environment variables override file values, with "." in
// keys replaced by "__".
func Load(path string) (*Config, error) {
	if path == "" {
		path = constants.ConfigFileDefault
	}
	if err := godotenv.Load(filepath.Join(filepath.Dir(path), ".env")); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: reading .env: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))

	v.SetDefault("workspace.env", "PRODUCTION")
	v.SetDefault("log.level", "info")
	v.SetDefault("auth.mode", constants.AuthModeStatic)
	v.SetDefault("metadata.backend", constants.BackendMongo)
	v.SetDefault("metadata.database", constants.DefaultMetadataDatabase)
	v.SetDefault("metadata.collection", constants.DefaultMetadataCollection)
	v.SetDefault("http.timeout_ms", constants.DefaultHTTPTimeoutMs)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	return &Config{v: v, Path: path}, nil
}

// Require returns the value of key or an error wrapping ErrMissingKey.
func (c *Config) Require(key string) (string, error) {
	if !c.v.IsSet(key) || strings.TrimSpace(c.v.GetString(key)) == "" {
		return "", fmt.Errorf("%w %q", ErrMissingKey, key)
	}
	return c.v.GetString(key), nil
}

func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

func (c *Config) Env() string {
	return strings.ToUpper(c.v.GetString("workspace.env"))
}

func (c *Config) LogLevel() string {
	return c.v.GetString("log.level")
}

func (c *Config) AuthMode() string {
	return c.v.GetString("auth.mode")
}

func (c *Config) HTTPTimeout() time.Duration {
	ms := c.v.GetInt("http.timeout_ms")
	if ms <= 0 {
		ms = constants.DefaultHTTPTimeoutMs
	}
	return time.Duration(ms) * time.Millisecond
}

func (c *Config) KheopsURL() (string, error) {
	return c.Require("kheops_url")
}

func (c *Config) SourceFolder() (string, error) {
	return c.Require("source_folder_location")
}

func (c *Config) SubsetFolder() (string, error) {
	return c.Require("subset_folder_location")
}

func (c *Config) RedisURI() string {
	return c.v.GetString("redis.uri")
}

// Keycloak returns the identity provider settings. Only the URI and realm are
// required; the grant decides which of the remaining fields are used.
func (c *Config) Keycloak() (*KeycloakConfig, error) {
	uri, err := c.Require("keycloak.uri")
	if err != nil {
		return nil, err
	}
	realm, err := c.Require("keycloak.realm")
	if err != nil {
		return nil, err
	}
	clientID, err := c.Require("keycloak.client_id")
	if err != nil {
		return nil, err
	}
	return &KeycloakConfig{
		URI:          uri,
		Realm:        realm,
		ClientID:     clientID,
		ClientSecret: c.v.GetString("keycloak.client_secret"),
		Username:     c.v.GetString("keycloak.username"),
		Password:     c.v.GetString("keycloak.password"),
	}, nil
}

func (c *Config) Metadata() (*MetadataConfig, error) {
	mc := &MetadataConfig{
		Backend:    c.v.GetString("metadata.backend"),
		Database:   c.v.GetString("metadata.database"),
		Collection: c.v.GetString("metadata.collection"),
	}

	switch mc.Backend {
	case constants.BackendMongo:
		uri, err := c.Require("mongo_uri")
		if err != nil {
			return nil, err
		}
		mc.MongoURI = uri
	case constants.BackendElasticsearch:
		if single := c.v.GetString("elasticsearch.uri"); single != "" {
			mc.ESAddresses = []string{single}
		} else {
			mc.ESAddresses = c.v.GetStringSlice("elasticsearch.uris")
		}
		if len(mc.ESAddresses) == 0 {
			return nil, fmt.Errorf("%w %q", ErrMissingKey, "elasticsearch.uris")
		}
		prefix, err := c.Require("elasticsearch.index_prefix")
		if err != nil {
			return nil, err
		}
		mc.IndexPrefix = prefix
	default:
		return nil, fmt.Errorf("config: unknown metadata backend %q", mc.Backend)
	}
	return mc, nil
}

// MinIO returns the object storage settings, or false when none are configured.
func (c *Config) MinIO() (*MinIOConfig, bool) {
	uri := c.v.GetString("minio.uri")
	if uri == "" {
		return nil, false
	}
	return &MinIOConfig{
		URI:             uri,
		AccessKeyID:     c.v.GetString("minio.access_key_id"),
		SecretAccessKey: c.v.GetString("minio.secret_access_key"),
		BucketName:      c.v.GetString("minio.bucket_name"),
		UseSSL:          c.v.GetBool("minio.use_ssl"),
	}, true
}
