package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/hasker/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig mirrors Config for JSON and YAML files. Durations use
// timex.Duration, which accepts strings such as "15m" and integer
// nanoseconds. Zero values leave the current setting untouched.
type FileConfig struct {
	HTTPAddr                     string         `json:"http_addr" yaml:"http_addr"`
	BaseURL                      string         `json:"base_url" yaml:"base_url"`
	DatabaseDriver               string         `json:"database_driver" yaml:"database_driver"`
	DatabaseDSN                  string         `json:"database_dsn" yaml:"database_dsn"`
	SecretKey                    string         `json:"secret_key" yaml:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration" yaml:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration" yaml:"refresh_token_validity_duration"`
	StorageBackend               string         `json:"storage_backend" yaml:"storage_backend"`
	MediaDir                     string         `json:"media_dir" yaml:"media_dir"`
	S3RootUser                   string         `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region                     string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	AvatarMaxSize                int64          `json:"avatar_max_size" yaml:"avatar_max_size"`
	AvatarContentTypes           []string       `json:"avatar_content_types" yaml:"avatar_content_types"`
	SMTPHost                     string         `json:"smtp_host" yaml:"smtp_host"`
	SMTPPort                     int            `json:"smtp_port" yaml:"smtp_port"`
	SMTPUser                     string         `json:"smtp_user" yaml:"smtp_user"`
	SMTPPassword                 string         `json:"smtp_password" yaml:"smtp_password"`
	MailFrom                     string         `json:"mail_from" yaml:"mail_from"`
	PaginateQuestions            int            `json:"paginate_questions" yaml:"paginate_questions"`
	PaginateAnswers              int            `json:"paginate_answers" yaml:"paginate_answers"`
	PaginateTags                 int            `json:"paginate_tags" yaml:"paginate_tags"`
	TrendingLimit                int            `json:"trending_limit" yaml:"trending_limit"`
	MaxTags                      int            `json:"max_tags" yaml:"max_tags"`
	LogLevel                     string         `json:"log_level" yaml:"log_level"`
	LogFormat                    string         `json:"log_format" yaml:"log_format"`
	LoginRateLimit               float64        `json:"login_rate_limit" yaml:"login_rate_limit"`
	LoginRateBurst               int            `json:"login_rate_burst" yaml:"login_rate_burst"`
	ShutdownTimeout              timex.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// parseFile loads path (JSON, or YAML for .yaml/.yml) and overlays the
// values it sets onto config.
func parseFile(config *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &FileConfig{}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	default:
		err = json.Unmarshal(data, c)
	}
	if err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	c.apply(config)
	return nil
}

func (c *FileConfig) apply(config *Config) {
	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.BaseURL, c.BaseURL)
	setString(&config.DatabaseDriver, c.DatabaseDriver)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.AccessTokenValidityDuration.Duration > 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration.Duration > 0 {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	setString(&config.StorageBackend, c.StorageBackend)
	setString(&config.MediaDir, c.MediaDir)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	if c.AvatarMaxSize > 0 {
		config.AvatarMaxSize = c.AvatarMaxSize
	}
	if len(c.AvatarContentTypes) > 0 {
		config.AvatarContentTypes = c.AvatarContentTypes
	}
	setString(&config.SMTPHost, c.SMTPHost)
	setInt(&config.SMTPPort, c.SMTPPort)
	setString(&config.SMTPUser, c.SMTPUser)
	setString(&config.SMTPPassword, c.SMTPPassword)
	setString(&config.MailFrom, c.MailFrom)
	setInt(&config.PaginateQuestions, c.PaginateQuestions)
	setInt(&config.PaginateAnswers, c.PaginateAnswers)
	setInt(&config.PaginateTags, c.PaginateTags)
	setInt(&config.TrendingLimit, c.TrendingLimit)
	setInt(&config.MaxTags, c.MaxTags)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)
	if c.LoginRateLimit > 0 {
		config.LoginRateLimit = c.LoginRateLimit
	}
	setInt(&config.LoginRateBurst, c.LoginRateBurst)
	if c.ShutdownTimeout.Duration > 0 {
		config.ShutdownTimeout = c.ShutdownTimeout.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
