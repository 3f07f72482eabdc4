package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable read by parseEnv.
const EnvPrefix = "HASKER_"

// loadDotEnv exports the variables of path into the process environment.
// Variables that are already set win; a missing file is ignored.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

type envSetter func(c *Config, v string) error

var envVars = map[string]envSetter{
	"HTTP_ADDR":       str(func(c *Config) *string { return &c.HTTPAddr }),
	"BASE_URL":        str(func(c *Config) *string { return &c.BaseURL }),
	"DATABASE_DRIVER": str(func(c *Config) *string { return &c.DatabaseDriver }),
	"DATABASE_DSN":    str(func(c *Config) *string { return &c.DatabaseDSN }),
	"SECRET_KEY":      str(func(c *Config) *string { return &c.SecretKey }),
	"ACCESS_TOKEN_VALIDITY_DURATION": dur(func(c *Config) *time.Duration {
		return &c.AccessTokenValidityDuration
	}),
	"REFRESH_TOKEN_VALIDITY_DURATION": dur(func(c *Config) *time.Duration {
		return &c.RefreshTokenValidityDuration
	}),
	"STORAGE_BACKEND":    str(func(c *Config) *string { return &c.StorageBackend }),
	"MEDIA_DIR":          str(func(c *Config) *string { return &c.MediaDir }),
	"S3_ROOT_USER":       str(func(c *Config) *string { return &c.S3RootUser }),
	"S3_ROOT_PASSWORD":   str(func(c *Config) *string { return &c.S3RootPassword }),
	"S3_BUCKET":          str(func(c *Config) *string { return &c.S3Bucket }),
	"S3_REGION":          str(func(c *Config) *string { return &c.S3Region }),
	"S3_BASE_ENDPOINT":   str(func(c *Config) *string { return &c.S3BaseEndpoint }),
	"SMTP_HOST":          str(func(c *Config) *string { return &c.SMTPHost }),
	"SMTP_PORT":          num(func(c *Config) *int { return &c.SMTPPort }),
	"SMTP_USER":          str(func(c *Config) *string { return &c.SMTPUser }),
	"SMTP_PASSWORD":      str(func(c *Config) *string { return &c.SMTPPassword }),
	"MAIL_FROM":          str(func(c *Config) *string { return &c.MailFrom }),
	"PAGINATE_QUESTIONS": num(func(c *Config) *int { return &c.PaginateQuestions }),
	"PAGINATE_ANSWERS":   num(func(c *Config) *int { return &c.PaginateAnswers }),
	"PAGINATE_TAGS":      num(func(c *Config) *int { return &c.PaginateTags }),
	"TRENDING_LIMIT":     num(func(c *Config) *int { return &c.TrendingLimit }),
	"MAX_TAGS":           num(func(c *Config) *int { return &c.MaxTags }),
	"LOG_LEVEL":          str(func(c *Config) *string { return &c.LogLevel }),
	"LOG_FORMAT":         str(func(c *Config) *string { return &c.LogFormat }),
	"AVATAR_MAX_SIZE": func(c *Config, v string) error {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return err
		}
		c.AvatarMaxSize = n
		return nil
	},
	"AVATAR_CONTENT_TYPES": func(c *Config, v string) error {
		var types []string
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				types = append(types, t)
			}
		}
		c.AvatarContentTypes = types
		return nil
	},
	"LOGIN_RATE_LIMIT": func(c *Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		c.LoginRateLimit = f
		return nil
	},
	"LOGIN_RATE_BURST": num(func(c *Config) *int { return &c.LoginRateBurst }),
	"SHUTDOWN_TIMEOUT": dur(func(c *Config) *time.Duration { return &c.ShutdownTimeout }),
}

// parseEnv overlays HASKER_* variables found through lookup onto config.
func parseEnv(config *Config, lookup func(string) (string, bool)) error {
	for name, set := range envVars {
		v, ok := lookup(EnvPrefix + name)
		if !ok || v == "" {
			continue
		}
		if err := set(config, v); err != nil {
			return fmt.Errorf("env %s%s: %w", EnvPrefix, name, err)
		}
	}
	return nil
}

func str(field func(*Config) *string) envSetter {
	return func(c *Config, v string) error {
		*field(c) = v
		return nil
	}
}

func num(field func(*Config) *int) envSetter {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

func dur(field func(*Config) *time.Duration) envSetter {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*field(c) = d
		return nil
	}
}
