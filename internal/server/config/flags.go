package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/hasker/internal/flagx"
)

var knownFlags = []string{
	"-a", "-d", "-driver", "-s", "-t", "-r", "-storage", "-m",
	"-u", "-p", "-b", "-g", "-e", "-l",
}

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string        HTTP bind address (e.g., ":8000")
//	-d string        database DSN
//	-driver string   database driver, "pgx" or "sqlite"
//	-s string        JWT HMAC secret key
//	-t int           access token validity, minutes
//	-r int           refresh token validity, minutes
//	-storage string  storage backend, "local" or "s3"
//	-m string        media directory of the local backend
//	-u string        S3 root user
//	-p string        S3 root password
//	-b string        S3 bucket name
//	-g string        S3 region
//	-e string        S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-l string        log level
//
// Notes:
//   - args are first filtered with flagx.FilterArgs, so flags owned by other
//     components (-c, -routes) do not break parsing.
//   - Duration flags are accepted as integers in minutes.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, knownFlags)

	fs := flag.NewFlagSet("hasker", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.DatabaseDriver, "driver", config.DatabaseDriver, "database driver (pgx|sqlite)")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh_token_validity_duration (in minutes)")

	fs.StringVar(&config.StorageBackend, "storage", config.StorageBackend, "storage backend (local|s3)")
	fs.StringVar(&config.MediaDir, "m", config.MediaDir, "media directory")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
		case "r":
			config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
		}
	})
	return nil
}
