// Command devtool supports local development against the schedule database.
//
//	devtool template <doctor-username>   create the weekly availability rows
//	devtool token <user-id> [ttl]        print a bearer token for /chatbot
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/healthsync/healthsync-api/internal/app/bootstrap"
	appconfig "github.com/healthsync/healthsync-api/internal/config"
	httpmiddleware "github.com/healthsync/healthsync-api/internal/http/middleware"
	"github.com/healthsync/healthsync-api/internal/schedule"
	"github.com/healthsync/healthsync-api/pkg/logging"
)

// templateStore is the slice of schedule.Store the template command needs.
type templateStore interface {
	ResolveDoctorByUsername(ctx context.Context, username string) (string, error)
	CreateDoctorTemplate(ctx context.Context, doctorID string) (int, error)
}

func main() {
	cfg := appconfig.Load()
	logger := logging.NewWithFormat(cfg.LogLevel, "text", os.Stderr)
	if err := run(context.Background(), cfg, os.Args[1:], os.Stdout, logger); err != nil {
		logger.Error("devtool failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *appconfig.Config, args []string, out io.Writer, logger *logging.Logger) error {
	if len(args) < 2 {
		return errors.New("usage: devtool template <doctor-username> | devtool token <user-id> [ttl]")
	}
	switch args[0] {
	case "token":
		ttl := 24 * time.Hour
		if len(args) > 2 {
			d, err := time.ParseDuration(args[2])
			if err != nil {
				return fmt.Errorf("invalid ttl: %w", err)
			}
			ttl = d
		}
		token, err := issueToken(cfg.JWTSecret, args[1], ttl, time.Now())
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, token)
		return err
	case "template":
		pool, err := bootstrap.BuildPostgresPool(ctx, cfg)
		if err != nil {
			return err
		}
		defer pool.Close()
		added, err := createTemplate(ctx, schedule.NewPostgresStore(pool), args[1])
		if err != nil {
			return err
		}
		logger.Info("weekly template ready", "doctor_username", args[1], "rows_added", added)
		return nil
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func issueToken(secret, userID string, ttl time.Duration, now time.Time) (string, error) {
	if secret == "" {
		return "", errors.New("JWT_SECRET is required")
	}
	return httpmiddleware.SignUserToken(secret, userID, jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
}

func createTemplate(ctx context.Context, store templateStore, username string) (int, error) {
	doctorID, err := store.ResolveDoctorByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, schedule.ErrNotFound) {
			return 0, fmt.Errorf("no doctor with username %q", username)
		}
		return 0, err
	}
	return store.CreateDoctorTemplate(ctx, doctorID)
}
