package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/forumkit/spamsweep/internal/dbutil"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "spamsweep",
		Usage:   "spam screening daemon for forum content",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "forum-base-url",
			Usage:   "public base URL of the forum, used for permalinks and classifier registration",
			EnvVars: []string{"FORUM_BASE_URL"},
		},
		&cli.StringFlag{
			Name:    "akismet-api-key",
			Usage:   "API key for the content-reputation service; screening is disabled when unset",
			EnvVars: []string{"AKISMET_API_KEY"},
		},
		&cli.IntFlag{
			Name:    "max-db-connections",
			EnvVars: []string{"MAX_DB_CONNECTIONS"},
			Value:   40,
		},
	}

	app.Commands = []*cli.Command{
		runCmd,
	}

	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the service",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "database-url",
			Value:   "sqlite://data/spamsweep/spamsweep.db",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis connection URL for shared counters; in-memory when unset",
			EnvVars: []string{"SPAMSWEEP_REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "host-api-url",
			Usage:   "base URL of the host forum's internal API",
			EnvVars: []string{"HOST_API_URL"},
		},
		&cli.StringFlag{
			Name:    "host-api-key",
			EnvVars: []string{"HOST_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "bind",
			Usage:   "IP or address, and port, to listen on for the event intake API",
			Value:   ":3995",
			EnvVars: []string{"SPAMSWEEP_BIND"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":3994",
			EnvVars: []string{"SPAMSWEEP_METRICS_LISTEN"},
		},
		&cli.DurationFlag{
			Name:    "sweep-interval",
			Usage:   "how often to sweep pending items",
			Value:   5 * time.Minute,
			EnvVars: []string{"SPAMSWEEP_SWEEP_INTERVAL"},
		},
		&cli.IntFlag{
			Name:    "classifier-rate-limit",
			Usage:   "max requests per second to the classifier service",
			Value:   5,
			EnvVars: []string{"SPAMSWEEP_CLASSIFIER_RATE_LIMIT"},
		},
		&cli.IntFlag{
			Name:    "skip-trust-level",
			Usage:   "authors at or above this trust level are never checked",
			Value:   3,
			EnvVars: []string{"SPAMSWEEP_SKIP_TRUST_LEVEL"},
		},
		&cli.Int64Flag{
			Name:    "skip-post-count",
			Usage:   "authors with more lifetime posts than this are never checked",
			Value:   50,
			EnvVars: []string{"SPAMSWEEP_SKIP_POST_COUNT"},
		},
		&cli.BoolFlag{
			Name:    "notify-user",
			Usage:   "message authors when their content is removed",
			Value:   true,
			EnvVars: []string{"SPAMSWEEP_NOTIFY_USER"},
		},
		&cli.BoolFlag{
			Name:    "transmit-email",
			Usage:   "include author email addresses in classifier payloads",
			EnvVars: []string{"SPAMSWEEP_TRANSMIT_EMAIL"},
		},
		&cli.IntFlag{
			Name:    "max-check-retries",
			Usage:   "failed classifier calls an item absorbs before being skipped",
			Value:   5,
			EnvVars: []string{"SPAMSWEEP_MAX_CHECK_RETRIES"},
		},
		&cli.StringFlag{
			Name:    "slack-webhook-url",
			Usage:   "webhook for spam-found notifications; logged only when unset",
			EnvVars: []string{"SLACK_WEBHOOK_URL"},
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
		slog.SetDefault(logger)

		// Enable OTLP HTTP exporter
		// For relevant environment variables:
		// https://pkg.go.dev/go.opentelemetry.io/otel/exporters/otlp/otlptrace#readme-environment-variables
		// At a minimum, you need to set
		// OTEL_EXPORTER_OTLP_ENDPOINT=http://localhost:4318
		if ep := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); ep != "" {
			slog.Info("setting up trace exporter", "endpoint", ep)
			exp, err := otlptracehttp.New(ctx)
			if err != nil {
				log.Fatal("failed to create trace exporter", "error", err)
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				if err := exp.Shutdown(ctx); err != nil {
					slog.Error("failed to shutdown trace exporter", "error", err)
				}
			}()

			tp := tracesdk.NewTracerProvider(
				tracesdk.WithBatcher(exp),
				tracesdk.WithResource(resource.NewWithAttributes(
					semconv.SchemaURL,
					semconv.ServiceNameKey.String("spamsweep"),
					attribute.String("env", os.Getenv("ENVIRONMENT")),         // DataDog
					attribute.String("environment", os.Getenv("ENVIRONMENT")), // Others
					attribute.Int64("ID", 1),
				)),
			)
			otel.SetTracerProvider(tp)
		}

		db, err := dbutil.SetupDatabase(cctx.String("database-url"), cctx.Int("max-db-connections"))
		if err != nil {
			return err
		}

		srv, err := NewServer(
			db,
			Config{
				Logger:              logger,
				BaseURL:             cctx.String("forum-base-url"),
				AkismetAPIKey:       cctx.String("akismet-api-key"),
				RedisURL:            cctx.String("redis-url"),
				HostAPIURL:          cctx.String("host-api-url"),
				HostAPIKey:          cctx.String("host-api-key"),
				SlackWebhookURL:     cctx.String("slack-webhook-url"),
				SweepInterval:       cctx.Duration("sweep-interval"),
				ClassifierRateLimit: cctx.Int("classifier-rate-limit"),
				SkipTrustLevel:      cctx.Int("skip-trust-level"),
				SkipPostCount:       cctx.Int64("skip-post-count"),
				NotifyUser:          cctx.Bool("notify-user"),
				TransmitEmail:       cctx.Bool("transmit-email"),
				MaxCheckRetries:     cctx.Int("max-check-retries"),
			},
		)
		if err != nil {
			return err
		}

		go func() {
			if err := srv.RunMetrics(cctx.String("metrics-listen")); err != nil {
				slog.Error("failed to start metrics endpoint", "error", err)
				panic(fmt.Errorf("failed to start metrics endpoint: %w", err))
			}
		}()

		if err := srv.Run(ctx, cctx.String("bind")); err != nil {
			return fmt.Errorf("failed to run spamsweep service: %w", err)
		}
		return nil
	},
}
