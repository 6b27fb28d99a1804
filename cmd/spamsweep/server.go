package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/forumkit/spamsweep/akismet"
	"github.com/forumkit/spamsweep/hostapi"
	"github.com/forumkit/spamsweep/spamcheck"
	"github.com/forumkit/spamsweep/spamcheck/casestore"
	"github.com/forumkit/spamsweep/spamcheck/countstore"
	"github.com/forumkit/spamsweep/spamcheck/statestore"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	slogecho "github.com/samber/slog-echo"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

type Server struct {
	logger        *slog.Logger
	engine        *spamcheck.Engine
	echo          *echo.Echo
	sweepInterval time.Duration
}

type Config struct {
	Logger              *slog.Logger
	BaseURL             string
	AkismetAPIKey       string
	RedisURL            string
	HostAPIURL          string
	HostAPIKey          string
	SlackWebhookURL     string
	SweepInterval       time.Duration
	ClassifierRateLimit int
	SkipTrustLevel      int
	SkipPostCount       int64
	NotifyUser          bool
	TransmitEmail       bool
	MaxCheckRetries     int
}

func NewServer(db *gorm.DB, config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	states, err := statestore.NewGormStateStore(db)
	if err != nil {
		return nil, err
	}
	cases, err := casestore.NewGormCaseStore(db)
	if err != nil {
		return nil, err
	}

	var counters countstore.CountStore
	if config.RedisURL != "" {
		cnt, err := countstore.NewRedisCountStore(config.RedisURL)
		if err != nil {
			return nil, err
		}
		counters = cnt
	} else {
		counters = countstore.NewMemCountStore()
	}

	client := akismet.NewClient(config.AkismetAPIKey, config.BaseURL,
		akismet.WithLogger(logger),
		akismet.WithLimiter(rate.NewLimiter(rate.Limit(config.ClassifierRateLimit), 1)),
	)

	var notifier spamcheck.Notifier
	if config.SlackWebhookURL != "" {
		notifier = &spamcheck.SlackNotifier{SlackWebhookURL: config.SlackWebhookURL}
	} else {
		notifier = &spamcheck.LogNotifier{Logger: logger}
	}

	engineConfig := spamcheck.DefaultConfig()
	engineConfig.Enabled = config.AkismetAPIKey != ""
	engineConfig.APIKey = config.AkismetAPIKey
	engineConfig.BaseURL = config.BaseURL
	engineConfig.SkipTrustLevel = config.SkipTrustLevel
	engineConfig.SkipPostCount = config.SkipPostCount
	engineConfig.NotifyUser = config.NotifyUser
	engineConfig.TransmitEmail = config.TransmitEmail
	engineConfig.MaxCheckRetries = config.MaxCheckRetries

	engine := &spamcheck.Engine{
		Logger:   logger,
		Config:   engineConfig,
		States:   states,
		Cases:    cases,
		Counters: counters,
		Client:   client,
		Host:     hostapi.NewClient(config.HostAPIURL, config.HostAPIKey),
		Notifier: notifier,
	}

	srv := &Server{
		logger:        logger,
		engine:        engine,
		sweepInterval: config.SweepInterval,
	}

	// best-effort credential check at startup; a bad key just means every
	// check will fail and retry
	if engineConfig.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		ok, err := client.Verify(ctx)
		if err != nil {
			logger.Warn("could not verify classifier API key", "err", err)
		} else if !ok {
			logger.Warn("classifier rejected configured API key")
		}
	} else {
		logger.Warn("no classifier API key configured, screening disabled")
	}

	return srv, nil
}

// Run starts the event intake API and the periodic sweep loop, stopping both
// when ctx is cancelled.
func (s *Server) Run(ctx context.Context, listen string) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(slogecho.New(s.logger))

	e.GET("/_health", s.handleHealthCheck)
	e.POST("/events/content-created", s.handleContentCreated)
	e.POST("/events/bio-changed", s.handleBioChanged)
	e.POST("/events/moderator-decision", s.handleModeratorDecision)
	e.POST("/events/user-anonymized", s.handleUserAnonymized)
	s.echo = e

	go s.runSweeps(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- e.Start(listen)
	}()
	s.logger.Info("event intake API running", "listen", listen)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (s *Server) runSweeps(ctx context.Context) {
	interval := s.sweepInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sctx, span := tracer.Start(ctx, "sweepPending")
			stats, err := s.engine.SweepPending(sctx)
			span.End()
			if err != nil {
				s.logger.Error("sweep failed", "err", err)
				continue
			}
			if stats.Swept > 0 {
				s.logger.Info("sweep complete",
					"swept", stats.Swept,
					"checked", stats.Checked,
					"spamFound", stats.SpamFound,
					"skipped", stats.Skipped,
					"errors", stats.Errors,
				)
			}
		}
	}
}

func (s *Server) RunMetrics(listen string) error {
	http.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(listen, nil)
}
