package main

import (
	"context"
	"net/http"
	"time"

	"github.com/forumkit/spamsweep/spamcheck"

	"github.com/labstack/echo/v4"
)

type HealthStatus struct {
	Status  string `json:"status"`
	Message string `json:"msg,omitempty"`
}

func (s *Server) handleHealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthStatus{Status: "ok"})
}

func (s *Server) handleContentCreated(c echo.Context) error {
	var evt spamcheck.ContentCreatedEvent
	if err := c.Bind(&evt); err != nil {
		eventErrorCount.WithLabelValues("content-created").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, "invalid event body")
	}
	eventReceivedCount.WithLabelValues("content-created").Inc()
	if err := s.engine.ProcessContentCreated(c.Request().Context(), evt); err != nil {
		eventErrorCount.WithLabelValues("content-created").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	// the immediate check blocks on the classifier, so it runs detached from
	// the request
	if spamcheck.NeedsScrutiny(&evt.Item) {
		itemID := evt.Item.ID
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := s.engine.CheckItemNow(ctx, itemID); err != nil {
				s.logger.Error("immediate item check failed", "err", err, "itemID", itemID)
			}
		}()
	}
	return c.NoContent(http.StatusOK)
}

func (s *Server) handleBioChanged(c echo.Context) error {
	var evt spamcheck.BioChangedEvent
	if err := c.Bind(&evt); err != nil {
		eventErrorCount.WithLabelValues("bio-changed").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, "invalid event body")
	}
	eventReceivedCount.WithLabelValues("bio-changed").Inc()
	if err := s.engine.ProcessBioChanged(c.Request().Context(), evt); err != nil {
		eventErrorCount.WithLabelValues("bio-changed").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusOK)
}

func (s *Server) handleModeratorDecision(c echo.Context) error {
	var evt spamcheck.ModeratorDecisionEvent
	if err := c.Bind(&evt); err != nil {
		eventErrorCount.WithLabelValues("moderator-decision").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, "invalid event body")
	}
	if err := evt.Validate(); err != nil {
		eventErrorCount.WithLabelValues("moderator-decision").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	eventReceivedCount.WithLabelValues("moderator-decision").Inc()

	// feedback reporting must never block the moderation action; ack now and
	// report in the background
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.engine.ProcessModeratorDecision(ctx, evt); err != nil {
			s.logger.Error("processing moderator decision", "err", err, "targetID", evt.TargetID)
		}
	}()
	return c.NoContent(http.StatusAccepted)
}

func (s *Server) handleUserAnonymized(c echo.Context) error {
	var evt spamcheck.UserAnonymizedEvent
	if err := c.Bind(&evt); err != nil {
		eventErrorCount.WithLabelValues("user-anonymized").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, "invalid event body")
	}
	eventReceivedCount.WithLabelValues("user-anonymized").Inc()
	if err := s.engine.ProcessUserAnonymized(c.Request().Context(), evt); err != nil {
		eventErrorCount.WithLabelValues("user-anonymized").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusOK)
}
