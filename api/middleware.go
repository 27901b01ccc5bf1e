package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

const (
	metricsContextKey = "requestMetrics"
	userContextKey    = "userID"
)

// RequestMetrics logs one metrics entry per request.
func RequestMetrics(logger *log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			m := newRequestMetrics(logger, c.Request().Method, c.Path())
			c.Set(metricsContextKey, m)
			err := next(c)
			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			m.Log(status, err)
			return err
		}
	}
}

// SessionGate rejects requests without a valid bearer token. The login
// redirect is left to the UI.
func SessionGate(auth Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
			m := metricsFrom(c)
			m.ObserveAuth(time.Since(start))
			if err != nil {
				m.SetErrorStage("auth")
				return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
			}
			c.Set(userContextKey, userID)
			return next(c)
		}
	}
}

func metricsFrom(c echo.Context) *requestMetrics {
	m, _ := c.Get(metricsContextKey).(*requestMetrics)
	return m
}
