package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/yakoovad/babylog/internal/auth"
	"github.com/yakoovad/babylog/internal/model"
	"github.com/yakoovad/babylog/internal/ratelimit"
	"github.com/yakoovad/babylog/internal/service"
	"github.com/yakoovad/babylog/pkg/logger"
	"go.uber.org/zap"
)

const sessionKey = "session"

// UserEnsurer creates the local user row for an authenticated session.
type UserEnsurer interface {
	EnsureUser(ctx context.Context, user *model.User) *service.Error
}

func ZapLoggerMiddleware(l *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			req := c.Request()
			res := c.Response()

			requestID := c.Response().Header().Get(echo.HeaderXRequestID)

			reqLogger := l.With(
				zap.String("request_id", requestID),
			)

			ctx := logger.WithLogger(req.Context(), reqLogger)
			c.SetRequest(req.WithContext(ctx))

			err := next(c)

			latency := time.Since(start)

			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("uri", req.RequestURI),
				zap.String("remote_ip", c.RealIP()),
				zap.Int("status", res.Status),
				zap.Duration("latency", latency),
				zap.Int64("bytes_in", req.ContentLength),
				zap.Int64("bytes_out", res.Size),
			}
			if s := session(c); s != nil {
				fields = append(fields, zap.String("user_id", s.UserID()))
			}

			if err != nil {
				fields = append(fields, zap.Error(err))
				reqLogger.Error("request failed", fields...)
			} else {
				reqLogger.Info("request completed", fields...)
			}

			return err
		}
	}
}

func sessionToken(c echo.Context, cookieName string) string {
	if h := c.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if cookie, err := c.Cookie(cookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// AuthMiddleware verifies the session token from the Authorization header or the
// session cookie and makes sure the user exists locally.
func AuthMiddleware(v *auth.Verifier, cookieName string, users UserEnsurer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			l := logger.FromContext(ctx)

			token := sessionToken(c, cookieName)
			if token == "" {
				return unauthorized(c, "missing session")
			}

			claims, err := v.Verify(token)
			if err != nil {
				l.Warn("invalid session token", zap.Error(err))
				return unauthorized(c, "invalid session")
			}

			if serr := users.EnsureUser(ctx, &model.User{
				ID:    claims.UserID(),
				Email: claims.Email,
				Name:  claims.Name,
			}); serr != nil {
				return c.JSON(httpStatus(serr.Code), errorResponse{Error: serr})
			}

			c.Set(sessionKey, claims)
			c.SetRequest(c.Request().WithContext(logger.WithLogger(ctx, l.With(zap.String("user_id", claims.UserID())))))
			return next(c)
		}
	}
}

func AdminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if s := session(c); s == nil || !s.IsAdmin() {
				return c.JSON(http.StatusForbidden, errorResponse{Error: service.NewError(service.ErrorCodeForbidden, "admin session required")})
			}
			return next(c)
		}
	}
}

// RateLimitMiddleware throttles per user, falling back to the client IP. Redis
// failures let the request through. A nil limiter disables the middleware.
func RateLimitMiddleware(limiter *ratelimit.Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if limiter == nil {
			return next
		}
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			key := c.RealIP()
			if s := session(c); s != nil {
				key = s.UserID()
			}

			ok, err := limiter.Allow(ctx, key)
			if err != nil {
				logger.FromContext(ctx).Warn("rate limiter unavailable", zap.Error(err))
				return next(c)
			}
			if !ok {
				logger.FromContext(ctx).Warn("rate limit exceeded", zap.String("key", key))
				return c.JSON(http.StatusTooManyRequests, errorResponse{Error: service.NewError(service.ErrorCodeRateLimited, "too many requests")})
			}
			return next(c)
		}
	}
}

func unauthorized(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized, errorResponse{Error: service.NewError(service.ErrorCodeUnauthorized, msg)})
}

func session(c echo.Context) *auth.SessionClaims {
	if s, ok := c.Get(sessionKey).(*auth.SessionClaims); ok {
		return s
	}
	return nil
}

func userID(c echo.Context) string {
	if s := session(c); s != nil {
		return s.UserID()
	}
	return ""
}
