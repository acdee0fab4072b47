package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger wraps slog.Logger with additional functionality
type Logger struct {
	*slog.Logger
}

// New creates a new logger instance
func New() *Logger {
	// Get log level from environment
	level := getLogLevel(os.Getenv("LOG_LEVEL"))

	// Create handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	// Create handler based on environment
	var handler slog.Handler
	if gin.Mode() == gin.DebugMode {
		// Use text handler for development (more readable)
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		// Use JSON handler for production (structured)
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	// Create logger
	logger := slog.New(handler)

	return &Logger{
		Logger: logger,
	}
}

// getLogLevel converts string to slog.Level
func getLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithSessionID adds the chart session ID to logger context
func (l *Logger) WithSessionID(sessionID string) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("session_id", sessionID)),
	}
}

// HTTP logging methods

// LogHTTPRequest logs an HTTP request
func (l *Logger) LogHTTPRequest(c *gin.Context, duration time.Duration) {
	l.Logger.InfoContext(c.Request.Context(),
		"HTTP Request",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("query", c.Request.URL.RawQuery),
		slog.Int("status", c.Writer.Status()),
		slog.Duration("duration", duration),
		slog.String("ip", c.ClientIP()),
		slog.String("user_agent", c.Request.UserAgent()),
		slog.Int("size", c.Writer.Size()),
	)
}

// LogHTTPError logs an HTTP error
func (l *Logger) LogHTTPError(c *gin.Context, err error, statusCode int) {
	l.Logger.ErrorContext(c.Request.Context(),
		"HTTP Error",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.Int("status", statusCode),
		slog.String("error", err.Error()),
		slog.String("ip", c.ClientIP()),
	)
}

// Chart session logging methods

// LogSessionOpened logs when a buyer opens a chart session
func (l *Logger) LogSessionOpened(ctx context.Context, sessionID, layoutID, userID string) {
	l.Logger.InfoContext(ctx,
		"Chart Session Opened",
		slog.String("session_id", sessionID),
		slog.String("layout_id", layoutID),
		slog.String("user_id", userID),
	)
}

// LogSessionClosed logs when a chart session is torn down
func (l *Logger) LogSessionClosed(ctx context.Context, sessionID, reason string) {
	l.Logger.InfoContext(ctx,
		"Chart Session Closed",
		slog.String("session_id", sessionID),
		slog.String("reason", reason),
	)
}

// LogSeatRejected logs a refused seat selection
func (l *Logger) LogSeatRejected(ctx context.Context, sessionID, seatID, reason string) {
	l.Logger.DebugContext(ctx,
		"Seat Selection Rejected",
		slog.String("session_id", sessionID),
		slog.String("seat_id", seatID),
		slog.String("reason", reason),
	)
}

// LogHoldExpired logs a hold countdown reaching zero
func (l *Logger) LogHoldExpired(ctx context.Context, sessionID string, seats int) {
	l.Logger.InfoContext(ctx,
		"Seat Hold Expired",
		slog.String("session_id", sessionID),
		slog.Int("seats", seats),
	)
}

// LogSeatRevoked logs a selected seat taken away by a remote status change
func (l *Logger) LogSeatRevoked(ctx context.Context, sessionID, seatID, heldBy string) {
	l.Logger.InfoContext(ctx,
		"Selected Seat Revoked",
		slog.String("session_id", sessionID),
		slog.String("seat_id", seatID),
		slog.String("held_by", heldBy),
	)
}

// Seat status logging methods

// LogDeltaApplied logs a seat-status delta fanned out to open sessions
func (l *Logger) LogDeltaApplied(ctx context.Context, layoutID, seatID, status string, sessions int) {
	l.Logger.DebugContext(ctx,
		"Seat Status Delta Applied",
		slog.String("layout_id", layoutID),
		slog.String("seat_id", seatID),
		slog.String("status", status),
		slog.Int("sessions", sessions),
	)
}

// LogSeatsLocked logs a successful seat hold
func (l *Logger) LogSeatsLocked(ctx context.Context, holdID, eventID, userID string, seats int) {
	l.Logger.InfoContext(ctx,
		"Seats Locked",
		slog.String("hold_id", holdID),
		slog.String("event_id", eventID),
		slog.String("user_id", userID),
		slog.Int("seats", seats),
	)
}

// LogLayoutLoaded logs a layout fetched from its source
func (l *Logger) LogLayoutLoaded(ctx context.Context, layoutID string, seats int, duration time.Duration) {
	l.Logger.DebugContext(ctx,
		"Layout Loaded",
		slog.String("layout_id", layoutID),
		slog.Int("seats", seats),
		slog.Duration("duration", duration),
	)
}

// Security logging methods

// LogAuthFailure logs failed authentication
func (l *Logger) LogAuthFailure(ctx context.Context, reason, ip string) {
	l.Logger.WarnContext(ctx,
		"Authentication Failure",
		slog.String("reason", reason),
		slog.String("ip", ip),
	)
}

// LogRateLimitExceeded logs rate limit exceeded
func (l *Logger) LogRateLimitExceeded(ctx context.Context, ip, endpoint string) {
	l.Logger.WarnContext(ctx,
		"Rate Limit Exceeded",
		slog.String("ip", ip),
		slog.String("endpoint", endpoint),
	)
}

var defaultLogger = New()

// GetDefault returns the default logger instance
func GetDefault() *Logger {
	return defaultLogger
}

// SetDefault sets the default logger instance
func SetDefault(logger *Logger) {
	defaultLogger = logger
}
