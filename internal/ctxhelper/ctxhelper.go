// Package ctxhelper provides helper functions for working with the context
package ctxhelper

import (
	"github.com/derWhity/eventdesk/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

var (
	// KeyIdentity is the context key for storing the caller identity associated with the current call
	KeyIdentity = ctxKey("identity")
	// KeyLogger is the context key for storing the logger in the context
	KeyLogger = ctxKey("logger")
)

// internal context key
type ctxKey string

// Identity returns the caller identity from the current context. Calls that
// carry no identity are treated as anonymous.
func Identity(ctx context.Context) models.Identity {
	if id, ok := ctx.Value(KeyIdentity).(models.Identity); ok {
		return id
	}
	return models.Anonymous()
}

// WithIdentity returns a context carrying the given caller identity
func WithIdentity(ctx context.Context, id models.Identity) context.Context {
	return context.WithValue(ctx, KeyIdentity, id)
}

// Logger returns the logger from the current context. If no logger is available, it panics
func Logger(ctx context.Context) *logrus.Entry {
	logger, ok := ctx.Value(KeyLogger).(*logrus.Entry)
	if ok {
		return logger
	}
	panic("No logger in context")
}

// WithLogger returns a context carrying the given logger
func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, KeyLogger, logger)
}
