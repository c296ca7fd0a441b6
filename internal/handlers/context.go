package handlers

import (
	"context"
)

type contextKey string

const (
	sessionContextKey   contextKey = "session_id"
	csrfTokenContextKey contextKey = "csrf_token"
)

func SetSessionIDInContext(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionContextKey, sessionID)
}

func GetSessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionContextKey).(string)
	return id
}

func SetCSRFTokenInContext(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfTokenContextKey, token)
}

func GetCSRFTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(csrfTokenContextKey).(string)
	return token
}
