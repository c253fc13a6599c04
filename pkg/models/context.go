package models

import "context"

type contextKey string

const (
	ctxKeyPrincipal contextKey = "principal"
	ctxKeyRequest   contextKey = "request"
)

// RequestInfo is the request metadata carried into audit records.
type RequestInfo struct {
	ID         string
	Path       string
	Method     string
	SourceAddr string
}

// ContextWithPrincipal stores the authenticated principal in ctx.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ctxKeyPrincipal, p)
}

// PrincipalFromContext returns the principal, or nil when none was attached.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(ctxKeyPrincipal).(*Principal)
	return p
}

// ContextWithRequest stores request metadata in ctx.
func ContextWithRequest(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, ctxKeyRequest, info)
}

// RequestFromContext returns request metadata; zero value when absent.
func RequestFromContext(ctx context.Context) RequestInfo {
	info, _ := ctx.Value(ctxKeyRequest).(RequestInfo)
	return info
}
