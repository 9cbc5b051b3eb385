package shared

import "context"

type contextKey string

const tenantKey contextKey = "tenant"

// ContextWithTenant stores the tenant id for the current request.
func ContextWithTenant(ctx context.Context, tenantID int64) context.Context {
	return context.WithValue(ctx, tenantKey, tenantID)
}

// TenantFromContext returns the tenant id, or zero when unset.
func TenantFromContext(ctx context.Context) int64 {
	if v, ok := ctx.Value(tenantKey).(int64); ok {
		return v
	}
	return 0
}
