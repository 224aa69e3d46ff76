package auditlog

import "context"

// Origin identifies the caller of the request being audited.
type Origin struct {
	IP        string
	UserAgent string
}

type originKey struct{}

// WithOrigin stores the request origin in ctx.
func WithOrigin(ctx context.Context, o Origin) context.Context {
	return context.WithValue(ctx, originKey{}, o)
}

// OriginFrom returns the origin stored in ctx. Missing parts read "unknown".
func OriginFrom(ctx context.Context) Origin {
	o, _ := ctx.Value(originKey{}).(Origin)
	if o.IP == "" {
		o.IP = "unknown"
	}
	if o.UserAgent == "" {
		o.UserAgent = "unknown"
	}
	return o
}
