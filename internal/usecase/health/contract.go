package health

import "context"

// CachePinger checks vector cache availability.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// VectorizerChecker checks sentence vector provider availability.
type VectorizerChecker interface {
	HealthCheck(ctx context.Context) error
}
