package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure. Queries still build lexically.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
	// CheckDisabled indicates a component that is switched off.
	CheckDisabled CheckResult = "disabled"
)

// Component names in a Report.
const (
	ComponentCache      = "cache"
	ComponentVectorizer = "vectorizer"
	ComponentSemantic   = "semantic"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Engine string
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	cache      CachePinger
	vectorizer VectorizerChecker
	semantic   bool
	engine     string
}

// New creates a Service. cache and vectorizer can be nil.
// semantic reports whether the semantic term command is active on engine.
func New(cache CachePinger, vectorizer VectorizerChecker, semantic bool, engine string) *Service {
	return &Service{cache: cache, vectorizer: vectorizer, semantic: semantic, engine: engine}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if s.cache != nil {
		checks[ComponentCache] = result(s.cache.Ping(ctx))
	}
	if s.vectorizer != nil {
		checks[ComponentVectorizer] = result(s.vectorizer.HealthCheck(ctx))
	}
	if s.semantic {
		checks[ComponentSemantic] = CheckOK
	} else {
		checks[ComponentSemantic] = CheckDisabled
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Engine: s.engine, Checks: checks}
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
