package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/open-policy-agent/opa/ast"
	"github.com/open-policy-agent/opa/rego"
	"github.com/rs/zerolog"

	"github.com/stratoforge/stratoctl/pkg/api"
	"github.com/stratoforge/stratoctl/pkg/options"
	"github.com/stratoforge/stratoctl/pkg/telemetry"
)

// Engine evaluates preflight policies against prepared requests before
// they are submitted. A blocking violation means the request would be
// rejected or is unsafe; the caller decides whether to stop.
type Engine struct {
	mu       sync.RWMutex
	policies map[string]*compiledPolicy
	logger   zerolog.Logger
	metrics  *telemetry.Metrics
}

// compiledPolicy holds a policy together with its parsed module.
type compiledPolicy struct {
	policy   *Policy
	module   *ast.Module
	compiled time.Time
}

// NewEngine creates a preflight engine with the builtin policies loaded.
func NewEngine(logger zerolog.Logger, metrics *telemetry.Metrics) (*Engine, error) {
	if metrics == nil {
		metrics = &telemetry.Metrics{}
	}

	e := &Engine{
		policies: make(map[string]*compiledPolicy),
		logger:   logger.With().Str("component", "preflight").Logger(),
		metrics:  metrics,
	}

	for _, p := range BuiltinPolicies() {
		if err := e.compileAndStore(p); err != nil {
			return nil, fmt.Errorf("failed to compile builtin policy %s: %w", p.Name, err)
		}
	}

	return e, nil
}

// NewInput builds the evaluation document for a prepared request.
func NewInput(req *api.PreparedRequest, channel options.ReleaseChannel) (*Input, error) {
	body, err := req.EncodeBody()
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}

	var payload map[string]any
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, fmt.Errorf("failed to decode request body: %w", err)
		}
	}

	return &Input{
		ResourceType: req.ResourceType,
		ResourceName: req.ResourceName,
		Channel:      string(channel),
		Method:       req.Method,
		Path:         req.Path,
		Payload:      payload,
	}, nil
}

// Evaluate runs every enabled policy against the input and aggregates
// the findings. Evaluation errors in individual policies are logged and
// skipped so one broken policy file cannot block all submissions.
func (e *Engine) Evaluate(ctx context.Context, input *Input) (*Result, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var violations []Violation
	evaluated := make([]string, 0, len(e.policies))

	for _, cp := range e.policies {
		if !cp.policy.Enabled {
			continue
		}
		evaluated = append(evaluated, cp.policy.Name)

		found, err := e.evaluatePolicy(ctx, cp, input)
		if err != nil {
			e.logger.Warn().Err(err).
				Str("policy", cp.policy.Name).
				Msg("Policy evaluation failed")
			continue
		}
		violations = append(violations, found...)
	}
	sort.Strings(evaluated)

	allowed := true
	for i := range violations {
		e.metrics.RecordPreflightViolation(string(violations[i].Severity))
		if violations[i].Severity == SeverityError {
			allowed = false
		}
	}

	e.logger.Debug().
		Str("resource_type", input.ResourceType).
		Int("violations", len(violations)).
		Bool("allowed", allowed).
		Msg("Preflight evaluation completed")

	return &Result{
		Allowed:           allowed,
		Violations:        violations,
		EvaluatedPolicies: evaluated,
		EvaluatedAt:       time.Now(),
	}, nil
}

// LoadPolicies compiles and registers policies loaded from disk.
// Loaded policies replace builtins of the same name.
func (e *Engine) LoadPolicies(policies []Policy) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range policies {
		if err := e.compileAndStore(policies[i]); err != nil {
			return fmt.Errorf("failed to compile policy %s: %w", policies[i].Name, err)
		}
	}

	e.logger.Info().
		Int("count", len(policies)).
		Msg("Policies loaded")

	return nil
}

// ListPolicies returns all registered policies sorted by name.
func (e *Engine) ListPolicies() []Policy {
	e.mu.RLock()
	defer e.mu.RUnlock()

	policies := make([]Policy, 0, len(e.policies))
	for _, cp := range e.policies {
		policies = append(policies, *cp.policy)
	}
	sort.Slice(policies, func(i, j int) bool { return policies[i].Name < policies[j].Name })

	return policies
}

// evaluatePolicy runs one policy's deny set against the input.
func (e *Engine) evaluatePolicy(ctx context.Context, cp *compiledPolicy, input *Input) ([]Violation, error) {
	query := cp.module.Package.Path.String() + ".deny"

	r := rego.New(
		rego.Module(cp.policy.Name, cp.policy.Rego),
		rego.Query(query),
		rego.Input(input),
	)

	results, err := r.Eval(ctx)
	if err != nil {
		return nil, fmt.Errorf("policy evaluation error: %w", err)
	}

	var violations []Violation
	for _, result := range results {
		for _, expr := range result.Expressions {
			denySet, ok := expr.Value.([]interface{})
			if !ok {
				continue
			}
			for _, d := range denySet {
				violations = append(violations, e.toViolation(cp.policy, d))
			}
		}
	}

	return violations, nil
}

// toViolation converts a deny result into a Violation. Results may be
// bare strings or objects with message and severity fields.
func (e *Engine) toViolation(policy *Policy, result interface{}) Violation {
	violation := Violation{
		Policy:   policy.Name,
		Severity: policy.Severity,
	}

	switch v := result.(type) {
	case string:
		violation.Message = v
	case map[string]interface{}:
		if msg, ok := v["message"].(string); ok {
			violation.Message = msg
		}
		if sev, ok := v["severity"].(string); ok {
			violation.Severity = Severity(strings.ToLower(sev))
		}
	default:
		violation.Message = fmt.Sprintf("%v", result)
	}

	return violation
}

// compileAndStore parses the policy module and registers it.
func (e *Engine) compileAndStore(policy Policy) error {
	module, err := ast.ParseModule(policy.Name, policy.Rego)
	if err != nil {
		return fmt.Errorf("failed to parse policy: %w", err)
	}

	e.policies[policy.Name] = &compiledPolicy{
		policy:   &policy,
		module:   module,
		compiled: time.Now(),
	}

	e.logger.Debug().
		Str("policy", policy.Name).
		Msg("Policy compiled")

	return nil
}
