// Package rules provides the CEL-Go based advisory rule engine. Advisory
// rules annotate decisions with named flags; they never change the verdict.
package rules

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/opensource-finance/fraudguard/internal/domain"
)

// Engine compiles and evaluates advisory CEL rules.
type Engine struct {
	mu            sync.RWMutex
	env           *cel.Env
	compiledRules map[string]*CompiledRule
	maxWorkers    int
}

// CompiledRule holds a pre-compiled CEL program.
type CompiledRule struct {
	Config  *domain.RuleConfig
	Program cel.Program
}

// NewEngine creates an advisory rule engine with the decision variable set.
func NewEngine(maxWorkers int) (*Engine, error) {
	if maxWorkers <= 0 {
		maxWorkers = 10
	}

	env, err := cel.NewEnv(
		cel.Variable("amount", cel.DoubleType),
		cel.Variable("hour", cel.IntType),
		cel.Variable("day_of_week", cel.IntType),
		cel.Variable("is_weekend", cel.BoolType),
		cel.Variable("location", cel.StringType),
		cel.Variable("category", cel.StringType),
		cel.Variable("suspicious_count", cel.IntType),
		cel.Variable("safe_count", cel.IntType),
		cel.Variable("is_emergency", cel.BoolType),
		cel.Variable("velocity_count", cel.IntType),
		cel.Variable("confidence", cel.DoubleType),
		cel.Variable("fraud", cel.BoolType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		env:           env,
		compiledRules: make(map[string]*CompiledRule),
		maxWorkers:    maxWorkers,
	}, nil
}

// ValidateRule compiles a rule without mutating the loaded set.
func (e *Engine) ValidateRule(cfg *domain.RuleConfig) error {
	if cfg == nil {
		return fmt.Errorf("rule config is required")
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	_, err := e.compileRule(cfg)
	return err
}

// LoadRule compiles and loads a single rule.
func (e *Engine) LoadRule(cfg *domain.RuleConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	compiled, err := e.compileRule(cfg)
	if err != nil {
		return err
	}

	e.compiledRules[cfg.ID] = compiled
	return nil
}

// LoadRules compiles and loads the enabled rules from a slice.
func (e *Engine) LoadRules(configs []*domain.RuleConfig) error {
	for _, cfg := range configs {
		if cfg.Enabled {
			if err := e.LoadRule(cfg); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReloadRules swaps the full compiled set atomically (hot reload).
func (e *Engine) ReloadRules(configs []*domain.RuleConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	newRules := make(map[string]*CompiledRule)
	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}
		compiled, err := e.compileRule(cfg)
		if err != nil {
			return err
		}
		newRules[cfg.ID] = compiled
	}

	e.compiledRules = newRules
	return nil
}

// FlagInput holds the decision context advisory rules match against.
type FlagInput struct {
	Amount          float64
	Hour            int
	DayOfWeek       int
	IsWeekend       bool
	Location        string
	Features        domain.FeatureSet
	VelocityCount   int64
	Confidence      float64
	Fraud           bool
}

// EvaluateAll runs every loaded rule and returns a flag per firing rule.
// Rules that error are skipped; advisory evaluation must never block a
// decision.
func (e *Engine) EvaluateAll(input *FlagInput) []domain.RuleFlag {
	e.mu.RLock()
	rules := make([]*CompiledRule, 0, len(e.compiledRules))
	for _, rule := range e.compiledRules {
		rules = append(rules, rule)
	}
	e.mu.RUnlock()

	if len(rules) == 0 {
		return nil
	}

	activation := map[string]any{
		"amount":           input.Amount,
		"hour":             input.Hour,
		"day_of_week":      input.DayOfWeek,
		"is_weekend":       input.IsWeekend,
		"location":         input.Location,
		"category":         string(input.Features.Category),
		"suspicious_count": input.Features.SuspiciousCount,
		"safe_count":       input.Features.SafeCount,
		"is_emergency":     input.Features.IsEmergency,
		"velocity_count":   input.VelocityCount,
		"confidence":       input.Confidence,
		"fraud":            input.Fraud,
	}

	// Parallel evaluation with bounded concurrency, result order by index.
	results := make([]*domain.RuleFlag, len(rules))
	var wg sync.WaitGroup
	sem := make(chan struct{}, e.maxWorkers)

	for i, rule := range rules {
		wg.Add(1)
		go func(idx int, r *CompiledRule) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			results[idx] = evaluateRule(r, activation)
		}(i, rule)
	}

	wg.Wait()

	flags := make([]domain.RuleFlag, 0, len(results))
	for _, f := range results {
		if f != nil {
			flags = append(flags, *f)
		}
	}
	return flags
}

// evaluateRule runs one program and returns a flag when it fires.
func evaluateRule(rule *CompiledRule, activation map[string]any) *domain.RuleFlag {
	start := time.Now()

	out, _, err := rule.Program.Eval(activation)
	if err != nil {
		return nil
	}

	fired, ok := out.(types.Bool)
	if !ok || !bool(fired) {
		return nil
	}

	return &domain.RuleFlag{
		RuleID:    rule.Config.ID,
		Name:      rule.Config.Name,
		Reason:    rule.Config.Reason,
		ProcessMs: time.Since(start).Milliseconds(),
	}
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiledRules)
}

// GetLoadedRules returns the currently loaded rule configurations.
func (e *Engine) GetLoadedRules() []*domain.RuleConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rules := make([]*domain.RuleConfig, 0, len(e.compiledRules))
	for _, compiled := range e.compiledRules {
		rules = append(rules, compiled.Config)
	}
	return rules
}

// Close clears the compiled set.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compiledRules = make(map[string]*CompiledRule)
	return nil
}

func (e *Engine) compileRule(cfg *domain.RuleConfig) (*CompiledRule, error) {
	ast, issues := e.env.Compile(cfg.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %s: %w", cfg.ID, issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("rule %s: expression must return bool, got %s", cfg.ID, ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", cfg.ID, err)
	}

	return &CompiledRule{
		Config:  cfg,
		Program: program,
	}, nil
}
