package features

import (
	"fmt"
	"time"

	"rfmseg/internal/core"

	"github.com/google/cel-go/cel"
)

// FilterCohort keeps customers whose last purchase date is strictly after cutoff.
// The input slice is not modified. An empty result returns core.ErrDataIntegrity,
// so an empty population never reaches the standardizer.
func FilterCohort(rows []core.CustomerFeatureRow, cutoff time.Time) ([]core.CustomerFeatureRow, error) {
	cutoff = dateOf(cutoff)

	cohort := make([]core.CustomerFeatureRow, 0, len(rows))
	for _, row := range rows {
		if dateOf(row.LastPurchase).After(cutoff) {
			cohort = append(cohort, row)
		}
	}

	if len(cohort) == 0 {
		return nil, fmt.Errorf("%w: no customers purchased after %s", core.ErrDataIntegrity, cutoff.Format(core.DateLayout))
	}

	return cohort, nil
}

// Predicate is a compiled CEL expression that narrows the cohort further.
// Expressions see the variables frequency (int), monetary (double) and
// recency (int), e.g. `frequency > 1 && monetary >= 100.0`.
type Predicate struct {
	expr string
	prg  cel.Program
}

// CompilePredicate compiles expr. An empty expression yields a nil predicate,
// which keeps every row.
func CompilePredicate(expr string) (*Predicate, error) {
	if expr == "" {
		return nil, nil
	}

	env, err := cel.NewEnv(
		cel.Variable(core.FeatureFrequency, cel.IntType),
		cel.Variable(core.FeatureMonetary, cel.DoubleType),
		cel.Variable(core.FeatureRecency, cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create predicate environment: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: cohort predicate %q: %v", core.ErrInvalidParameter, expr, issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("%w: cohort predicate %q must return bool, got %v", core.ErrInvalidParameter, expr, ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to build cohort predicate: %w", err)
	}

	return &Predicate{expr: expr, prg: prg}, nil
}

// String returns the source expression
func (p *Predicate) String() string {
	if p == nil {
		return ""
	}
	return p.expr
}

// Match reports whether row satisfies the predicate.
func (p *Predicate) Match(row core.CustomerFeatureRow) (bool, error) {
	if p == nil {
		return true, nil
	}

	out, _, err := p.prg.Eval(map[string]any{
		core.FeatureFrequency: int64(row.Frequency),
		core.FeatureMonetary:  row.Monetary,
		core.FeatureRecency:   int64(row.Recency),
	})
	if err != nil {
		return false, fmt.Errorf("cohort predicate %q on %s: %w", p.expr, row.CustomerUniqueID, err)
	}

	matched, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("cohort predicate %q returned %T", p.expr, out.Value())
	}
	return matched, nil
}

// Apply keeps the rows matching the predicate. Like FilterCohort it returns
// core.ErrDataIntegrity when nothing is left.
func (p *Predicate) Apply(rows []core.CustomerFeatureRow) ([]core.CustomerFeatureRow, error) {
	if p == nil {
		return rows, nil
	}

	kept := make([]core.CustomerFeatureRow, 0, len(rows))
	for _, row := range rows {
		ok, err := p.Match(row)
		if err != nil {
			return nil, err
		}
		if ok {
			kept = append(kept, row)
		}
	}

	if len(kept) == 0 {
		return nil, fmt.Errorf("%w: cohort predicate %q removed every customer", core.ErrDataIntegrity, p.expr)
	}
	return kept, nil
}
