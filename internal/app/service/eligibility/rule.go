package eligibility

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// Expression is a compiled targeting rule over roles, lifetime_spend,
// order_count and today.
type Expression struct {
	source string
	prg    cel.Program
}

func newEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("roles", cel.ListType(cel.StringType)),
		cel.Variable("lifetime_spend", cel.DoubleType),
		cel.Variable("order_count", cel.IntType),
		cel.Variable("today", cel.StringType),
	)
}

// CompileRule parses and type-checks expr, which must yield a bool.
func CompileRule(expr string) (*Expression, error) {
	env, err := newEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("compile targeting rule: %w", iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("targeting rule must return bool, got %s", ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build targeting rule: %w", err)
	}
	return &Expression{source: expr, prg: prg}, nil
}

func (e *Expression) String() string {
	if e == nil {
		return ""
	}
	return e.source
}

func (e *Expression) Eval(s Subject) (bool, error) {
	spend, _ := s.LifetimeSpend.Float64()
	roles := s.Roles
	if roles == nil {
		roles = []string{}
	}
	out, _, err := e.prg.Eval(map[string]any{
		"roles":          roles,
		"lifetime_spend": spend,
		"order_count":    int64(s.OrderCount),
		"today":          s.Today,
	})
	if err != nil {
		return false, fmt.Errorf("eval targeting rule: %w", err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("targeting rule returned %T", out.Value())
	}
	return b, nil
}
