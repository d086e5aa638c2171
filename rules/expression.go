package rules

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/cel-go/cel"
	celast "github.com/google/cel-go/common/ast"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"

	"github.com/liamcoop/ilrvalidation/lookup"
	"github.com/liamcoop/ilrvalidation/model"
)

// Scope says what an expression rule is evaluated against
type Scope string

const (
	// ScopeLearner evaluates once per learner
	ScopeLearner Scope = "learner"
	// ScopeDelivery evaluates once per learning delivery, raising with its aim sequence number
	ScopeDelivery Scope = "delivery"
)

// ExpressionDefinition is a declarative rule stored outside the code.
// The expression is a CEL predicate; true means the record is in violation.
type ExpressionDefinition struct {
	ID             string    `json:"id"`
	CatalogVersion string    `json:"catalogVersion"`
	Name           string    `json:"name"`
	Scope          Scope     `json:"scope"`
	Expression     string    `json:"expression"`
	Parameters     []string  `json:"parameters,omitempty"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// ExpressionCompiler compiles expression definitions into rules.
// Its environment declares `learner` and `delivery` and binds the lookup
// functions isCurrent, lookupContains and lookupContainsCode.
type ExpressionCompiler struct {
	env *cel.Env
}

// lookupFunctions maps each lookup function to the parser of its category argument
var lookupFunctions = map[string]func(string) error{
	"isCurrent": func(name string) error {
		_, err := lookup.ParseTimeRestrictedKey(name)
		return err
	},
	"lookupContains": func(name string) error {
		_, err := lookup.ParseSimpleKey(name)
		return err
	},
	"lookupContainsCode": func(name string) error {
		_, err := lookup.ParseCodedKey(name)
		return err
	},
}

// NewExpressionCompiler creates a compiler whose lookup functions query lookups.
// A lookup the provider cannot answer evaluates to a *lookup.ConfigurationError.
func NewExpressionCompiler(lookups lookup.Details) (*ExpressionCompiler, error) {
	env, err := cel.NewEnv(
		cel.Variable("learner", cel.DynType),
		cel.Variable("delivery", cel.DynType),
		cel.Function("isCurrent",
			cel.Overload("isCurrent_string_int_timestamp",
				[]*cel.Type{cel.StringType, cel.IntType, cel.TimestampType}, cel.BoolType,
				cel.FunctionBinding(func(args ...ref.Val) ref.Val {
					name := string(args[0].(types.String))
					key, err := lookup.ParseTimeRestrictedKey(name)
					if err != nil {
						return types.WrapErr(&lookup.ConfigurationError{Category: name, Cause: err})
					}
					code := int(args[1].(types.Int))
					date := args[2].(types.Timestamp).Time
					return queryLookup(func() bool { return lookups.IsCurrent(key, code, date) })
				}),
			),
		),
		cel.Function("lookupContains",
			cel.Overload("lookupContains_string_int",
				[]*cel.Type{cel.StringType, cel.IntType}, cel.BoolType,
				cel.BinaryBinding(func(lhs, rhs ref.Val) ref.Val {
					name := string(lhs.(types.String))
					key, err := lookup.ParseSimpleKey(name)
					if err != nil {
						return types.WrapErr(&lookup.ConfigurationError{Category: name, Cause: err})
					}
					return queryLookup(func() bool { return lookups.Contains(key, int(rhs.(types.Int))) })
				}),
			),
		),
		cel.Function("lookupContainsCode",
			cel.Overload("lookupContainsCode_string_string",
				[]*cel.Type{cel.StringType, cel.StringType}, cel.BoolType,
				cel.BinaryBinding(func(lhs, rhs ref.Val) ref.Val {
					name := string(lhs.(types.String))
					key, err := lookup.ParseCodedKey(name)
					if err != nil {
						return types.WrapErr(&lookup.ConfigurationError{Category: name, Cause: err})
					}
					return queryLookup(func() bool { return lookups.ContainsCode(key, string(rhs.(types.String))) })
				}),
			),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &ExpressionCompiler{env: env}, nil
}

// queryLookup runs query, returning a configuration fault raised by the
// provider as a CEL error value. The interpreter's own recovery would drop the
// error type.
func queryLookup(query func() bool) (out ref.Val) {
	defer func() {
		if r := recover(); r != nil {
			ce, ok := r.(*lookup.ConfigurationError)
			if !ok {
				panic(r)
			}
			out = types.WrapErr(ce)
		}
	}()
	return types.Bool(query())
}

// checkLookupCalls requires the category argument of every lookup call to be
// a string literal naming a known category
func checkLookupCalls(ast *cel.Ast) error {
	var problems []string
	celast.PreOrderVisit(ast.NativeRep().Expr(), celast.NewExprVisitor(func(e celast.Expr) {
		if e.Kind() != celast.CallKind {
			return
		}
		call := e.AsCall()
		parse, ok := lookupFunctions[call.FunctionName()]
		if !ok || len(call.Args()) == 0 {
			return
		}
		arg := call.Args()[0]
		if arg.Kind() != celast.LiteralKind {
			problems = append(problems, fmt.Sprintf("%s needs a literal lookup name as its first argument", call.FunctionName()))
			return
		}
		name, ok := arg.AsLiteral().(types.String)
		if !ok {
			problems = append(problems, fmt.Sprintf("%s needs a string lookup name", call.FunctionName()))
			return
		}
		if err := parse(string(name)); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", call.FunctionName(), err))
		}
	}))
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// Compile type-checks a definition and returns it as a Rule
func (c *ExpressionCompiler) Compile(def *ExpressionDefinition) (*ExpressionRule, error) {
	if err := ValidateRuleName(def.Name); err != nil {
		return nil, fmt.Errorf("invalid rule name %q: %w", def.Name, err)
	}
	scope := def.Scope
	if scope == "" {
		scope = ScopeLearner
	}
	if scope != ScopeLearner && scope != ScopeDelivery {
		return nil, fmt.Errorf("rule %s: unknown scope %q", def.Name, def.Scope)
	}

	ast, issues := c.env.Compile(def.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	if !ast.OutputType().IsAssignableType(cel.BoolType) {
		return nil, fmt.Errorf("rule %s: expression must be boolean, got %s", def.Name, ast.OutputType())
	}
	if err := checkLookupCalls(ast); err != nil {
		return nil, fmt.Errorf("rule %s: %w", def.Name, err)
	}

	// Cost limit of 1,000,000 bounds runaway expressions
	prog, err := c.env.Program(ast,
		cel.EvalOptions(cel.OptTrackState),
		cel.CostLimit(1000000),
	)
	if err != nil {
		return nil, fmt.Errorf("program creation error: %w", err)
	}

	return &ExpressionRule{
		reporter:   NewReporter(def.Name),
		scope:      scope,
		parameters: append([]string(nil), def.Parameters...),
		program:    prog,
	}, nil
}

// CompileAll compiles every definition, stopping at the first failure
func (c *ExpressionCompiler) CompileAll(defs []*ExpressionDefinition) ([]Rule, error) {
	out := make([]Rule, 0, len(defs))
	for _, def := range defs {
		r, err := c.Compile(def)
		if err != nil {
			return nil, fmt.Errorf("failed to compile rule %s: %w", def.ID, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// ExpressionRule is a compiled declarative rule
type ExpressionRule struct {
	reporter   Reporter
	scope      Scope
	parameters []string
	program    cel.Program
}

// Name returns the rule name
func (r *ExpressionRule) Name() string {
	return r.reporter.Name()
}

// Validate evaluates the expression against the learner, or each of its deliveries
func (r *ExpressionRule) Validate(learner *model.Learner, h ErrorHandler) error {
	if learner == nil {
		return ErrNilLearner
	}
	learnerFacts := LearnerFacts(learner)

	if r.scope == ScopeLearner {
		violated, err := r.eval(map[string]any{"learner": learnerFacts, "delivery": map[string]any{}})
		if err != nil {
			return err
		}
		if violated {
			r.reporter.Raise(h, learner.LearnRefNumber, nil, r.fields(learnerFacts, nil)...)
		}
		return nil
	}

	for _, d := range learner.LearningDeliveries {
		if d == nil {
			continue
		}
		deliveryFacts := DeliveryFacts(d)
		violated, err := r.eval(map[string]any{"learner": learnerFacts, "delivery": deliveryFacts})
		if err != nil {
			return fmt.Errorf("aim %d: %w", d.AimSeqNumber, err)
		}
		if violated {
			r.reporter.RaiseForDelivery(h, learner, d, r.fields(learnerFacts, deliveryFacts)...)
		}
	}
	return nil
}

// eval treats a non-boolean result as no violation
func (r *ExpressionRule) eval(activation map[string]any) (bool, error) {
	out, _, err := r.program.Eval(activation)
	if err != nil {
		return false, err
	}
	violated, ok := out.Value().(bool)
	return ok && violated, nil
}

// fields resolves the reported parameters, preferring delivery fields over learner ones.
// A name of the form Entity.Field reads a nested learner entity such as LearnerHE.TTACCOM.
func (r *ExpressionRule) fields(learnerFacts, deliveryFacts map[string]any) []Field {
	out := make([]Field, 0, len(r.parameters))
	for _, name := range r.parameters {
		out = append(out, F(lastSegment(name), resolveFact(name, learnerFacts, deliveryFacts)))
	}
	return out
}

func resolveFact(name string, learnerFacts, deliveryFacts map[string]any) any {
	if v, ok := deliveryFacts[name]; ok {
		return v
	}
	parts := strings.Split(name, ".")
	var cur any = learnerFacts
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[p]
	}
	return cur
}

func lastSegment(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}
