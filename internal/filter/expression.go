package filter

import (
	"sort"

	"github.com/google/cel-go/cel"
	"github.com/pkg/errors"

	"github.com/ecopia-map/ept_index/internal/data"
)

// ErrInvalidExpression is returned for filter expressions that do not compile.
var ErrInvalidExpression = errors.New("invalid filter expression")

// Expression is a predicate over decoded points. An Expression is not safe for concurrent
// evaluation: each goroutine evaluates its own Clone.
type Expression interface {
	// Names of the attributes the predicate reads
	ReferencedAttributes() []string
	Evaluate(p data.Point) (bool, error)
	Clone() Expression
	String() string
}

type celExpression struct {
	source     string
	program    cel.Program
	referenced []string
	activation map[string]any
}

// Parse compiles a CEL predicate whose variables are the attributes of the collection, for example
// `Classification == 2 && Intensity > 100`. X, Y and Z evaluate to real world coordinates.
func Parse(source string, attributes data.AttributeCollection) (Expression, error) {
	names := attributes.Names()
	opts := []cel.EnvOption{cel.CrossTypeNumericComparisons(true)}
	declared := make(map[string]bool, len(names))
	for _, name := range names {
		if declared[name] {
			continue
		}
		declared[name] = true
		opts = append(opts, cel.Variable(name, cel.DynType))
	}

	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, errors.Wrap(err, "cannot create filter environment")
	}
	ast, iss := env.Compile(source)
	if iss.Err() != nil {
		return nil, errors.Wrapf(ErrInvalidExpression, "%q: %v", source, iss.Err())
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidExpression, "%q: %v", source, err)
	}
	checked, err := cel.AstToCheckedExpr(ast)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidExpression, "%q: %v", source, err)
	}

	seen := make(map[string]bool)
	var referenced []string
	for _, ref := range checked.GetReferenceMap() {
		name := ref.GetName()
		if declared[name] && !seen[name] {
			seen[name] = true
			referenced = append(referenced, name)
		}
	}
	sort.Strings(referenced)

	return &celExpression{
		source:     source,
		program:    program,
		referenced: referenced,
		activation: make(map[string]any, len(referenced)),
	}, nil
}

func (e *celExpression) ReferencedAttributes() []string {
	return append([]string(nil), e.referenced...)
}

func (e *celExpression) Evaluate(p data.Point) (bool, error) {
	for _, name := range e.referenced {
		v, ok := p.Value(name)
		if !ok {
			return false, errors.Errorf("filter %q: point has no attribute %q", e.source, name)
		}
		e.activation[name] = v
	}
	out, _, err := e.program.Eval(e.activation)
	if err != nil {
		return false, errors.Wrapf(err, "filter %q", e.source)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, errors.Errorf("filter %q evaluated to %v, not a boolean", e.source, out.Value())
	}
	return result, nil
}

func (e *celExpression) Clone() Expression {
	return &celExpression{
		source:     e.source,
		program:    e.program,
		referenced: e.referenced,
		activation: make(map[string]any, len(e.referenced)),
	}
}

func (e *celExpression) String() string {
	return e.source
}
