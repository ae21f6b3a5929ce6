package interceptor

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	lterrors "github.com/livp123/logtap/pkg/errors"
)

// exprEnv is the environment visible to expression filters.
type exprEnv struct {
	Line   string   `expr:"line"`
	Length int      `expr:"length"`
	Fields []string `expr:"fields"`
}

// ExprFilter keeps lines for which a boolean expression evaluates to true, e.g.
//
//	line contains "ERROR" && length > 20
//	fields[0] == "WARN" || line matches "timeout after [0-9]+s"
//
// ExprFilter 保留表达式结果为 true 的日志行。
type ExprFilter struct {
	source  string
	program *vm.Program
}

// NewExprFilter compiles source. Compilation errors are configuration errors.
func NewExprFilter(source string) (*ExprFilter, error) {
	if strings.TrimSpace(source) == "" {
		return nil, lterrors.NewConfigError("filter.expression", source)
	}
	program, err := expr.Compile(source, expr.Env(exprEnv{}), expr.AsBool())
	if err != nil {
		return nil, lterrors.NewPatternError(source, err)
	}
	return &ExprFilter{source: source, program: program}, nil
}

// Evaluate implements Filter.
func (f *ExprFilter) Evaluate(line string) (bool, error) {
	env := exprEnv{
		Line:   line,
		Length: len(line),
		Fields: strings.Fields(line),
	}
	out, err := expr.Run(f.program, env)
	if err != nil {
		return false, err
	}
	keep, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("expression %q returned %T", f.source, out)
	}
	return keep, nil
}

func (f *ExprFilter) String() string {
	return "expr(" + f.source + ")"
}
