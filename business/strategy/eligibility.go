package strategy

import (
	"github.com/google/cel-go/cel"

	"shelfScout/domain"
	"shelfScout/pkg/logger"
)

// EligibilityFilter gates candidates with an operator-supplied CEL
// expression over `book` and `ctx` maps, e.g.
//
//	book.author != "" && ctx.goal != "escape"
//
// An empty expression admits everything. A non-compiling expression logs a
// warning and disables the filter rather than blocking all recommendations.
type EligibilityFilter struct {
	prg cel.Program
}

func NewEligibilityFilter(expr string) *EligibilityFilter {
	f := &EligibilityFilter{}
	if expr == "" {
		return f
	}

	env, err := cel.NewEnv(
		cel.Variable("book", cel.DynType),
		cel.Variable("ctx", cel.DynType),
	)
	if err != nil {
		logger.Warn("eligibility_env_failed", "error", err)
		return f
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		logger.Warn("eligibility_expr_invalid", "expr", expr, "error", issues.Err())
		return f
	}
	prg, err := env.Program(ast)
	if err != nil {
		logger.Warn("eligibility_program_failed", "expr", expr, "error", err)
		return f
	}
	f.prg = prg
	return f
}

// Filter returns the candidates the expression admits. Evaluation errors on
// a single book keep that book in rather than silently shrinking the pool.
func (f *EligibilityFilter) Filter(books []domain.Book, rc domain.RequestContext) []domain.Book {
	if f == nil || f.prg == nil {
		return books
	}

	rcInput := map[string]any{
		"mood":        rc.Mood,
		"situation":   rc.Situation,
		"goal":        rc.Goal,
		"time_of_day": rc.TimeOfDay,
	}

	out := make([]domain.Book, 0, len(books))
	for _, b := range books {
		res, _, err := f.prg.Eval(map[string]any{
			"book": map[string]any{
				"id":     b.ID,
				"title":  b.Title,
				"author": b.Author,
			},
			"ctx": rcInput,
		})
		if err != nil {
			logger.Warn("eligibility_eval_failed", "book_id", b.ID, "error", err)
			out = append(out, b)
			continue
		}
		if keep, ok := res.Value().(bool); !ok || keep {
			out = append(out, b)
		}
	}
	return out
}
