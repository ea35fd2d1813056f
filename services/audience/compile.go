package audience

import (
	"fmt"
	"strings"
	"time"

	"campaignhub/pkg/errutil"

	"gorm.io/gorm"
)

var numericColumns = map[Field]string{
	FieldTotalSpends: "total_spends",
	FieldVisitCount:  "visit_count",
}

var sqlOperators = map[Operator]string{
	OpGreater:      ">",
	OpLess:         "<",
	OpEqual:        "=",
	OpGreaterEqual: ">=",
	OpLessEqual:    "<=",
}

// Filter is a compiled audience query, ready to scope a customer query.
// The zero value matches every customer.
type Filter struct {
	expr string
	args []any
}

// Apply scopes db to the customers the filter accepts.
func (f Filter) Apply(db *gorm.DB) *gorm.DB {
	if f.expr == "" {
		return db
	}
	return db.Where(f.expr, f.args...)
}

// Compile translates a query into a store filter. It is pure: the same
// query and reference time always produce the same filter, and nothing is
// mutated, so it is safe to call concurrently and repeatedly.
//
// Numeric rules compare the column against the value with the rule's
// operator. lastVisit rules read the value as days-ago relative to now:
// "<" means visited more recently than N days ago (timestamp after the
// cutoff), ">" means visited longer ago (timestamp before the cutoff).
// The remaining operators have no defined meaning for lastVisit and fail
// compilation instead of silently matching nothing.
func Compile(q Query, now time.Time) (Filter, error) {
	if len(q.Rules) == 0 {
		return Filter{}, nil
	}

	var join string
	switch q.Logic {
	case LogicAnd:
		join = " AND "
	case LogicOr:
		join = " OR "
	default:
		return Filter{}, errutil.ValidationFailed(fmt.Sprintf("unknown logic operator %q", q.Logic))
	}

	conds := make([]string, 0, len(q.Rules))
	args := make([]any, 0, len(q.Rules))
	for _, rule := range q.Rules {
		cond, arg, err := compileRule(rule, now)
		if err != nil {
			return Filter{}, err
		}
		conds = append(conds, "("+cond+")")
		args = append(args, arg)
	}

	return Filter{expr: strings.Join(conds, join), args: args}, nil
}

func compileRule(rule Rule, now time.Time) (string, any, error) {
	switch rule.Field {
	case FieldTotalSpends, FieldVisitCount:
		op, ok := sqlOperators[rule.Operator]
		if !ok {
			return "", nil, errutil.ValidationFailed(fmt.Sprintf("unknown operator %q", rule.Operator))
		}
		return fmt.Sprintf("%s %s ?", numericColumns[rule.Field], op), rule.Value, nil

	case FieldLastVisit:
		cutoff := now.Add(-time.Duration(rule.Value * float64(24*time.Hour)))
		switch rule.Operator {
		case OpLess:
			return "last_visit > ?", cutoff, nil
		case OpGreater:
			return "last_visit < ?", cutoff, nil
		default:
			return "", nil, errutil.ValidationFailed(fmt.Sprintf("operator %q is not supported for lastVisit", rule.Operator))
		}

	default:
		return "", nil, errutil.ValidationFailed(fmt.Sprintf("unknown field %q", rule.Field))
	}
}
