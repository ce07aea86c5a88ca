package types

import (
	"fmt"
	"regexp"

	"gorm.io/gorm/clause"
)

type CommonFilterOperator string

const (
	CommonFilterOperatorEq        CommonFilterOperator = "eq"
	CommonFilterOperatorNotEq     CommonFilterOperator = "not_eq"
	CommonFilterOperatorLt        CommonFilterOperator = "lt"
	CommonFilterOperatorLte       CommonFilterOperator = "lte"
	CommonFilterOperatorGt        CommonFilterOperator = "gt"
	CommonFilterOperatorGte       CommonFilterOperator = "gte"
	CommonFilterOperatorDateRange CommonFilterOperator = "date_range"
	CommonFilterOperatorRange     CommonFilterOperator = "range"
	CommonFilterOperatorIn        CommonFilterOperator = "in"
)

var columnName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// CommonFilter is an admin list filter on a single column.
type CommonFilter struct {
	Field    string               `json:"field"`
	Operator CommonFilterOperator `json:"operator"`
	Values   []any                `json:"values"`
}

// Validate rejects filters on columns outside allowed.
func (f *CommonFilter) Validate(allowed []string) error {
	if f == nil {
		return fmt.Errorf("nil filter")
	}
	if !columnName.MatchString(f.Field) {
		return fmt.Errorf("invalid filter field %q", f.Field)
	}
	for _, a := range allowed {
		if a == f.Field {
			return nil
		}
	}
	return fmt.Errorf("filter field %q is not allowed", f.Field)
}

// Build constructs a GORM expression.
func (f *CommonFilter) Build(builder clause.Builder) {
	if len(f.Values) == 0 {
		builder.WriteString("1=1")
		return
	}
	col := clause.Column{Name: f.Field}
	value := f.Values[0]

	switch f.Operator {
	case CommonFilterOperatorEq:
		clause.Eq{Column: col, Value: value}.Build(builder)
	case CommonFilterOperatorNotEq:
		clause.Neq{Column: col, Value: value}.Build(builder)
	case CommonFilterOperatorLt:
		clause.Lt{Column: col, Value: value}.Build(builder)
	case CommonFilterOperatorLte:
		clause.Lte{Column: col, Value: value}.Build(builder)
	case CommonFilterOperatorGt:
		clause.Gt{Column: col, Value: value}.Build(builder)
	case CommonFilterOperatorGte:
		clause.Gte{Column: col, Value: value}.Build(builder)
	case CommonFilterOperatorRange, CommonFilterOperatorDateRange:
		// date_range is inclusive on the start and exclusive on the end
		if len(f.Values) < 2 {
			builder.WriteString("1=1")
			return
		}
		upper := clause.Expression(clause.Lte{Column: col, Value: f.Values[1]})
		if f.Operator == CommonFilterOperatorDateRange {
			upper = clause.Lt{Column: col, Value: f.Values[1]}
		}
		clause.And(clause.Gte{Column: col, Value: f.Values[0]}, upper).Build(builder)
	case CommonFilterOperatorIn:
		clause.IN{Column: col, Values: f.Values}.Build(builder)
	default:
		builder.WriteString("1=1")
	}
}

// FilterSet combines filters with AND.
type FilterSet []*CommonFilter

func (fs FilterSet) Validate(allowed []string) error {
	for _, f := range fs {
		if err := f.Validate(allowed); err != nil {
			return err
		}
	}
	return nil
}

func (fs FilterSet) Build(builder clause.Builder) {
	if len(fs) == 0 {
		builder.WriteString("1=1")
		return
	}
	exprs := make([]clause.Expression, 0, len(fs))
	for _, f := range fs {
		exprs = append(exprs, f)
	}
	clause.And(exprs...).Build(builder)
}
