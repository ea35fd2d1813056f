package audience

// Logic combines the rules of a query at the top level.
type Logic string

const (
	LogicAnd Logic = "AND"
	LogicOr  Logic = "OR"
)

// Field names a customer attribute a rule can target. The set is closed:
// numeric aggregates compare directly, lastVisit is interpreted as
// days-ago.
type Field string

const (
	FieldTotalSpends Field = "totalSpends"
	FieldVisitCount  Field = "visitCount"
	FieldLastVisit   Field = "lastVisit"
)

// Operator is a comparison in a rule.
type Operator string

const (
	OpGreater      Operator = ">"
	OpLess         Operator = "<"
	OpEqual        Operator = "="
	OpGreaterEqual Operator = ">="
	OpLessEqual    Operator = "<="
)

// Rule is one (field, operator, value) condition.
type Rule struct {
	Field    Field    `json:"field"`
	Operator Operator `json:"operator"`
	Value    float64  `json:"value"`
}

// Query is a flat, user-authored audience expression: an ordered rule
// list combined under a single top-level logic operator.
type Query struct {
	Logic Logic  `json:"logic"`
	Rules []Rule `json:"rules"`
}
