package expr

import "math"

const (
	ExprNumber = iota
	ExprColumn
	ExprAdd
	ExprSub
	ExprMul
	ExprDiv
	ExprMod
	ExprPow
	ExprNegate
)

// Expr is one node of the compiled expression tree. The operator set is
// closed by the grammar, so a tagged union dispatched by switch is all the
// polymorphism we need.
type Expr struct {
	Kind int
	Num  float64
	Col  int // 1 based, valid when Kind == ExprColumn
	L    *Expr
	R    *Expr
}

func number(v float64) *Expr {
	return &Expr{Kind: ExprNumber, Num: v}
}

func column(i int) *Expr {
	return &Expr{Kind: ExprColumn, Col: i}
}

func binary(kind int, l, r *Expr) *Expr {
	return &Expr{Kind: kind, L: l, R: r}
}

func checkFinite(v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errNonFinite
	}
	return v, nil
}

// Eval computes the expression for one row. Every intermediate result,
// leaves included, must be finite; the first INF/NAN aborts the evaluation
// instead of propagating.
func (self *Expr) Eval(cols [][]float64, row int) (float64, error) {
	switch self.Kind {
	case ExprNumber:
		return checkFinite(self.Num)

	case ExprColumn:
		if self.Col < 1 || self.Col > len(cols) {
			return 0, evalErr(
				ErrColumnNotFound,
				"column #%d not found",
				self.Col,
			)
		}
		col := cols[self.Col-1]
		if row < 0 || row >= len(col) {
			return 0, evalErr(ErrRowIndexOutOfBounds, "row index out of bounds")
		}
		return checkFinite(col[row])

	case ExprNegate:
		v, err := self.L.Eval(cols, row)
		if err != nil {
			return 0, err
		}
		return checkFinite(-v)

	default:
		a, err := self.L.Eval(cols, row)
		if err != nil {
			return 0, err
		}
		b, err := self.R.Eval(cols, row)
		if err != nil {
			return 0, err
		}
		switch self.Kind {
		case ExprAdd:
			return checkFinite(a + b)
		case ExprSub:
			return checkFinite(a - b)
		case ExprMul:
			return checkFinite(a * b)
		case ExprDiv:
			return checkFinite(a / b)
		case ExprMod:
			return checkFinite(math.Mod(a, b))
		case ExprPow:
			return checkFinite(math.Pow(a, b))
		default:
			return 0, evalErr(ErrNonFiniteNumber, "corrupt expression tree")
		}
	}
}
