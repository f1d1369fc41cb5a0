// Package problem generates arithmetic problems and checks answers.
package problem

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
)

// Op identifies the kind of arithmetic in a problem.
type Op string

const (
	Addition       Op = "addition"
	Subtraction    Op = "subtraction"
	Multiplication Op = "multiplication"
	Division       Op = "division"
	SquareRoot     Op = "sqrt"
)

const (
	// DivisionLevel is the first level that may produce division.
	DivisionLevel = 3
	// SquareRootLevel is the first level that may produce square roots.
	SquareRootLevel = 7

	maxOperand = 100
)

// Problem is one generated question.
type Problem struct {
	Text   string `json:"text"`
	Answer string `json:"answer"`
	Op     Op     `json:"op"`
	A      int    `json:"a"`
	B      int    `json:"b,omitempty"`
	Level  int    `json:"level"`
}

// Ops returns the operations available at level.
func Ops(level int) []Op {
	ops := []Op{Addition, Subtraction, Multiplication}
	if level >= DivisionLevel {
		ops = append(ops, Division)
	}
	if level >= SquareRootLevel {
		ops = append(ops, SquareRoot)
	}
	return ops
}

// BaseMax is the largest operand for level at the given multiplier.
func BaseMax(level int, multiplier float64) int {
	return max(2, int(math.Min(maxOperand, float64(10+5*level)*multiplier)))
}

// Generate returns a random problem for level. multiplier scales operand
// size and normally comes from the adaptive engine.
func Generate(rng *rand.Rand, level int, multiplier float64) Problem {
	if level < 1 {
		level = 1
	}
	ops := Ops(level)
	op := ops[rng.IntN(len(ops))]
	baseMax := BaseMax(level, multiplier)

	switch op {
	case SquareRoot:
		hi := int(math.Sqrt(float64(baseMax))) + 1
		root := between(rng, 2, hi)
		n := root * root
		return Problem{
			Text:   fmt.Sprintf("√%d = ?", n),
			Answer: strconv.Itoa(root),
			Op:     op,
			A:      n,
			Level:  level,
		}
	case Division:
		b := between(rng, 1, max(1, baseMax/2))
		a := b * between(rng, 1, max(1, baseMax/b))
		return binary(op, a, b, a/b, level)
	}

	a := between(rng, 1, baseMax)
	b := between(rng, 1, baseMax)
	var ans int
	switch op {
	case Addition:
		ans = a + b
	case Subtraction:
		ans = a - b
	case Multiplication:
		ans = a * b
	}
	return binary(op, a, b, ans, level)
}

func binary(op Op, a, b, ans, level int) Problem {
	return Problem{
		Text:   fmt.Sprintf("%d %s %d = ?", a, op.Symbol(), b),
		Answer: strconv.Itoa(ans),
		Op:     op,
		A:      a,
		B:      b,
		Level:  level,
	}
}

// between returns a uniform int in [lo, hi].
func between(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.IntN(hi-lo+1)
}

// Symbol is the display form of the operator.
func (o Op) Symbol() string {
	switch o {
	case Addition:
		return "+"
	case Subtraction:
		return "-"
	case Multiplication:
		return "×"
	case Division:
		return "÷"
	case SquareRoot:
		return "√"
	}
	return "?"
}

// answerTolerance is how far a numeric answer may be from the expected one.
const answerTolerance = 0.01

// Check reports whether input answers p. Surrounding whitespace is
// ignored; numeric input within 0.01 of the answer is accepted so "12.0"
// matches "12".
func Check(p Problem, input string) bool {
	input = strings.TrimSpace(input)
	if input == "" {
		return false
	}
	if input == p.Answer {
		return true
	}
	got, err := strconv.ParseFloat(input, 64)
	if err != nil {
		return false
	}
	want, err := strconv.ParseFloat(p.Answer, 64)
	if err != nil {
		return false
	}
	return math.Abs(got-want) < answerTolerance
}
