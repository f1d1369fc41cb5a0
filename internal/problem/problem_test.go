package problem

import (
	"math/rand/v2"
	"regexp"
	"strconv"
	"testing"
)

func TestBaseMax(t *testing.T) {
	tests := []struct {
		level int
		mult  float64
		want  int
	}{
		{1, 1.0, 15},
		{1, 1.25, 18},
		{3, 0.65, 16},
		{10, 2.0, 100},
		{1, 0.0, 2},
	}
	for _, tt := range tests {
		if got := BaseMax(tt.level, tt.mult); got != tt.want {
			t.Errorf("BaseMax(%d, %v) = %d, want %d", tt.level, tt.mult, got, tt.want)
		}
	}
}

func TestOps(t *testing.T) {
	tests := []struct {
		level int
		n     int
	}{
		{1, 3}, {2, 3}, {3, 4}, {6, 4}, {7, 5}, {12, 5},
	}
	for _, tt := range tests {
		if got := len(Ops(tt.level)); got != tt.n {
			t.Errorf("len(Ops(%d)) = %d, want %d", tt.level, got, tt.n)
		}
	}
}

func TestGenerate_Properties(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 42))
	textRe := regexp.MustCompile(`^(\d+ [+\-×÷] \d+|√\d+) = \?$`)

	for level := 1; level <= 12; level++ {
		for _, mult := range []float64{0.65, 1.25, 2.0} {
			baseMax := BaseMax(level, mult)
			for i := 0; i < 300; i++ {
				p := Generate(rng, level, mult)

				if !textRe.MatchString(p.Text) {
					t.Fatalf("bad text %q", p.Text)
				}
				if _, err := strconv.Atoi(p.Answer); err != nil {
					t.Fatalf("answer %q is not an integer", p.Answer)
				}
				if p.Op == Division && level < DivisionLevel {
					t.Fatalf("division at level %d", level)
				}
				if p.Op == SquareRoot && level < SquareRootLevel {
					t.Fatalf("sqrt at level %d", level)
				}

				switch p.Op {
				case Division:
					if p.B == 0 || p.A%p.B != 0 {
						t.Fatalf("inexact division %d / %d", p.A, p.B)
					}
					if p.B > max(1, baseMax/2) {
						t.Fatalf("divisor %d above %d", p.B, baseMax/2)
					}
				case SquareRoot:
					root, _ := strconv.Atoi(p.Answer)
					if root*root != p.A || root < 2 {
						t.Fatalf("bad square root problem %+v", p)
					}
				default:
					if p.A < 1 || p.A > baseMax || p.B < 1 || p.B > baseMax {
						t.Fatalf("operands %d, %d outside [1, %d]", p.A, p.B, baseMax)
					}
				}
				if !Check(p, p.Answer) {
					t.Fatalf("Check rejects own answer for %+v", p)
				}
			}
		}
	}
}

func TestGenerate_ClampsLevel(t *testing.T) {
	p := Generate(rand.New(rand.NewPCG(1, 1)), 0, 1.0)
	if p.Level != 1 {
		t.Errorf("Level = %d, want 1", p.Level)
	}
}

func TestCheck(t *testing.T) {
	p := Problem{Text: "6 × 7 = ?", Answer: "42", Op: Multiplication}
	tests := []struct {
		in   string
		want bool
	}{
		{"42", true},
		{"  42\n", true},
		{"42.0", true},
		{"42.005", true},
		{"42.5", false},
		{"41", false},
		{"", false},
		{"forty-two", false},
	}
	for _, tt := range tests {
		if got := Check(p, tt.in); got != tt.want {
			t.Errorf("Check(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSymbol(t *testing.T) {
	if Multiplication.Symbol() != "×" || Division.Symbol() != "÷" {
		t.Error("multiplication and division must render as × and ÷")
	}
}
