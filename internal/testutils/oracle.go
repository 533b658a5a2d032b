// Package testutils holds helpers shared across package test suites.
package testutils

// Oracle reimplements, directly in Go with no interpreter involved, the
// handful of fixed test programs the eval suite runs differentially
// against the real evaluator: an arithmetic expression, a doubling
// lambda, Fibonacci and summation via tail recursion, and Ackermann.
// Keeping a second, trivially-correct implementation of each catches
// evaluator or JIT bugs that would otherwise only show up as "looks
// plausible" wrong answers.
type Oracle struct{}

// AddOneTwo is the oracle for `(+ 1 2)`.
func (Oracle) AddOneTwo() int64 { return 3 }

// Double is the oracle for a `(lambda (x) (* x 2))` call.
func (Oracle) Double(x int64) int64 { return x * 2 }

// Fib is the oracle for a recur-based Fibonacci definition, fib(0)=0,
// fib(1)=1.
func (Oracle) Fib(n int64) int64 {
	if n < 2 {
		return n
	}
	a, b := int64(0), int64(1)
	for i := int64(2); i <= n; i++ {
		a, b = b, a+b
	}
	return b
}

// SumTo is the oracle for a recur-based "sum the integers 1..n" loop.
func (Oracle) SumTo(n int64) int64 {
	var total int64
	for i := int64(1); i <= n; i++ {
		total += i
	}
	return total
}

// Ackermann is the oracle for the two-argument Ackermann function,
// deliberately unoptimized (matching the naive recursive definition a
// Guage program would write) since only small inputs like (3, 3) are
// ever exercised.
func (Oracle) Ackermann(m, n int64) int64 {
	if m == 0 {
		return n + 1
	}
	if n == 0 {
		return Oracle{}.Ackermann(m-1, 1)
	}
	return Oracle{}.Ackermann(m-1, Oracle{}.Ackermann(m, n-1))
}
