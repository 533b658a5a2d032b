package eval

import (
	"testing"

	"github.com/guage-run/guage/atom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvalSelfEvaluating(t *testing.T) {
	ev, _, _ := newTestEvaluator()
	n := atom.NewNumber(3.5)
	result := ev.Eval(n, nil)
	defer atom.Release(result)
	assert.Equal(t, atom.Number, result.Tag())
	assert.Equal(t, 3.5, result.Num())
}

func TestEvalQuoteReturnsOperandUnevaluated(t *testing.T) {
	ev, table, cache := newTestEvaluator()
	quote := sym(table, cache, "quote")
	lit := atom.NewNumber(7)
	expr := list(quote, lit)
	defer atom.Release(quote)
	defer atom.Release(lit)
	defer atom.Release(expr)

	result := ev.Eval(expr, nil)
	defer atom.Release(result)
	require.Equal(t, atom.Number, result.Tag())
	assert.Equal(t, float64(7), result.Num())
}

func TestEvalIfBranches(t *testing.T) {
	ev, table, cache := newTestEvaluator()
	ifSym := sym(table, cache, "if")
	defer atom.Release(ifSym)

	truthyExpr := list(ifSym, atom.NewBool(true), atom.NewNumber(1), atom.NewNumber(2))
	defer atom.Release(truthyExpr)
	r1 := ev.Eval(truthyExpr, nil)
	defer atom.Release(r1)
	assert.Equal(t, float64(1), r1.Num())

	falsyExpr := list(ifSym, atom.NewBool(false), atom.NewNumber(1), atom.NewNumber(2))
	defer atom.Release(falsyExpr)
	r2 := ev.Eval(falsyExpr, nil)
	defer atom.Release(r2)
	assert.Equal(t, float64(2), r2.Num())
}

func TestEvalIfWithoutElseIsNil(t *testing.T) {
	ev, table, cache := newTestEvaluator()
	ifSym := sym(table, cache, "if")
	defer atom.Release(ifSym)

	expr := list(ifSym, atom.NewBool(false), atom.NewNumber(1))
	defer atom.Release(expr)
	result := ev.Eval(expr, nil)
	defer atom.Release(result)
	assert.Equal(t, atom.Nil, result.Tag())
}

func TestEvalSequenceReturnsLast(t *testing.T) {
	ev, table, cache := newTestEvaluator()
	seqSym := sym(table, cache, "sequence")
	defer atom.Release(seqSym)

	expr := list(seqSym, atom.NewNumber(1), atom.NewNumber(2), atom.NewNumber(3))
	defer atom.Release(expr)
	result := ev.Eval(expr, nil)
	defer atom.Release(result)
	assert.Equal(t, float64(3), result.Num())
}

func TestEvalDefineAndLookup(t *testing.T) {
	ev, table, cache := newTestEvaluator()
	defineSym := sym(table, cache, "define")
	nameSym := sym(table, cache, "answer")
	defer atom.Release(defineSym)

	defineExpr := list(defineSym, nameSym, atom.NewNumber(42))
	defer atom.Release(defineExpr)
	defineResult := ev.Eval(defineExpr, nil)
	defer atom.Release(defineResult)
	assert.Equal(t, float64(42), defineResult.Num())

	lookupSym := sym(table, cache, "answer")
	defer atom.Release(lookupSym)
	result := ev.Eval(lookupSym, nil)
	defer atom.Release(result)
	assert.Equal(t, float64(42), result.Num())
}

func TestEvalDefineOverridesPrimitive(t *testing.T) {
	ev, table, cache := newTestEvaluator()
	defineSym := sym(table, cache, "define")
	plusName := sym(table, cache, "+")
	defer atom.Release(defineSym)

	defineExpr := list(defineSym, plusName, atom.NewNumber(99))
	defer atom.Release(defineExpr)
	atom.Release(ev.Eval(defineExpr, nil))

	plusLookup := sym(table, cache, "+")
	defer atom.Release(plusLookup)
	result := ev.Eval(plusLookup, nil)
	defer atom.Release(result)
	assert.Equal(t, float64(99), result.Num())
}

func TestEvalAndShortCircuits(t *testing.T) {
	ev, table, cache := newTestEvaluator()
	andSym := sym(table, cache, "and")
	defer atom.Release(andSym)

	expr := list(andSym, atom.NewBool(false), atom.NewNumber(1))
	defer atom.Release(expr)
	result := ev.Eval(expr, nil)
	defer atom.Release(result)
	assert.Equal(t, atom.Bool, result.Tag())
	assert.False(t, result.BoolVal())
}

func TestEvalOrReturnsFirstTruthy(t *testing.T) {
	ev, table, cache := newTestEvaluator()
	orSym := sym(table, cache, "or")
	defer atom.Release(orSym)

	expr := list(orSym, atom.NewBool(false), atom.NewNumber(9))
	defer atom.Release(expr)
	result := ev.Eval(expr, nil)
	defer atom.Release(result)
	assert.Equal(t, float64(9), result.Num())
}

func TestEvalTryPropagatePassesThroughValue(t *testing.T) {
	ev, table, cache := newTestEvaluator()
	tpSym := sym(table, cache, "try-propagate")
	defer atom.Release(tpSym)

	expr := list(tpSym, atom.NewNumber(5))
	defer atom.Release(expr)
	result := ev.Eval(expr, nil)
	defer atom.Release(result)
	assert.Equal(t, float64(5), result.Num())
}

func TestEvalTryPropagatePassesThroughError(t *testing.T) {
	ev, table, cache := newTestEvaluator()
	tpSym := sym(table, cache, "try-propagate")
	undefinedSym := sym(table, cache, "nowhere")
	defer atom.Release(tpSym)
	defer atom.Release(undefinedSym)

	expr := list(tpSym, undefinedSym)
	defer atom.Release(expr)
	result := ev.Eval(expr, nil)
	defer atom.Release(result)
	assert.True(t, IsErrorAtom(result))
}

// TestApplyLambdaReturnsBoundArgument builds a one-parameter identity
// lambda by hand (bypassing debruijn.Converter) and applies it directly.
func TestApplyLambdaReturnsBoundArgument(t *testing.T) {
	ev, table, cache := newTestEvaluator()
	body := atom.NewInteger(0) // De Bruijn index 0: the lambda's own parameter
	lambdaExpr := lambdaConverted(table, cache, 1, body)
	defer atom.Release(body)
	defer atom.Release(lambdaExpr)

	lambda := ev.Eval(lambdaExpr, nil)
	defer atom.Release(lambda)
	require.Equal(t, atom.Lambda, lambda.Tag())

	arg := atom.NewNumber(11)
	result := ev.Apply(lambda, atom.Env{arg})
	defer atom.Release(result)
	assert.Equal(t, float64(11), result.Num())
}

// TestApplyRecurLoopsWithoutGrowingGoStack drives a counting loop through
// (recur …) many times; if recur were implemented by re-entering apply via
// recursive Go calls this would blow the Go stack long before the loop
// bound, so a large iteration count standing in for a regression guard.
func TestApplyRecurLoopsWithoutGrowingGoStack(t *testing.T) {
	ev, table, cache := newTestEvaluator()

	ifSym := sym(table, cache, "if")
	eqSym := sym(table, cache, "=")
	plusSym := sym(table, cache, "+")
	recurSym := sym(table, cache, "recur")
	defer atom.Release(ifSym)
	defer atom.Release(eqSym)
	defer atom.Release(plusSym)
	defer atom.Release(recurSym)

	const target = 50000
	idx := atom.NewInteger(0) // parameter 0: running counter
	cond := list(eqSym, idx, atom.NewNumber(target))
	step := list(plusSym, idx, atom.NewNumber(1))
	recurCall := list(recurSym, step)
	body := list(ifSym, cond, idx, recurCall)
	defer atom.Release(idx)
	defer atom.Release(cond)
	defer atom.Release(step)
	defer atom.Release(recurCall)
	defer atom.Release(body)

	lambdaExpr := lambdaConverted(table, cache, 1, body)
	defer atom.Release(lambdaExpr)
	lambda := ev.Eval(lambdaExpr, nil)
	defer atom.Release(lambda)

	result := ev.Apply(lambda, atom.Env{atom.NewInteger(0)})
	defer atom.Release(result)
	require.False(t, IsErrorAtom(result))
	assert.Equal(t, float64(target), result.Num())
}

func TestEvalRecurOutsideLambdaIsAnError(t *testing.T) {
	ev, table, cache := newTestEvaluator()
	recurSym := sym(table, cache, "recur")
	defer atom.Release(recurSym)

	expr := list(recurSym, atom.NewNumber(1))
	defer atom.Release(expr)
	result := ev.Eval(expr, nil)
	defer atom.Release(result)
	assert.True(t, IsErrorAtom(result))
}

func TestEvalUndefinedSymbolSuggestsClosestName(t *testing.T) {
	ev, table, cache := newTestEvaluator()
	defineSym := sym(table, cache, "define")
	nameSym := sym(table, cache, "counter")
	defer atom.Release(defineSym)
	defineExpr := list(defineSym, nameSym, atom.NewNumber(0))
	defer atom.Release(defineExpr)
	atom.Release(ev.Eval(defineExpr, nil))

	typo := sym(table, cache, "countre")
	defer atom.Release(typo)
	result := ev.Eval(typo, nil)
	defer atom.Release(result)
	require.True(t, IsErrorAtom(result))
	assert.Contains(t, result.ErrorInfo().Message, "counter")
}

func TestApplyComposeOfBinaryPrimitivesSurfacesArityError(t *testing.T) {
	ev, table, cache := newTestEvaluator()
	composeSym := sym(table, cache, "compose")
	defer atom.Release(composeSym)

	// double(x) = x * 2, via (:lambda-converted (p) (* p0 2))... reuse the
	// native "*" primitive directly as the inner/outer functions instead,
	// since Lambda-wrapped natives are the simplest callables to compose.
	timesName := sym(table, cache, "*")
	defer atom.Release(timesName)
	timesLambda := ev.Eval(timesName, nil)
	defer atom.Release(timesLambda)

	expr := list(composeSym, timesName, timesName)
	defer atom.Release(expr)
	composed := ev.Eval(expr, nil)
	defer atom.Release(composed)
	require.False(t, IsErrorAtom(composed))
	require.Equal(t, atom.Lambda, composed.Tag())

	result := ev.Apply(composed, atom.Env{atom.NewNumber(3), atom.NewNumber(2)})
	defer atom.Release(result)
	// the first stage consumes both arguments (3*2=6); the second stage
	// only receives that single result and "*" requires two, so chaining
	// two binary primitives through compose surfaces an arity error.
	assert.True(t, IsErrorAtom(result))
}
