package debruijn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guage-run/guage/atom"
	"github.com/guage-run/guage/intern"
)

func newTestConverter() (*Converter, *intern.Table, *intern.Cache) {
	table := intern.NewTable()
	cache := intern.NewCache()
	return NewConverter(table, cache), table, cache
}

func sym(table *intern.Table, cache *intern.Cache, text string) *atom.Atom {
	e := table.Intern(cache, text)
	return atom.NewSymbol(e.Canonical(), e.ID(), e.Hash())
}

func list(items ...*atom.Atom) *atom.Atom {
	result := atom.NewNil()
	for i := len(items) - 1; i >= 0; i-- {
		next := atom.NewPair(items[i], result)
		atom.Release(result)
		result = next
	}
	return result
}

func TestConvertSelfEvaluatingAtomsUnchanged(t *testing.T) {
	c, _, _ := newTestConverter()

	b := atom.NewBool(true)
	n := atom.NewNil()
	s := atom.NewString([]byte("hi"))

	for _, in := range []*atom.Atom{b, n, s} {
		before := in.RefCount()
		out := c.Convert(in, nil)
		assert.Same(t, in, out)
		assert.Equal(t, before+1, out.RefCount())
	}
}

func TestConvertNumberWrapsInQuote(t *testing.T) {
	c, _, _ := newTestConverter()
	lit := atom.NewNumber(3.5)

	out := c.Convert(lit, nil)

	require.Equal(t, atom.Pair, out.Tag())
	require.Equal(t, atom.Symbol, out.Head().Tag())
	assert.Equal(t, intern.IDQuote, out.Head().SymbolInfo().ID)
	require.Equal(t, atom.Pair, out.Tail().Tag())
	assert.Same(t, lit, out.Tail().Head())
	assert.Equal(t, atom.Nil, out.Tail().Tail().Tag())
}

func TestConvertBoundSymbolBecomesIndex(t *testing.T) {
	c, table, cache := newTestConverter()
	x := sym(table, cache, "x")
	ctx := newContext([]string{"x", "y"}, nil)

	out := c.Convert(x, ctx)

	require.Equal(t, atom.Integer, out.Tag())
	assert.Equal(t, int64(0), out.Int())
}

func TestConvertFreeSymbolRetained(t *testing.T) {
	c, table, cache := newTestConverter()
	free := sym(table, cache, "undefined-global")
	before := free.RefCount()

	out := c.Convert(free, nil)

	assert.Same(t, free, out)
	assert.Equal(t, before+1, out.RefCount())
}

func TestConvertLambdaEmitsMarkerAndIndexesBody(t *testing.T) {
	c, table, cache := newTestConverter()
	lambdaSym := sym(table, cache, "lambda")
	xParam := sym(table, cache, "x")
	xRef := sym(table, cache, "x")
	params := list(xParam)
	expr := list(lambdaSym, params, xRef)

	out := c.Convert(expr, nil)

	require.Equal(t, atom.Pair, out.Tag())
	require.Equal(t, atom.Symbol, out.Head().Tag())
	assert.Equal(t, intern.IDLambdaConvertedMarker, out.Head().SymbolInfo().ID)

	gotParams := out.Tail().Head()
	assert.Same(t, params, gotParams)

	body := out.Tail().Tail().Head()
	require.Equal(t, atom.Integer, body.Tag())
	assert.Equal(t, int64(0), body.Int())
}

func TestConvertNestedLambdaDepthAccumulates(t *testing.T) {
	c, table, cache := newTestConverter()
	lambdaSym1 := sym(table, cache, "lambda")
	lambdaSym2 := sym(table, cache, "lambda")
	xParam := sym(table, cache, "x")
	yParam := sym(table, cache, "y")
	xRef := sym(table, cache, "x")

	innerParams := list(yParam)
	innerLambda := list(lambdaSym2, innerParams, xRef)
	outerParams := list(xParam)
	outerLambda := list(lambdaSym1, outerParams, innerLambda)

	out := c.Convert(outerLambda, nil)

	outerBody := out.Tail().Tail().Head()
	require.Equal(t, atom.Symbol, outerBody.Head().Tag())
	assert.Equal(t, intern.IDLambdaConvertedMarker, outerBody.Head().SymbolInfo().ID)

	innerBody := outerBody.Tail().Tail().Head()
	require.Equal(t, atom.Integer, innerBody.Tag())
	assert.Equal(t, int64(1), innerBody.Int())
}

func TestConvertGenericParamSkipsMarkerAndConstraint(t *testing.T) {
	c, table, cache := newTestConverter()
	lambdaSym := sym(table, cache, "lambda")
	marker := sym(table, cache, genericParamText)
	tName := sym(table, cache, "T")
	constraint := sym(table, cache, ":Comparable")
	tRef := sym(table, cache, "T")

	params := list(marker, tName, constraint)
	expr := list(lambdaSym, params, tRef)

	out := c.Convert(expr, nil)
	body := out.Tail().Tail().Head()

	require.Equal(t, atom.Integer, body.Tag())
	assert.Equal(t, int64(0), body.Int())
}

func TestConvertAnnotatedParamSkipsType(t *testing.T) {
	c, table, cache := newTestConverter()
	lambdaSym := sym(table, cache, "lambda")
	xParam := sym(table, cache, "x")
	colon := sym(table, cache, annotationText)
	typeName := sym(table, cache, "Number")
	xRef := sym(table, cache, "x")

	params := list(xParam, colon, typeName)
	expr := list(lambdaSym, params, xRef)

	out := c.Convert(expr, nil)
	body := out.Tail().Tail().Head()

	require.Equal(t, atom.Integer, body.Tag())
	assert.Equal(t, int64(0), body.Int())
}
