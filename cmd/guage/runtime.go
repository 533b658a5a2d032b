package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/guage-run/guage/atom"
	"github.com/guage-run/guage/debruijn"
	"github.com/guage-run/guage/diag"
	"github.com/guage-run/guage/eval"
	"github.com/guage-run/guage/intern"
	"github.com/guage-run/guage/jit"
	"github.com/guage-run/guage/sourcemap"
)

// session bundles everything one CLI invocation needs: a single intern
// table and evaluator instance, per spec.md §5's one-goroutine contract.
type session struct {
	sm  *sourcemap.SourceMap
	tbl *intern.Table
	ev  *eval.Evaluator
	jc  *jit.Compiler
}

func newSession() *session {
	tbl := intern.NewTable()
	ev := eval.NewEvaluator(tbl, flagJITThreshold)

	jc, err := jit.NewCompiler()
	if err != nil {
		logger.Debug("JIT unavailable, falling back to interpreter only", "arch", runtime.GOARCH, "err", err)
	} else {
		ev.Compiler = compilerAdapter{jc}
	}

	return &session{sm: sourcemap.New(), tbl: tbl, ev: ev, jc: jc}
}

// compilerAdapter satisfies eval.Compiler while also letting main log
// every compile attempt when --trace is set.
type compilerAdapter struct{ c *jit.Compiler }

func (a compilerAdapter) Compile(expr *atom.Atom) (eval.Compiled, bool) {
	trace, ok := a.c.Compile(expr)
	logger.Debug("JIT compile attempt", "ok", ok)
	return trace, ok
}

func (s *session) Close() {
	if s.jc != nil {
		s.jc.Close()
	}
}

// evalSource reads every top-level form in src under fileName, converts
// and evaluates each in turn, and returns the last result plus any error
// atom encountered. Evaluation stops at the first error.
func (s *session) evalSource(fileName, src string) (*atom.Atom, error) {
	file := s.sm.AddFile(fileName, src)
	cache := intern.NewCache()
	rdr := newReader(s.sm, s.tbl, cache, file)

	forms, err := rdr.ReadAll()
	if err != nil {
		return nil, err
	}

	conv := debruijn.NewConverter(s.tbl, cache)

	var result *atom.Atom
	for _, form := range forms {
		converted := conv.Convert(form, nil)
		logger.Debug("converted top-level form", "source", fileName)
		result = s.ev.Eval(converted, nil)
		if eval.IsErrorAtom(result) {
			return result, nil
		}
	}
	if result == nil {
		result = atom.NewNil()
	}
	return result, nil
}

// reportError renders an error atom as a Diagnostic in the requested
// format and returns the process exit code for it.
func reportError(sm *sourcemap.SourceMap, errAtom *atom.Atom) int {
	d := diagnosticFromError(errAtom)
	if flagFormat == "json" {
		data, err := diag.ToJSON(d, sm)
		if err != nil {
			fatalf("internal error rendering diagnostic: %v", err)
		}
		fmt.Println(string(data))
		return 1
	}
	diag.NewTerminalRenderer(os.Stderr, sm).Render(d)
	return 1
}

func diagnosticFromError(errAtom *atom.Atom) *diag.Diagnostic {
	info := errAtom.ErrorInfo()
	d := diag.New(diag.LevelError, info.Message).WithSpan(errAtom.Span(), "", true)
	for cause := errAtom.Unwrap(); cause != nil; cause = cause.Unwrap() {
		d = d.WithChild(diag.New(diag.LevelNote, cause.ErrorInfo().Message).WithSpan(cause.Span(), "", true))
	}
	return d
}
