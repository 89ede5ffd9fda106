// Package problem loads CUE problem files and builds the params, diagnostics
// and primary generator they describe.
package problem

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schemaCUE string

// Error is a problem file error with its CUE position when known.
type Error struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Errors collects every error found in one problem file.
type Errors []*Error

func (e Errors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d problem errors:\n  %s", len(e), strings.Join(msgs, "\n  "))
}

// LoadFile reads and validates a problem file.
func LoadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read problem: %w", err)
	}
	return Load(path, data)
}

// Load validates CUE source against the problem schema and decodes it.
// filename is used for error positions only.
func Load(filename string, src []byte) (*Definition, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("problem schema: %w", err)
	}

	file := ctx.CompileBytes(src, cue.Filename(filename))
	if err := file.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	v := schema.LookupPath(cue.ParsePath("#Problem")).Unify(file)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var def Definition
	if err := v.Decode(&def); err != nil {
		return nil, formatCUEError(err)
	}

	if errs := validate(&def); len(errs) > 0 {
		for _, e := range errs {
			e.Pos = fieldPos(file, e.Field)
		}
		return nil, errs
	}
	return &def, nil
}

// formatCUEError converts CUE errors into Errors with positions.
func formatCUEError(err error) error {
	list := cueerrors.Errors(err)
	if len(list) == 0 {
		return err
	}
	out := make(Errors, 0, len(list))
	for _, e := range list {
		pe := &Error{Field: "cue", Message: e.Error()}
		if path := e.Path(); len(path) > 0 {
			pe.Field = strings.Join(path, ".")
		}
		if positions := cueerrors.Positions(e); len(positions) > 0 {
			pe.Pos = positions[0]
		}
		out = append(out, pe)
	}
	return out
}

// fieldPos returns the source position of a dotted field path, falling back
// to its closest existing parent.
func fieldPos(v cue.Value, field string) token.Pos {
	for path := field; path != ""; {
		if fv := v.LookupPath(cue.ParsePath(path)); fv.Exists() {
			if pos := fv.Pos(); pos.IsValid() {
				return pos
			}
		}
		i := strings.LastIndexByte(path, '.')
		if i < 0 {
			break
		}
		path = path[:i]
	}
	return token.NoPos
}
