// Package roster loads bulk seed files of student records.
//
// A roster file lists students under a top-level "students" key. It may be
// written in CUE, YAML, or JSON; every format is checked against the same
// closed CUE schema (schema.cue) before any record is produced:
//
//	students: [
//	    {name: "Ada", course: "CS"},
//	    {name: "Grace", course: "Math"},
//	]
package roster

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/roster/internal/student"
)

//go:embed schema.cue
var schemaSrc string

// LoadError reports a roster file that could not be read or did not match
// the schema. Pos is set when the failure has a source position.
type LoadError struct {
	Path    string
	Message string
	Pos     token.Pos
	Err     error
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Load reads the roster file at path. The format follows the extension:
// .cue, .yaml, .yml, or .json.
func Load(path string) ([]student.Draft, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Message: err.Error(), Err: err}
	}
	return Parse(path, data)
}

// Parse decodes a roster document. filename selects the format and is used
// in error positions.
//
// Names and courses come back normalized. Nothing is returned unless every
// entry is valid.
func Parse(filename string, data []byte) ([]student.Draft, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSrc, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile roster schema: %w", err)
	}

	var doc cue.Value
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".cue":
		doc = ctx.CompileBytes(data, cue.Filename(filename))
	case ".yaml", ".yml", ".json":
		// YAML is a superset of JSON, so one decoder serves both.
		var raw any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, &LoadError{Path: filename, Message: err.Error(), Err: err}
		}
		if raw == nil {
			raw = map[string]any{}
		}
		doc = ctx.Encode(raw)
	default:
		return nil, &LoadError{
			Path:    filename,
			Message: fmt.Sprintf("unsupported roster format %q (want .cue, .yaml, .yml or .json)", ext),
		}
	}
	if err := doc.Err(); err != nil {
		return nil, syntaxError(filename, err)
	}

	v := schema.LookupPath(cue.ParsePath("#Roster")).Unify(doc)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, schemaError(filename, err)
	}

	var file struct {
		Students []student.Draft `json:"students"`
	}
	if err := v.Decode(&file); err != nil {
		return nil, schemaError(filename, err)
	}

	drafts := make([]student.Draft, 0, len(file.Students))
	for i, s := range file.Students {
		d, err := student.NewDraft(s.Name, s.Course)
		if err != nil {
			return nil, &LoadError{
				Path:    filename,
				Message: fmt.Sprintf("students.%d: %v", i, err),
				Err:     err,
			}
		}
		drafts = append(drafts, d)
	}
	return drafts, nil
}

// syntaxError converts a CUE build error.
func syntaxError(filename string, err error) error {
	msg, pos := firstCUEError(filename, err)
	return &LoadError{Path: filename, Message: msg, Pos: pos, Err: err}
}

// schemaError converts a schema violation into a LoadError wrapping a
// ValidationError.
func schemaError(filename string, err error) error {
	msg, pos := firstCUEError(filename, err)
	return &LoadError{
		Path:    filename,
		Message: msg,
		Pos:     pos,
		Err:     &student.ValidationError{Message: msg},
	}
}

// firstCUEError returns the message of the first error in a CUE error list
// and its first position inside filename. Positions inside the embedded
// schema are skipped; they would point users at a file they cannot see.
func firstCUEError(filename string, err error) (string, token.Pos) {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err.Error(), token.NoPos
	}
	first := errs[0]
	for _, pos := range cueerrors.Positions(first) {
		if pos.Filename() == filename {
			return first.Error(), pos
		}
	}
	return first.Error(), token.NoPos
}
