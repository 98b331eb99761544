package roster

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/roster/internal/student"
)

func TestLoad_ValidFormats(t *testing.T) {
	want := []student.Draft{
		{Name: "Ada", Course: "CS"},
		{Name: "Grace", Course: "Math"},
	}

	for _, file := range []string{"valid.cue", "valid.yaml", "valid.json"} {
		t.Run(file, func(t *testing.T) {
			got, err := Load(filepath.Join("testdata", file))
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestLoad_SchemaViolations(t *testing.T) {
	tests := []struct {
		file    string
		contain string
	}{
		{"unknown_field.cue", "grade"},
		{"empty_name.yaml", "name"},
		{"missing_course.json", "course"},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			drafts, err := Load(filepath.Join("testdata", tt.file))
			require.Error(t, err)
			assert.Nil(t, drafts, "nothing is returned when any entry is invalid")

			var le *LoadError
			require.ErrorAs(t, err, &le)
			assert.Contains(t, le.Message, tt.contain)
			assert.True(t, student.IsValidation(err), "got %v", err)
		})
	}
}

func TestLoad_UnknownFieldHasPosition(t *testing.T) {
	path := filepath.Join("testdata", "unknown_field.cue")
	_, err := Load(path)

	var le *LoadError
	require.ErrorAs(t, err, &le)
	require.True(t, le.Pos.IsValid(), "expected a position in %s", path)
	assert.Equal(t, path, le.Pos.Filename())
	assert.Equal(t, 2, le.Pos.Line())
}

func TestLoad_SyntaxError(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "syntax.cue"))

	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.False(t, student.IsValidation(err))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))

	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestParse_UnsupportedExtension(t *testing.T) {
	_, err := Parse("roster.toml", []byte(`students = []`))

	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Contains(t, le.Error(), "unsupported roster format")
}

func TestParse_EmptyDocuments(t *testing.T) {
	for _, tt := range []struct{ name, src string }{
		{"empty.yaml", ""},
		{"empty.json", `{"students": []}`},
		{"empty.cue", `students: []`},
	} {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.name, []byte(tt.src))
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestParse_NormalizesNFC(t *testing.T) {
	got, err := Parse("r.yaml", []byte("students:\n  - name: \"Zoe\\u0308\"\n    course: CS\n"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Zo\u00eb", got[0].Name)
}

func TestLoadError_Format(t *testing.T) {
	le := &LoadError{Path: "r.yaml", Message: "bad"}
	assert.Equal(t, "r.yaml: bad", le.Error())
}
