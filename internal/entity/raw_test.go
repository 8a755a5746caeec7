package entity

import (
	"errors"
	"testing"

	"docblocks/internal/docstring"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	raw := Raw{
		Name:       "run",
		Path:       "pkg.Worker.run",
		Kind:       "method",
		Docstring:  "Run the worker.\n\nArgs:\n    ctx: scope",
		Source:     &SourceSpan{Code: "def run(self, ctx):\n    pass\n", StartLine: 42, FilePath: "worker.src"},
		Properties: []string{"async", " ", "abstract"},
		Signature:  &Signature{Parameters: []Parameter{{Name: "self"}, {Name: "ctx"}}},
	}

	e, err := Normalize(raw)
	require.NoError(t, err)

	assert.Equal(t, "run", e.Name)
	assert.Equal(t, "pkg.Worker.run", e.Path)
	assert.Equal(t, KindMethod, e.Kind)
	assert.True(t, e.HasContents)
	assert.Equal(t, []string{"abstract", "async"}, e.SortedProperties())
	assert.True(t, e.HasProperty("async"))
	assert.Equal(t, "(self, ctx)", e.Signature.Call())
	require.NotNil(t, e.Source)
	assert.Equal(t, 42, e.Source.StartLine)
	assert.Equal(t, 43, e.Source.EndLine())
	require.Len(t, e.Docstring.Sections, 2)
	assert.Equal(t, docstring.SectionParameters, e.Docstring.Sections[1].Kind)
}

func TestNormalize_Malformed(t *testing.T) {
	cases := []struct {
		name  string
		raw   Raw
		field string
	}{
		{name: "missing name", raw: Raw{Path: "pkg.x", Kind: "function"}, field: "name"},
		{name: "missing kind", raw: Raw{Name: "x", Path: "pkg.x"}, field: "kind"},
		{name: "unknown kind", raw: Raw{Name: "x", Kind: "attribute"}, field: "kind"},
		{name: "bad start line", raw: Raw{Name: "x", Kind: "function", Source: &SourceSpan{Code: "x", StartLine: 0}}, field: "source.start_line"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Normalize(c.raw)
			require.Error(t, err)

			var malformed *MalformedEntityError
			require.True(t, errors.As(err, &malformed))
			assert.Equal(t, c.field, malformed.Field)
		})
	}
}

func TestNormalize_ErrorNamesQualifiedPath(t *testing.T) {
	_, err := Normalize(Raw{Path: "pkg.Worker.run", Kind: "method"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pkg.Worker.run")
}

func TestNormalize_HasContents(t *testing.T) {
	t.Run("Explicit flag wins", func(t *testing.T) {
		e, err := Normalize(Raw{Name: "f", Kind: "function", Docstring: "doc", HasContents: Bool(false)})
		require.NoError(t, err)
		assert.False(t, e.HasContents)
	})

	t.Run("Derived from documented member", func(t *testing.T) {
		e, err := Normalize(Raw{
			Name: "Worker",
			Kind: "class",
			Members: []Raw{
				{Name: "a", Kind: "method"},
				{Name: "b", Kind: "method", Members: nil, Docstring: "documented"},
			},
		})
		require.NoError(t, err)
		assert.True(t, e.HasContents)
	})

	t.Run("Nothing documented", func(t *testing.T) {
		e, err := Normalize(Raw{Name: "Worker", Kind: "struct", Members: []Raw{{Name: "a", Kind: "method"}}})
		require.NoError(t, err)
		assert.Equal(t, KindClass, e.Kind)
		assert.False(t, e.HasContents)
	})

	t.Run("Path defaults to name", func(t *testing.T) {
		e, err := Normalize(Raw{Name: "pkg", Kind: "package"})
		require.NoError(t, err)
		assert.Equal(t, "pkg", e.Path)
		assert.Equal(t, "pkg.Worker", e.MemberPath("Worker"))
	})
}

func TestSignature_Call(t *testing.T) {
	var nilSig *Signature
	assert.Equal(t, "()", nilSig.Call())
	assert.Equal(t, "(_, n)", (&Signature{Parameters: []Parameter{{Annotation: "int"}, {Name: "n"}}}).Call())
}
