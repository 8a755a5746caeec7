package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docblocks/internal/entity"
)

func mustEntity(t *testing.T, raw entity.Raw) *entity.Entity {
	t.Helper()
	e, err := entity.Normalize(raw)
	require.NoError(t, err)
	return e
}

func TestResolveHeading_VisibleRoot(t *testing.T) {
	cfg := Config{ShowRootHeading: true, HeadingLevel: 2, Toc: true}
	e := mustEntity(t, entity.Raw{Name: "run", Path: "pkg.Worker.run", Kind: "method"})

	p := ResolveHeading(e, RootContext(cfg))

	assert.True(t, p.Visible)
	assert.False(t, p.HiddenTocEntry)
	assert.Equal(t, 2, p.Level)
	assert.Equal(t, "run()", p.Label)
	assert.Equal(t, "run()", p.TocLabel)
	assert.Equal(t, "pkg.Worker.run", p.ID)

	assert.False(t, p.Next.IsRoot)
	assert.True(t, p.Next.IsRootMembers)
	assert.Equal(t, 2, p.Next.HeadingLevel)
}

func TestResolveHeading_SuppressedRoot(t *testing.T) {
	e := mustEntity(t, entity.Raw{Name: "Worker", Path: "pkg.Worker", Kind: "class"})

	t.Run("With toc entry", func(t *testing.T) {
		cfg := Config{ShowRootTocEntry: true, Toc: true, HeadingLevel: 2}
		p := ResolveHeading(e, RootContext(cfg))

		assert.False(t, p.Visible)
		assert.True(t, p.HiddenTocEntry)
		assert.Equal(t, 2, p.Level)
		assert.Equal(t, "pkg.Worker", p.Label)
		assert.Equal(t, "pkg.Worker", p.TocLabel)
		assert.Equal(t, 1, p.Next.HeadingLevel)
		assert.True(t, p.Next.IsRootMembers)
	})

	t.Run("Callable toc entry keeps the qualified path", func(t *testing.T) {
		run := mustEntity(t, entity.Raw{Name: "run", Path: "pkg.Worker.run", Kind: "method"})
		cfg := Config{ShowRootTocEntry: true, Toc: true, HeadingLevel: 2}
		p := ResolveHeading(run, RootContext(cfg))

		assert.True(t, p.HiddenTocEntry)
		assert.Equal(t, "pkg.Worker.run", p.TocLabel)
	})

	t.Run("Without toc entry", func(t *testing.T) {
		cfg := Config{Toc: true, HeadingLevel: 2}
		p := ResolveHeading(e, RootContext(cfg))

		assert.False(t, p.Emitted())
		assert.Empty(t, p.Label)
		assert.Equal(t, 1, p.Next.HeadingLevel)
	})

	t.Run("Level never drops below one", func(t *testing.T) {
		cfg := Config{Toc: true, HeadingLevel: 1}
		p := ResolveHeading(e, RootContext(cfg))
		assert.Equal(t, 1, p.Next.HeadingLevel)
	})
}

func TestResolveHeading_FullPathRules(t *testing.T) {
	method := mustEntity(t, entity.Raw{
		Name:      "run",
		Path:      "pkg.Worker.run",
		Kind:      "method",
		Signature: &entity.Signature{Parameters: []entity.Parameter{{Name: "ctx"}}},
	})

	cases := []struct {
		name  string
		cfg   Config
		ctx   func(Config) Context
		label string
	}{
		{
			name:  "root short",
			cfg:   Config{ShowRootHeading: true},
			ctx:   RootContext,
			label: "run(ctx)",
		},
		{
			name:  "root full",
			cfg:   Config{ShowRootHeading: true, ShowRootFullPath: true},
			ctx:   RootContext,
			label: "pkg.Worker.run(ctx)",
		},
		{
			name:  "root ignores object full path",
			cfg:   Config{ShowRootHeading: true, ShowObjectFullPath: true},
			ctx:   RootContext,
			label: "run(ctx)",
		},
		{
			name:  "root member via members flag",
			cfg:   Config{ShowRootMembersFullPath: true},
			ctx:   func(c Config) Context { return Context{IsRootMembers: true, HeadingLevel: 3, Config: c} },
			label: "pkg.Worker.run(ctx)",
		},
		{
			name:  "root member via object flag",
			cfg:   Config{ShowObjectFullPath: true},
			ctx:   func(c Config) Context { return Context{IsRootMembers: true, HeadingLevel: 3, Config: c} },
			label: "pkg.Worker.run(ctx)",
		},
		{
			name:  "nested ignores members flag",
			cfg:   Config{ShowRootMembersFullPath: true},
			ctx:   func(c Config) Context { return Context{HeadingLevel: 3, Config: c} },
			label: "run(ctx)",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			c.cfg.HeadingLevel = 2
			p := ResolveHeading(method, c.ctx(c.cfg))
			assert.True(t, p.Visible)
			assert.Equal(t, c.label, p.Label)
			assert.Equal(t, "run()", p.TocLabel)
		})
	}
}

func TestResolveHeading_RootMembersClearedForGrandchildren(t *testing.T) {
	cfg := Config{ShowRootMembersFullPath: true, HeadingLevel: 2}
	e := mustEntity(t, entity.Raw{Name: "Worker", Path: "pkg.Worker", Kind: "class"})

	p := ResolveHeading(e, Context{IsRootMembers: true, HeadingLevel: 2, Config: cfg})

	assert.Equal(t, "pkg.Worker", p.Label)
	assert.Equal(t, "Worker", p.TocLabel)
	assert.False(t, p.Next.IsRootMembers)
	assert.False(t, p.Next.IsRoot)
}

func TestResolveHeading_ExactlyOneEmission(t *testing.T) {
	e := mustEntity(t, entity.Raw{Name: "f", Path: "pkg.f", Kind: "function"})

	for _, showRoot := range []bool{true, false} {
		for _, tocEntry := range []bool{true, false} {
			for _, isRoot := range []bool{true, false} {
				cfg := Config{ShowRootHeading: showRoot, ShowRootTocEntry: tocEntry, Toc: true, HeadingLevel: 2}
				p := ResolveHeading(e, Context{IsRoot: isRoot, HeadingLevel: 2, Config: cfg})
				assert.False(t, p.Visible && p.HiddenTocEntry, "root=%v heading=%v toc=%v", isRoot, showRoot, tocEntry)
				assert.GreaterOrEqual(t, p.Level, 1)
			}
		}
	}
}
