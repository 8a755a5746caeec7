package render

import (
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"docblocks/internal/entity"
)

// Block is one rendered entity in page order.
type Block struct {
	Path    string       `json:"path"`
	Name    string       `json:"name"`
	Kind    entity.Kind  `json:"kind"`
	Depth   int          `json:"depth"`
	Heading Heading      `json:"heading"`
	Body    ContentBlock `json:"body"`
}

// Renderer walks entity trees depth-first and produces blocks.
type Renderer struct {
	cfg    Config
	filter Filter
	logger *logrus.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLogger sets the logger used for skip and error diagnostics.
func WithLogger(logger *logrus.Logger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New validates cfg and returns a renderer for it.
func New(cfg Config, opts ...Option) (*Renderer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	filter, err := CompileFilters(cfg.Filters)
	if err != nil {
		return nil, err
	}

	discard := logrus.New()
	discard.SetOutput(io.Discard)

	r := &Renderer{cfg: cfg, filter: filter, logger: discard}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Config returns the options the renderer was built with.
func (r *Renderer) Config() Config {
	return r.cfg
}

// Render renders every root entity in input order. A malformed root does not
// stop the others; all failures are joined into the returned error.
func (r *Renderer) Render(roots []entity.Raw) ([]Block, error) {
	var (
		blocks []Block
		errs   []error
	)
	for _, raw := range roots {
		out, err := r.RenderRoot(raw)
		if err != nil {
			r.logger.Errorf("Failed to render %s: %v", rootLabel(raw), err)
			errs = append(errs, err)
			continue
		}
		blocks = append(blocks, out...)
	}
	return blocks, errors.Join(errs...)
}

// RenderRoot renders a single entity tree. Any malformed entity in the tree
// fails the whole tree.
func (r *Renderer) RenderRoot(raw entity.Raw) ([]Block, error) {
	var out []Block
	if err := r.render(raw, RootContext(r.cfg), 0, &out); err != nil {
		return nil, fmt.Errorf("render %s: %w", rootLabel(raw), err)
	}
	return out, nil
}

func (r *Renderer) render(raw entity.Raw, ctx Context, depth int, out *[]Block) error {
	e, err := entity.Normalize(raw)
	if err != nil {
		return err
	}
	if !ctx.IsRoot && !r.filter.Allows(e.Name) {
		r.logger.Debugf("Filtered out %s", e.Path)
		return nil
	}
	if raw.HasContents == nil && e.HasContents && e.Docstring.Empty() {
		// Members the filter hides are not contents.
		e.HasContents = entity.MembersHaveContents(raw.Members, r.filter.Allows)
	}
	if !ShouldRender(e, r.cfg) {
		r.logger.Debugf("Skipping %s: nothing to document", e.Path)
		return nil
	}

	p := ResolveHeading(e, ctx)
	*out = append(*out, Block{
		Path:    e.Path,
		Name:    e.Name,
		Kind:    e.Kind,
		Depth:   depth,
		Heading: p.Heading,
		Body:    RenderBody(e, r.cfg),
	})

	for _, m := range e.Members {
		if m.Path == "" && m.Name != "" {
			m.Path = e.MemberPath(m.Name)
		}
		if err := r.render(m, p.Next, depth+1, out); err != nil {
			return err
		}
	}
	return nil
}

func rootLabel(raw entity.Raw) string {
	switch {
	case raw.Path != "":
		return raw.Path
	case raw.Name != "":
		return raw.Name
	}
	return "<unnamed>"
}
