package render

import "fmt"

// Config holds the rendering options. It is read-only for the duration of a
// render pass and may be shared between goroutines.
type Config struct {
	ShowIfNoDocstring       bool `yaml:"show_if_no_docstring" json:"show_if_no_docstring"`
	ShowSource              bool `yaml:"show_source" json:"show_source"`
	ShowRootHeading         bool `yaml:"show_root_heading" json:"show_root_heading"`
	ShowRootFullPath        bool `yaml:"show_root_full_path" json:"show_root_full_path"`
	ShowRootMembersFullPath bool `yaml:"show_root_members_full_path" json:"show_root_members_full_path"`
	ShowObjectFullPath      bool `yaml:"show_object_full_path" json:"show_object_full_path"`
	ShowRootTocEntry        bool `yaml:"show_root_toc_entry" json:"show_root_toc_entry"`

	// ShowSignature adds the declaration text above the docstring when the
	// extractor supplied one.
	ShowSignature  bool `yaml:"show_signature" json:"show_signature"`
	ShowProperties bool `yaml:"show_properties" json:"show_properties"`

	// HeadingLevel is the level of the root entity's heading.
	HeadingLevel int `yaml:"heading_level" json:"heading_level"`

	// Filters select members by name. Each entry is a regular expression;
	// a leading "!" excludes matching names instead.
	Filters []string `yaml:"filters" json:"filters"`

	// Toc controls whether pages get a table of contents at all.
	Toc bool `yaml:"toc" json:"toc"`
}

// DefaultConfig mirrors the defaults of the documentation handler the
// templates were written for.
func DefaultConfig() Config {
	return Config{
		ShowSource:       true,
		ShowRootFullPath: true,
		ShowRootTocEntry: true,
		ShowSignature:    true,
		ShowProperties:   true,
		HeadingLevel:     2,
		Filters:          []string{"!^_([^_]|$)"},
		Toc:              true,
	}
}

// Validate reports the first contradiction in the options.
func (c Config) Validate() error {
	if c.HeadingLevel < 1 || c.HeadingLevel > 6 {
		return &InvalidConfigError{
			Option: "heading_level",
			Reason: fmt.Sprintf("must be between 1 and 6, got %d", c.HeadingLevel),
		}
	}
	if c.ShowRootTocEntry && !c.Toc {
		return &InvalidConfigError{
			Option: "show_root_toc_entry",
			Reason: "a root toc entry was requested but the table of contents is disabled",
		}
	}
	if _, err := CompileFilters(c.Filters); err != nil {
		return err
	}
	return nil
}

// InvalidConfigError aborts a render pass before any entity is visited.
type InvalidConfigError struct {
	Option string
	Reason string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid render option %s: %s", e.Option, e.Reason)
}
