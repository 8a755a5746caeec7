package render

import (
	"fmt"
	"regexp"
	"strings"

	"docblocks/internal/entity"
)

// ShouldRender is the visibility gate. A false result skips the entity and
// its whole subtree.
func ShouldRender(e *entity.Entity, cfg Config) bool {
	return cfg.ShowIfNoDocstring || e.HasContents
}

type filterRule struct {
	re     *regexp.Regexp
	negate bool
}

// Filter decides which members are rendered by name.
type Filter struct {
	rules []filterRule
}

// CompileFilters compiles filter expressions. An empty expression or an
// invalid regular expression is an *InvalidConfigError.
func CompileFilters(exprs []string) (Filter, error) {
	var f Filter
	for _, expr := range exprs {
		pattern, negate := strings.CutPrefix(strings.TrimSpace(expr), "!")
		if pattern == "" {
			return Filter{}, &InvalidConfigError{Option: "filters", Reason: fmt.Sprintf("empty filter %q", expr)}
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return Filter{}, &InvalidConfigError{Option: "filters", Reason: fmt.Sprintf("filter %q: %v", expr, err)}
		}
		f.rules = append(f.rules, filterRule{re: re, negate: negate})
	}
	return f, nil
}

// Allows reports whether every positive rule matches name and no negated
// rule does.
func (f Filter) Allows(name string) bool {
	for _, r := range f.rules {
		if r.re.MatchString(name) == r.negate {
			return false
		}
	}
	return true
}
