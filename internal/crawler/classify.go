package crawler

import (
	"fmt"
	"net/url"

	"github.com/gobwas/glob"
)

// Classifier assigns a traversal class to a URL. The frontier consults it
// once, at first offer; the class is immutable afterwards. Alternative
// heuristics can be substituted without touching the frontier invariants.
type Classifier interface {
	Classify(u *url.URL) Class
}

// PathPatternClassifier marks URLs whose path matches any of a set of
// glob patterns as listing class. Patterns are matched against the full
// path, so "/blog*" covers "/blog", "/blogs" and everything beneath them.
type PathPatternClassifier struct {
	globs []glob.Glob
}

// NewPathPatternClassifier compiles the given glob patterns.
func NewPathPatternClassifier(patterns []string) (*PathPatternClassifier, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile listing pattern %q: %w", p, err)
		}
		globs = append(globs, g)
	}
	return &PathPatternClassifier{globs: globs}, nil
}

// Classify returns ClassListing when the URL path matches a configured
// pattern, ClassStandard otherwise.
func (c *PathPatternClassifier) Classify(u *url.URL) Class {
	p := u.Path
	if p == "" {
		p = "/"
	}
	for _, g := range c.globs {
		if g.Match(p) {
			return ClassListing
		}
	}
	return ClassStandard
}
