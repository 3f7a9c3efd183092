package binding

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// Scope resolves a dot path to a value. The render context implements
// this over the entity snapshot and input store.
type Scope interface {
	// Lookup resolves a path to its string rendering
	Lookup(path string) (string, bool)

	// LookupRaw resolves a path to its underlying typed value
	LookupRaw(path string) (interface{}, bool)
}

// exprPattern matches {{ path }} placeholders, whitespace-tolerant
var exprPattern = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

// Resolver substitutes binding expressions in template strings. A path
// that does not resolve renders as empty string; the screen must never
// fail to render because data is missing.
type Resolver struct {
	logger *zap.Logger

	// onMiss is invoked once per unresolved path, for metrics
	onMiss func(path string)
}

// NewResolver creates a binding resolver
func NewResolver(logger *zap.Logger) *Resolver {
	return &Resolver{logger: logger}
}

// OnMiss registers a callback invoked for each unresolved path
func (r *Resolver) OnMiss(fn func(path string)) {
	r.onMiss = fn
}

// ContainsExpression reports whether a string holds at least one binding
func ContainsExpression(s string) bool {
	return exprPattern.MatchString(s)
}

// Resolve substitutes every binding expression in the template. The
// second return reports whether all expressions resolved.
func (r *Resolver) Resolve(scope Scope, template string) (string, bool) {
	if !strings.Contains(template, "{{") {
		return template, true
	}

	allResolved := true
	out := exprPattern.ReplaceAllStringFunc(template, func(match string) string {
		path := strings.TrimSpace(match[2 : len(match)-2])
		value, ok := scope.Lookup(path)
		if !ok {
			allResolved = false
			r.miss(path)
			return ""
		}
		return value
	})

	return out, allResolved
}

// ResolveParam resolves an action parameter value. A string that is
// exactly one binding expression keeps the bound value's type, so a
// numeric field stays numeric in the payload; anything else goes
// through string substitution.
func (r *Resolver) ResolveParam(scope Scope, value interface{}) interface{} {
	s, ok := value.(string)
	if !ok {
		return value
	}

	if path, whole := wholeExpression(s); whole {
		raw, found := scope.LookupRaw(path)
		if !found {
			r.miss(path)
			return nil
		}
		return raw
	}

	resolved, _ := r.Resolve(scope, s)
	return resolved
}

// ResolveParams resolves every value in an action params map
func (r *Resolver) ResolveParams(scope Scope, params map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(params))
	for key, value := range params {
		out[key] = r.ResolveParam(scope, value)
	}
	return out
}

// wholeExpression reports whether s is exactly one binding expression
// and returns its path
func wholeExpression(s string) (string, bool) {
	match := exprPattern.FindStringSubmatchIndex(s)
	if match == nil || match[0] != 0 || match[1] != len(s) {
		return "", false
	}
	return strings.TrimSpace(s[match[2]:match[3]]), true
}

func (r *Resolver) miss(path string) {
	r.logger.Debug("binding path did not resolve", zap.String("path", path))
	if r.onMiss != nil {
		r.onMiss(path)
	}
}
