package ratelimit

import "strings"

// Match returns the rule for a request, preferring exact paths over
// prefixes, or nil when no rule applies.
func Match(method, path string, rules []Rule) *Rule {
	var prefix *Rule
	for i := range rules {
		r := &rules[i]
		if r.Method != method {
			continue
		}
		if r.Path == path {
			return r
		}
		if prefix == nil && strings.HasSuffix(r.Path, "/") && strings.HasPrefix(path, r.Path) {
			prefix = r
		}
	}
	return prefix
}
