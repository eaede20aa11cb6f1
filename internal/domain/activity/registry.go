package activity

import "fmt"

// Registry maps every Kind to its Rule. It is built once at startup.
type Registry struct {
	rules map[Kind]Rule
}

// NewRegistry builds a registry and fails unless each Kind has exactly one rule.
func NewRegistry(rules ...Rule) (*Registry, error) {
	r := &Registry{rules: make(map[Kind]Rule, len(Kinds))}
	for _, rule := range rules {
		k := rule.Kind()
		if _, ok := ParseKind(string(k)); !ok {
			return nil, fmt.Errorf("rule for unknown kind %q", k)
		}
		if _, dup := r.rules[k]; dup {
			return nil, fmt.Errorf("duplicate rule for kind %q", k)
		}
		r.rules[k] = rule
	}
	for _, k := range Kinds {
		if _, ok := r.rules[k]; !ok {
			return nil, fmt.Errorf("no rule registered for kind %q", k)
		}
	}
	return r, nil
}

// ForName resolves a client-declared kind name, case-insensitively.
func (r *Registry) ForName(name string) (Rule, error) {
	k, ok := ParseKind(name)
	if !ok {
		return nil, NotFound("unknown activity kind %q", name)
	}
	return r.ForKind(k)
}

// ForKind resolves a Kind.
func (r *Registry) ForKind(k Kind) (Rule, error) {
	rule, ok := r.rules[k]
	if !ok {
		return nil, NotFound("unknown activity kind %q", k)
	}
	return rule, nil
}

// ForActivity resolves the rule governing a stored record.
func (r *Registry) ForActivity(a *Activity) (Rule, error) {
	return r.ForKind(a.Kind)
}
