// Package nametmpl implements the placeholder token grammar used by
// configuration keys and deformer names.
//
// Three tokens are recognised:
//
//   - "{}"     expand the key once per side, producing an "L" and an "R" name
//   - "{side}" substitute the side letter of the current expansion
//   - "{name}" substitute the base name of the owning mesh or part
//
// Resolution is deterministic: a key containing "{}" always produces exactly
// two names, in L then R order. A token that cannot be substituted from the
// given context is an error, never a literal left in a node name.
package nametmpl

import (
	"fmt"
	"regexp"
	"strings"
)

// Sides is the fixed side expansion order for the "{}" token.
var Sides = [2]string{"L", "R"}

// Context carries the substitution values available during one resolution.
type Context struct {
	// Side is the current side letter, consumed by "{side}". Empty when the
	// resolution is not happening inside a side expansion.
	Side string

	// Name is the owning mesh or part base name, consumed by "{name}".
	Name string
}

// tokenPattern matches any brace-delimited token so unknown tokens can be
// rejected instead of surviving into scene names.
var tokenPattern = regexp.MustCompile(`\{[^{}]*\}`)

// HasSideToken reports whether key contains the per-side expansion token.
func HasSideToken(key string) bool {
	return strings.Contains(key, "{}")
}

// Resolve substitutes every token in key and returns the resulting concrete
// names in deterministic order. A key containing "{}" yields one name per
// side; any other key yields exactly one.
func Resolve(key string, tctx Context) ([]string, error) {
	if strings.Contains(key, "{}") {
		names := make([]string, 0, len(Sides))
		for _, side := range Sides {
			sideCtx := tctx
			sideCtx.Side = side
			name, err := resolveOne(strings.Replace(key, "{}", side, 1), sideCtx)
			if err != nil {
				return nil, err
			}
			names = append(names, name)
		}
		if names[0] == names[1] {
			return nil, fmt.Errorf("key %q resolves to colliding side names (%q)", key, names[0])
		}
		return names, nil
	}

	name, err := resolveOne(key, tctx)
	if err != nil {
		return nil, err
	}
	return []string{name}, nil
}

// resolveOne substitutes the single-value tokens in key.
func resolveOne(key string, tctx Context) (string, error) {
	out := key

	if strings.Contains(out, "{side}") {
		if tctx.Side == "" {
			return "", fmt.Errorf("key %q uses {side} but no side is in scope", key)
		}
		out = strings.ReplaceAll(out, "{side}", tctx.Side)
	}
	if strings.Contains(out, "{name}") {
		if tctx.Name == "" {
			return "", fmt.Errorf("key %q uses {name} but no owning name is in scope", key)
		}
		out = strings.ReplaceAll(out, "{name}", tctx.Name)
	}

	if leftover := tokenPattern.FindString(out); leftover != "" {
		return "", fmt.Errorf("key %q contains unknown token %q", key, leftover)
	}
	return out, nil
}

// ValidateTokens checks that every brace token in key belongs to the grammar.
// It is the structural check run at configuration load, before any context is
// available for substitution.
func ValidateTokens(key string) error {
	for _, token := range tokenPattern.FindAllString(key, -1) {
		switch token {
		case "{}", "{side}", "{name}":
		default:
			return fmt.Errorf("key %q contains unknown token %q", key, token)
		}
	}
	if strings.Count(key, "{") != strings.Count(key, "}") {
		return fmt.Errorf("key %q has unbalanced braces", key)
	}
	return nil
}

// CollisionCheck verifies that a batch of resolved names is collision free.
// The returned error names the first duplicate found.
func CollisionCheck(names []string) error {
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, dup := seen[name]; dup {
			return fmt.Errorf("resolved name %q produced more than once", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// SideOf extracts the leading side prefix of a concrete node name, e.g. "L"
// from "L_cheek_mesh". Names without a recognised side prefix return "".
func SideOf(name string) string {
	prefix, _, found := strings.Cut(name, "_")
	if !found {
		return ""
	}
	for _, side := range Sides {
		if prefix == side {
			return side
		}
	}
	return ""
}

// BaseName strips the trailing type suffix of a node name, e.g.
// "M_body_compil_mesh" keeps its full name minus nothing; callers that want
// the part base pass the reference geometry name through here to drop a
// trailing "_geo" or "_mesh" token.
func BaseName(name string) string {
	for _, suffix := range []string{"_geo", "_mesh"} {
		if strings.HasSuffix(name, suffix) {
			return strings.TrimSuffix(name, suffix)
		}
	}
	return name
}
