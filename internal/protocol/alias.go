package protocol

import (
	"errors"

	"gopkg.in/yaml.v3"
)

// maxResolvedNodes caps alias expansion so a small payload cannot expand without bound.
const maxResolvedNodes = 1 << 20

var (
	errAliasCycle     = errors.New("alias refers to itself")
	errAliasExpansion = errors.New("alias expansion too large")
)

// aliasResolver deep-copies a node tree, replacing every alias with a copy of
// its target and expanding << merge keys into plain key/value pairs. The copy
// carries no anchors, so it stays valid when grafted into another document.
type aliasResolver struct {
	active map[*yaml.Node]bool
	nodes  int
}

func resolveAliases(n *yaml.Node) (*yaml.Node, error) {
	r := &aliasResolver{active: make(map[*yaml.Node]bool)}
	return r.resolve(n)
}

func (r *aliasResolver) resolve(n *yaml.Node) (*yaml.Node, error) {
	if n.Kind == yaml.AliasNode && n.Alias != nil {
		if r.active[n.Alias] {
			return nil, errAliasCycle
		}
		r.active[n.Alias] = true
		defer delete(r.active, n.Alias)
		return r.resolve(n.Alias)
	}

	r.nodes++
	if r.nodes > maxResolvedNodes {
		return nil, errAliasExpansion
	}

	out := *n
	out.Anchor = ""
	out.Alias = nil
	out.Content = nil
	if n.Kind == yaml.MappingNode {
		content, err := r.resolveMapping(n)
		if err != nil {
			return nil, err
		}
		out.Content = content
		return &out, nil
	}
	for _, child := range n.Content {
		c, err := r.resolve(child)
		if err != nil {
			return nil, err
		}
		out.Content = append(out.Content, c)
	}
	return &out, nil
}

// resolveMapping expands merge keys. Explicit keys win over merged ones, and
// earlier merge sources win over later ones.
func (r *aliasResolver) resolveMapping(m *yaml.Node) ([]*yaml.Node, error) {
	explicit := make(map[string]bool)
	for i := 0; i+1 < len(m.Content); i += 2 {
		if !isMergeKey(m.Content[i]) {
			explicit[m.Content[i].Value] = true
		}
	}

	seen := make(map[string]bool)
	content := make([]*yaml.Node, 0, len(m.Content))
	for i := 0; i+1 < len(m.Content); i += 2 {
		key, value := m.Content[i], m.Content[i+1]
		if !isMergeKey(key) {
			k, err := r.resolve(key)
			if err != nil {
				return nil, err
			}
			v, err := r.resolve(value)
			if err != nil {
				return nil, err
			}
			content = append(content, k, v)
			seen[key.Value] = true
			continue
		}

		sources, err := r.mergeSources(value)
		if err != nil {
			return nil, err
		}
		for _, src := range sources {
			for j := 0; j+1 < len(src.Content); j += 2 {
				name := src.Content[j].Value
				if explicit[name] || seen[name] {
					continue
				}
				content = append(content, src.Content[j], src.Content[j+1])
				seen[name] = true
			}
		}
	}
	return content, nil
}

// mergeSources returns the resolved mappings named by a << value: one mapping
// or a sequence of them. Other shapes contribute nothing.
func (r *aliasResolver) mergeSources(value *yaml.Node) ([]*yaml.Node, error) {
	resolved, err := r.resolve(value)
	if err != nil {
		return nil, err
	}
	switch resolved.Kind {
	case yaml.MappingNode:
		return []*yaml.Node{resolved}, nil
	case yaml.SequenceNode:
		sources := make([]*yaml.Node, 0, len(resolved.Content))
		for _, item := range resolved.Content {
			if item.Kind == yaml.MappingNode {
				sources = append(sources, item)
			}
		}
		return sources, nil
	default:
		return nil, nil
	}
}

func isMergeKey(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && (n.Tag == "!!merge" || (n.Tag == "" && n.Value == "<<"))
}

func hasAlias(n *yaml.Node) bool {
	if n.Kind == yaml.AliasNode {
		return true
	}
	for _, child := range n.Content {
		if hasAlias(child) {
			return true
		}
	}
	return false
}
