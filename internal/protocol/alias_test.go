package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestResolveAliases_MergePrecedence(t *testing.T) {
	src := `a: &a {x: 1, y: 1}
b: &b {y: 2, z: 2}
c:
  <<: [*a, *b]
  x: 3
`
	var doc yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(src), &doc))
	resolved, err := resolveAliases(doc.Content[0])
	require.NoError(t, err)
	assert.False(t, hasAlias(resolved))

	var out map[string]map[string]int
	require.NoError(t, resolved.Decode(&out))
	assert.Equal(t, map[string]int{"x": 3, "y": 1, "z": 2}, out["c"])
}

func TestResolveAliases_Cycle(t *testing.T) {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	seq.Content = []*yaml.Node{{Kind: yaml.AliasNode, Alias: seq}}

	_, err := resolveAliases(seq)
	assert.ErrorIs(t, err, errAliasCycle)
}

func TestResolveAliases_ExpansionLimit(t *testing.T) {
	node := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: "x"}
	for i := 0; i < 24; i++ {
		node = &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Content: []*yaml.Node{
			{Kind: yaml.AliasNode, Alias: node},
			{Kind: yaml.AliasNode, Alias: node},
		}}
	}

	_, err := resolveAliases(node)
	assert.ErrorIs(t, err, errAliasExpansion)
}
