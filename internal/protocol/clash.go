// 文件路径: internal/protocol/clash.go
// 模块说明: Clash 模板合并。把订阅里的 proxies 填进模板，按 use/filter 重写策略组成员，移除 proxy-providers。
package protocol

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	keyProxies        = "proxies"
	keyProxyGroups    = "proxy-groups"
	keyProxyProviders = "proxy-providers"
	keyUse            = "use"
	keyFilter         = "filter"
	keyName           = "name"
)

// ClashTransformer merges a Clash subscription into a Clash template.
// It keeps no state between calls.
type ClashTransformer struct{}

// NewClashTransformer 创建 Clash 转换器。
func NewClashTransformer() *ClashTransformer {
	return &ClashTransformer{}
}

// clashProxy is the part of a proxy entry the merge reads. Unknown fields stay in the node.
type clashProxy struct {
	Name string `yaml:"name"`
}

// Transform parses a fresh copy of the template, so the same template text is safe to reuse.
func (t *ClashTransformer) Transform(ctx context.Context, in Input) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(in.Template), &doc); err != nil {
		return nil, templateError("parse template", err)
	}
	root := documentMapping(&doc)
	if root == nil {
		return nil, templateError("template root is not a mapping", nil)
	}
	// Groups may share anchored values. Expand them first so dropping use/filter
	// cannot leave an alias without its anchor.
	if hasAlias(root) {
		resolved, err := resolveAliases(root)
		if err != nil {
			return nil, templateError("resolve template aliases", err)
		}
		root = resolved
		doc.Content[0] = root
	}
	proxiesIdx := mappingIndex(root, keyProxies)
	if proxiesIdx < 0 {
		return nil, templateError("template has no proxies field", nil)
	}
	groups := mappingValue(root, keyProxyGroups)
	if groups == nil {
		return nil, templateError("template has no proxy-groups field", nil)
	}
	if groups.Kind != yaml.SequenceNode {
		return nil, templateError("proxy-groups is not a list", nil)
	}

	proxies, names, err := parseSubscriptionProxies(in.Body)
	if err != nil {
		return nil, err
	}
	root.Content[proxiesIdx+1] = proxies

	for _, group := range groups.Content {
		if group.Kind != yaml.MappingNode {
			continue
		}
		if err := rewriteGroup(group, names); err != nil {
			return nil, err
		}
	}

	deleteKey(root, keyProxyProviders)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, templateError("serialize config", err)
	}
	if err := enc.Close(); err != nil {
		return nil, templateError("serialize config", err)
	}

	return &Result{Payload: buf.Bytes(), Header: in.Header}, nil
}

// parseSubscriptionProxies returns the payload's proxies sequence and the ordered proxy names.
// A payload without proxies yields an empty list.
func parseSubscriptionProxies(body string) (*yaml.Node, []string, error) {
	// An empty 2xx body is a broken upstream, not a document without proxies.
	// Serving it would hand clients a config with every group emptied.
	if strings.TrimSpace(body) == "" {
		return nil, nil, subscriptionError("empty payload", nil)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(body), &doc); err != nil {
		return nil, nil, subscriptionError("parse payload", err)
	}
	root := documentMapping(&doc)
	if root == nil {
		return nil, nil, subscriptionError("payload is not a mapping", nil)
	}
	// Proxies are moved into the template document, where the payload's anchors do not exist.
	root, err := resolveAliases(root)
	if err != nil {
		return nil, nil, subscriptionError("resolve payload aliases", err)
	}

	proxies := mappingValue(root, keyProxies)
	if proxies == nil || isNull(proxies) {
		return emptySequence(), []string{}, nil
	}
	if proxies.Kind != yaml.SequenceNode {
		return nil, nil, subscriptionError("proxies is not a list", nil)
	}

	names := make([]string, 0, len(proxies.Content))
	for i, item := range proxies.Content {
		if item.Kind != yaml.MappingNode {
			return nil, nil, subscriptionError(fmt.Sprintf("proxy #%d is not a mapping", i+1), nil)
		}
		var proxy clashProxy
		if err := item.Decode(&proxy); err != nil {
			return nil, nil, subscriptionError(fmt.Sprintf("proxy #%d", i+1), err)
		}
		if proxy.Name == "" {
			return nil, nil, subscriptionError(fmt.Sprintf("proxy #%d has no name", i+1), nil)
		}
		names = append(names, proxy.Name)
	}
	return proxies, names, nil
}

// rewriteGroup fills a use-marked group with the matching proxy names and drops
// the use/filter directives. Groups without use are left as authored.
func rewriteGroup(group *yaml.Node, names []string) error {
	useIdx := mappingIndex(group, keyUse)
	if useIdx < 0 {
		return nil
	}

	members := names
	if filterNode := mappingValue(group, keyFilter); filterNode != nil && !isNull(filterNode) {
		if filterNode.Kind != yaml.ScalarNode {
			return templateError(fmt.Sprintf("group %q: filter is not a string", groupName(group)), nil)
		}
		matched, err := ParseFilter(filterNode.Value).Match(names)
		if err != nil {
			return templateError(fmt.Sprintf("group %q: invalid filter", groupName(group)), err)
		}
		members = matched
	}

	membership := stringSequence(members)
	if idx := mappingIndex(group, keyProxies); idx >= 0 {
		group.Content[idx+1] = membership
		deleteKey(group, keyUse)
	} else {
		// Put proxies where use was so the group keeps its field order.
		group.Content[useIdx].Value = keyProxies
		group.Content[useIdx+1] = membership
	}
	deleteKey(group, keyFilter)
	return nil
}

func groupName(group *yaml.Node) string {
	if n := mappingValue(group, keyName); n != nil && n.Kind == yaml.ScalarNode {
		return n.Value
	}
	return ""
}

func documentMapping(doc *yaml.Node) *yaml.Node {
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil
	}
	return root
}

// mappingIndex returns the index of key's key node in m.Content, or -1.
func mappingIndex(m *yaml.Node, key string) int {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return i
		}
	}
	return -1
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	if i := mappingIndex(m, key); i >= 0 {
		return m.Content[i+1]
	}
	return nil
}

func deleteKey(m *yaml.Node, key string) {
	for i := mappingIndex(m, key); i >= 0; i = mappingIndex(m, key) {
		m.Content = append(m.Content[:i], m.Content[i+2:]...)
	}
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}

func emptySequence() *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
}

func stringSequence(items []string) *yaml.Node {
	seq := emptySequence()
	seq.Content = make([]*yaml.Node, 0, len(items))
	for _, item := range items {
		seq.Content = append(seq.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: item})
	}
	return seq
}
