package vdom

import "fmt"

// Text creates a text node.
func Text(content string) *VNode {
	return &VNode{
		Kind: KindText,
		Text: content,
	}
}

// Textf creates a formatted text node.
func Textf(format string, args ...any) *VNode {
	return Text(fmt.Sprintf(format, args...))
}

// El creates an element. Children may be *VNode, []*VNode, string (text),
// Props (merged into the element's props) or nil.
func El(tag string, children ...any) *VNode {
	node := &VNode{
		Kind: KindElement,
		Tag:  tag,
	}

	for _, child := range children {
		switch v := child.(type) {
		case nil:
			continue
		case *VNode:
			if v != nil {
				node.AppendChild(v)
			}
		case []*VNode:
			for _, c := range v {
				if c != nil {
					node.AppendChild(c)
				}
			}
		case string:
			node.AppendChild(Text(v))
		case Props:
			if node.Props == nil {
				node.Props = make(Props, len(v))
			}
			for k, val := range v {
				node.Props[k] = val
			}
		}
	}

	return node
}

// Keyed sets the node's key and returns it.
func Keyed(key string, node *VNode) *VNode {
	if node != nil {
		node.Key = key
	}
	return node
}

// TextContent returns the concatenated text of v and its descendants.
func (v *VNode) TextContent() string {
	if v == nil {
		return ""
	}
	if v.Kind == KindText {
		return v.Text
	}
	s := ""
	for _, c := range v.Children {
		s += c.TextContent()
	}
	return s
}
