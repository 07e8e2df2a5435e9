package vdom

// VKind is the node type discriminator.
type VKind uint8

const (
	KindElement VKind = iota // <ul>, <li>, etc.
	KindText                 // Plain text node
)

// String returns the string representation of the VKind.
func (k VKind) String() string {
	switch k {
	case KindElement:
		return "Element"
	case KindText:
		return "Text"
	default:
		return "Unknown"
	}
}

// VNode is a node in the server-side container tree.
//
// Containers and draggable items are both VNodes. Identity matters: the drag
// engine and the model resolver compare nodes by pointer, never by value.
type VNode struct {
	Kind     VKind    // Node type
	Tag      string   // Element tag name (e.g., "li")
	Props    Props    // Attributes
	Children []*VNode // Child nodes, in DOM order
	Parent   *VNode   // Owning node, nil when detached
	Key      string   // Stable application key
	Text     string   // For KindText
	HID      string   // Hydration ID shared with the client
}

// Props holds attributes.
type Props map[string]any

// IsElement reports whether v is a non-nil element node.
func (v *VNode) IsElement() bool {
	return v != nil && v.Kind == KindElement
}

// IndexOf returns the position of child among v's element children,
// or -1 if child is not an element child of v.
// Text nodes are skipped, matching the DOM's ParentNode.children.
func (v *VNode) IndexOf(child *VNode) int {
	if v == nil || child == nil {
		return -1
	}
	i := 0
	for _, c := range v.Children {
		if c.Kind != KindElement {
			continue
		}
		if c == child {
			return i
		}
		i++
	}
	return -1
}

// ElementChildren returns the element children of v in order.
func (v *VNode) ElementChildren() []*VNode {
	if v == nil {
		return nil
	}
	out := make([]*VNode, 0, len(v.Children))
	for _, c := range v.Children {
		if c.Kind == KindElement {
			out = append(out, c)
		}
	}
	return out
}

// AppendChild detaches child from its current parent and appends it to v.
func (v *VNode) AppendChild(child *VNode) {
	v.InsertBefore(child, nil)
}

// InsertBefore detaches child from its current parent and inserts it into v
// immediately before ref. A nil ref (or a ref that is not a child of v)
// appends.
func (v *VNode) InsertBefore(child, ref *VNode) {
	if child == nil || child == ref {
		return
	}
	if child.Parent != nil {
		child.Parent.RemoveChild(child)
	}
	pos := len(v.Children)
	if ref != nil {
		for i, c := range v.Children {
			if c == ref {
				pos = i
				break
			}
		}
	}
	v.Children = append(v.Children, nil)
	copy(v.Children[pos+1:], v.Children[pos:])
	v.Children[pos] = child
	child.Parent = v
}

// RemoveChild removes child from v. It reports whether child was found.
func (v *VNode) RemoveChild(child *VNode) bool {
	if v == nil || child == nil {
		return false
	}
	for i, c := range v.Children {
		if c == child {
			v.Children = append(v.Children[:i], v.Children[i+1:]...)
			child.Parent = nil
			return true
		}
	}
	return false
}

// ReplaceChildren replaces all children of v, fixing up parent links.
// Nodes that are currently attached elsewhere are detached first.
func (v *VNode) ReplaceChildren(children []*VNode) {
	for _, c := range v.Children {
		c.Parent = nil
	}
	v.Children = v.Children[:0]
	for _, c := range children {
		if c == nil {
			continue
		}
		if c.Parent != nil {
			c.Parent.RemoveChild(c)
		}
		c.Parent = v
		v.Children = append(v.Children, c)
	}
}

// NextElementSibling returns the element that follows v under the same
// parent, or nil.
func (v *VNode) NextElementSibling() *VNode {
	if v == nil || v.Parent == nil {
		return nil
	}
	found := false
	for _, c := range v.Parent.Children {
		if found && c.Kind == KindElement {
			return c
		}
		if c == v {
			found = true
		}
	}
	return nil
}

// Clone returns a deep copy of v. The copy is detached, and neither it nor
// any of its descendants carry a HID.
func (v *VNode) Clone() *VNode {
	if v == nil {
		return nil
	}
	c := &VNode{
		Kind: v.Kind,
		Tag:  v.Tag,
		Key:  v.Key,
		Text: v.Text,
	}
	if v.Props != nil {
		c.Props = make(Props, len(v.Props))
		for k, val := range v.Props {
			c.Props[k] = val
		}
	}
	if len(v.Children) > 0 {
		c.Children = make([]*VNode, 0, len(v.Children))
		for _, child := range v.Children {
			cc := child.Clone()
			cc.Parent = c
			c.Children = append(c.Children, cc)
		}
	}
	return c
}
