package vdom

import (
	"fmt"
	"sync"
)

// HIDGenerator generates unique hydration IDs for addressable elements.
type HIDGenerator struct {
	counter uint32
	mu      sync.Mutex
}

// NewHIDGenerator creates a new HIDGenerator.
func NewHIDGenerator() *HIDGenerator {
	return &HIDGenerator{}
}

// Next returns the next hydration ID (e.g., "h1", "h2", ...).
func (g *HIDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return fmt.Sprintf("h%d", g.counter)
}

// Current returns the current counter value without incrementing.
func (g *HIDGenerator) Current() uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.counter
}

// AssignHIDs walks the tree and assigns a HID to every element that does
// not have one yet. Existing HIDs are kept so the client can keep
// addressing nodes across renders.
func AssignHIDs(node *VNode, gen *HIDGenerator) {
	if node == nil {
		return
	}

	if node.Kind == KindElement && node.HID == "" {
		node.HID = gen.Next()
	}

	for _, child := range node.Children {
		AssignHIDs(child, gen)
	}
}

// Index maps HIDs to live nodes. Nodes the drag engine moves between
// containers stay addressable because the index is keyed by HID, not by
// tree position.
type Index struct {
	nodes map[string]*VNode
}

// NewIndex creates an index populated from the given trees.
func NewIndex(roots ...*VNode) *Index {
	idx := &Index{nodes: make(map[string]*VNode)}
	for _, r := range roots {
		idx.Add(r)
	}
	return idx
}

// Add registers node and all of its descendants that carry a HID.
func (x *Index) Add(node *VNode) {
	if node == nil {
		return
	}
	if node.HID != "" {
		x.nodes[node.HID] = node
	}
	for _, child := range node.Children {
		x.Add(child)
	}
}

// Remove forgets node and its descendants.
func (x *Index) Remove(node *VNode) {
	if node == nil {
		return
	}
	if node.HID != "" && x.nodes[node.HID] == node {
		delete(x.nodes, node.HID)
	}
	for _, child := range node.Children {
		x.Remove(child)
	}
}

// Lookup returns the node registered under hid, or nil.
func (x *Index) Lookup(hid string) *VNode {
	if hid == "" {
		return nil
	}
	return x.nodes[hid]
}

// Len returns the number of registered nodes.
func (x *Index) Len() int {
	return len(x.nodes)
}
