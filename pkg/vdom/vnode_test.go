package vdom

import "testing"

func TestVKindString(t *testing.T) {
	tests := []struct {
		kind VKind
		want string
	}{
		{KindElement, "Element"},
		{KindText, "Text"},
		{VKind(255), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.want {
				t.Errorf("VKind.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIndexOfSkipsTextNodes(t *testing.T) {
	a := El("li", "a")
	b := El("li", "b")
	c := El("li", "c")
	list := El("ul", a, Text(" "), b, Text(" "), c)

	tests := []struct {
		name  string
		child *VNode
		want  int
	}{
		{"first", a, 0},
		{"middle", b, 1},
		{"last", c, 2},
		{"foreign", El("li"), -1},
		{"nil", nil, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := list.IndexOf(tt.child); got != tt.want {
				t.Errorf("IndexOf() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestInsertBeforeMovesBetweenParents(t *testing.T) {
	a := El("li", "a")
	b := El("li", "b")
	x := El("li", "x")
	left := El("ul", a, b)
	right := El("ul", x)

	right.InsertBefore(a, x)

	if a.Parent != right {
		t.Fatalf("a.Parent = %v, want right", a.Parent)
	}
	if left.IndexOf(a) != -1 {
		t.Error("a should have been detached from left")
	}
	if got := right.IndexOf(a); got != 0 {
		t.Errorf("right.IndexOf(a) = %d, want 0", got)
	}
	if got := right.IndexOf(x); got != 1 {
		t.Errorf("right.IndexOf(x) = %d, want 1", got)
	}
	if got := left.IndexOf(b); got != 0 {
		t.Errorf("left.IndexOf(b) = %d, want 0", got)
	}
}

func TestInsertBeforeNilRefAppends(t *testing.T) {
	a := El("li")
	b := El("li")
	list := El("ul", a)

	list.InsertBefore(b, nil)

	if got := list.IndexOf(b); got != 1 {
		t.Errorf("IndexOf(b) = %d, want 1", got)
	}
}

func TestInsertBeforeSameParentReorders(t *testing.T) {
	a := El("li")
	b := El("li")
	c := El("li")
	list := El("ul", a, b, c)

	list.InsertBefore(c, a)

	got := list.ElementChildren()
	want := []*VNode{c, a, b}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("children[%d] mismatch after reorder", i)
		}
	}
}

func TestRemoveChild(t *testing.T) {
	a := El("li")
	list := El("ul", a)

	if !list.RemoveChild(a) {
		t.Fatal("RemoveChild() = false, want true")
	}
	if a.Parent != nil {
		t.Error("Parent should be cleared after removal")
	}
	if list.RemoveChild(a) {
		t.Error("second RemoveChild() should report false")
	}
}

func TestNextElementSibling(t *testing.T) {
	a := El("li")
	b := El("li")
	list := El("ul", a, Text("gap"), b)

	if got := a.NextElementSibling(); got != b {
		t.Errorf("a.NextElementSibling() = %v, want b", got)
	}
	if got := b.NextElementSibling(); got != nil {
		t.Errorf("b.NextElementSibling() = %v, want nil", got)
	}
	if got := list.NextElementSibling(); got != nil {
		t.Errorf("detached NextElementSibling() = %v, want nil", got)
	}
}

func TestCloneIsDeepAndDetached(t *testing.T) {
	item := El("li", Props{"class": "card"}, El("span", "title"))
	item.HID = "h7"
	El("ul", item)

	c := item.Clone()

	if c == item {
		t.Fatal("Clone returned the same pointer")
	}
	if c.Parent != nil {
		t.Error("clone should be detached")
	}
	if c.HID != "" {
		t.Errorf("clone HID = %q, want empty", c.HID)
	}
	if c.TextContent() != "title" {
		t.Errorf("clone text = %q, want title", c.TextContent())
	}
	if c.Children[0] == item.Children[0] {
		t.Error("clone children should not be shared")
	}
	if c.Children[0].Parent != c {
		t.Error("clone child parent link not fixed up")
	}
	c.Props["class"] = "changed"
	if item.Props["class"] != "card" {
		t.Error("clone props should not alias original")
	}
}

func TestReplaceChildren(t *testing.T) {
	a := El("li")
	b := El("li")
	other := El("ul", b)
	list := El("ul", a)

	list.ReplaceChildren([]*VNode{b, nil})

	if a.Parent != nil {
		t.Error("old child should be detached")
	}
	if b.Parent != list {
		t.Error("new child should point at list")
	}
	if len(other.Children) != 0 {
		t.Error("new child should have left its previous parent")
	}
}

func TestAssignHIDsAndIndex(t *testing.T) {
	a := El("li", "a")
	list := El("ul", a)
	a.HID = "keep"

	gen := NewHIDGenerator()
	AssignHIDs(list, gen)

	if a.HID != "keep" {
		t.Errorf("existing HID overwritten: %q", a.HID)
	}
	if list.HID != "h1" {
		t.Errorf("list HID = %q, want h1", list.HID)
	}

	idx := NewIndex(list)
	if idx.Lookup("keep") != a {
		t.Error("Lookup(keep) did not return a")
	}
	if idx.Len() != 2 {
		t.Errorf("Len() = %d, want 2", idx.Len())
	}

	idx.Remove(a)
	if idx.Lookup("keep") != nil {
		t.Error("removed node still resolvable")
	}
	if idx.Lookup("") != nil {
		t.Error("empty HID should never resolve")
	}
}
