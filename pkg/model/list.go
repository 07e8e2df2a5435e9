package model

import (
	"fmt"
	"reflect"
)

// List is an ordered, mutable sequence of arbitrary items.
//
// A List is owned by the application. The synchronizer mutates it in place
// and never replaces it, so callers may hold on to the pointer.
//
// Index arguments out of range panic. Between a drag and its terminal event
// the synchronizer is the only writer; an index that went stale because
// something else mutated the list is a caller bug, not a recoverable error.
type List struct {
	items []any
}

// NewList creates a list holding items in order.
func NewList(items ...any) *List {
	l := &List{items: make([]any, len(items))}
	copy(l.items, items)
	return l
}

// Len returns the number of items.
func (l *List) Len() int {
	return len(l.items)
}

// At returns the item at index i.
func (l *List) At(i int) any {
	l.check(i, len(l.items))
	return l.items[i]
}

// Items returns a copy of the items in order.
func (l *List) Items() []any {
	out := make([]any, len(l.items))
	copy(out, l.items)
	return out
}

// Insert places item at index i, shifting later items right.
// i may equal Len() to append.
func (l *List) Insert(i int, item any) {
	l.check(i, len(l.items)+1)
	l.items = append(l.items, nil)
	copy(l.items[i+1:], l.items[i:])
	l.items[i] = item
}

// Append adds item at the end.
func (l *List) Append(item any) {
	l.items = append(l.items, item)
}

// RemoveAt removes and returns the item at index i.
func (l *List) RemoveAt(i int) any {
	l.check(i, len(l.items))
	item := l.items[i]
	copy(l.items[i:], l.items[i+1:])
	l.items[len(l.items)-1] = nil
	l.items = l.items[:len(l.items)-1]
	return item
}

// Move relocates the item at from so that it ends up at index to.
// It is a remove followed by an insert on the same list.
func (l *List) Move(from, to int) {
	item := l.RemoveAt(from)
	l.Insert(to, item)
}

// IndexOf returns the index of the first item identical to item, or -1.
// Items that are not comparable never match.
func (l *List) IndexOf(item any) int {
	if item == nil || !reflect.TypeOf(item).Comparable() {
		return -1
	}
	for i, v := range l.items {
		if v == nil || reflect.TypeOf(v) != reflect.TypeOf(item) {
			continue
		}
		if v == item {
			return i
		}
	}
	return -1
}

func (l *List) check(i, n int) {
	if i < 0 || i >= n {
		panic(fmt.Sprintf("model: index %d out of range [0,%d)", i, n))
	}
}
