// Package vdom provides the server-side node tree that drag containers and
// draggable items live in.
//
// The tree mirrors the client DOM closely enough for drag bookkeeping: each
// element knows its parent, element children are ordered, and every
// addressable element carries a hydration ID (HID) shared with the client.
//
// # Core Types
//
// VNode represents an element or a text node. Nodes are compared by pointer:
// a container and a model are bound by node identity, and the drag engine
// tells a moved item from a copied one by identity as well.
//
// # Mutation
//
// AppendChild, InsertBefore, RemoveChild and ReplaceChildren keep Parent
// links consistent. IndexOf reports an element's position among element
// children only, which is the position the model synchronizer uses.
//
// # Hydration
//
// AssignHIDs gives every element a HID, and Index resolves HIDs received
// from the client back to live nodes.
package vdom
