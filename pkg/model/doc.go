// Package model holds the application-side half of drag synchronization:
// ordered lists and the bindings that tie each list to a container node.
package model
