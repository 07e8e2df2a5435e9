// Package board draws model-backed columns as container nodes.
//
// The drag service treats a bound list as the single source of order and
// reverts the engine's own moves; Board is the rendering layer that turns
// the lists back into container children after every mutation.
package board
