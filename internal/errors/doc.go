// Package errors provides structured, actionable errors for the dragula
// server and CLI.
//
// Each error carries a registered code that maps to a short message, an
// explanation and often a hint:
//
//   - E1xx config: missing or invalid dragula.json / dragula.toml
//   - E2xx protocol: version mismatch, malformed frames
//   - E3xx session: unknown bag, unknown node, refused drag
//   - E4xx snapshot: store unavailable, write failures
//   - E5xx cli: replay script problems
//
// # Usage
//
//	err := errors.New("E103").
//	    WithSource("dragula.toml").
//	    WithSuggestion(`Rename the second "board" bag`)
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E103: Duplicate bag name
//	//
//	//   dragula.toml
//	//
//	//   Every bag must have a unique name within a service.
//	//
//	//   Hint: Rename the second "board" bag
//	//
//	//   Learn more: docs/errors.md#E103
package errors
