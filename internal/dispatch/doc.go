// Package dispatch implements the Event Dispatcher component.
//
// The Event Dispatcher:
//   - Keeps a registry of listeners per event name with set semantics
//   - Fans out server events to every listener registered for the name
//   - Isolates listener failures (errors and panics) from each other and
//     from the caller
package dispatch
