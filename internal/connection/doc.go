// Package connection implements the Connection Manager component.
//
// The Connection Manager:
//   - Maintains at most one transport to the event stream endpoint
//   - De-duplicates concurrent Connect calls into one in-flight attempt
//   - Counts connect errors and fails the attempt once the limit is reached
//   - Forwards named transport events to an EventSink
package connection
