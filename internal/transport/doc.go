// Package transport implements the WebSocket event stream transport.
//
// A Socket:
//   - Dials a single ws:// or wss:// endpoint (websocket is the only transport)
//   - Retries failed dials and dropped connections with a fixed delay,
//     up to a bounded number of consecutive failures
//   - Reports lifecycle signals (connect, disconnect, connect error) and
//     named application events to a Handler
//   - Answers server pings and pings the server to detect dead connections
//
// Frames are JSON text messages of the form {"event": "<name>", "data": <any>}.
package transport
