// Package feed is the process-wide client for the real-time post feed.
//
// It composes the Connection Manager and the Event Dispatcher behind one
// handle. Default returns the shared instance; New builds an independent one
// for tests or explicit injection.
//
//	c := feed.Default()
//	l := feed.NewListener(func(p json.RawMessage) error { ... })
//	c.Subscribe(feed.EventNewPost, l)
//	if err := c.Connect(ctx); err != nil { ... }
package feed
