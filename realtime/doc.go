// Package realtime broadcasts bus events to connected WebSocket clients.
//
// A Manager owns the set of live connections. It lazily holds a single
// wildcard bus subscription while at least one client is connected, fans
// every event out to the clients whose type filters match, and prunes
// connections whose sends fail. Clients can adjust their filters over the
// wire with subscribe and unsubscribe messages.
package realtime
