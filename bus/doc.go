// Package bus provides the in-process publish/subscribe hub that decouples
// event producers (the workflow engine, the agent factory, external
// callers) from consumers (the real-time connection manager, monitors).
//
// Delivery is synchronous and ordered within one Publish call: subscribers
// registered for the exact event type are invoked first, then wildcard
// ("*") subscribers, each bucket in registration order. A handler panic is
// recovered and logged; it never stops delivery to remaining handlers or
// fails the publish. Across concurrent Publish calls there is no global
// ordering guarantee; consumers should rely on per-correlation-id causal
// ordering only.
//
// Published events are retained in a bounded ring history (last N), queryable
// by type and source.
package bus
