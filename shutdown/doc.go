// Package shutdown coordinates graceful teardown of the runtime.
//
// Components register stop functions in phases. Lower phases stop first;
// handlers within a phase stop concurrently. The intended ordering for
// this runtime is transport before orchestration before messaging before
// storage, so in-flight work drains before the layers it depends on
// disappear. Named phase constants encode that order.
package shutdown
