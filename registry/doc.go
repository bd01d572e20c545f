// Package registry stores agent metadata and answers discovery queries.
//
// The registry is the exclusive owner of AgentMetadata: agents are created
// by Register, mutated only by Update (and the factory's status
// transitions, which go through Update), and never deleted by this core.
// Secondary indices over domain, capability, status and agent type serve
// Discover, which intersects the id sets of every populated filter
// dimension. An optional bleve index adds full-text search over names,
// descriptions and capability text.
//
// When constructed with a file path, every successful mutation rewrites
// the full persistence file via write-to-temp-then-rename, and Reload
// rebuilds all in-memory state from it.
package registry
