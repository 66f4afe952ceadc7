// Package ballotengine implements the ballot engine inside the governance
// context.
//
// The module owns the voting registry (paid creation with sequential ids),
// the single administrative owner, per-voting ballot casting gated by a
// time-derived phase, and on-demand tallies in which every candidate tied
// at the maximum is a winner. All mutations go through ports.Ledger so each
// check and its effect commit together; reads are served from committed
// snapshots. Events for every accepted mutation are written to an outbox and
// relayed by a worker.
package ballotengine
