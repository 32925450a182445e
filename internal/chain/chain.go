// Package chain defines the wire-level shapes the checkpoint pipeline
// consumes: checkpoints, transactions and the events they carry.
package chain

// Checkpoint is a batch of finalized transactions sharing one sequence
// number and wall-clock timestamp. SequenceNumber strictly increases across
// the stream; Transactions carries an implicit position used as a
// deterministic tie-break during dedup.
type Checkpoint struct {
	SequenceNumber uint64
	TimestampMs    uint64
	Transactions   []Transaction
}

// Transaction is one executed transaction and the events it emitted, in
// emission order.
type Transaction struct {
	Digest string
	Events []Event
}

// Event is an immutable on-chain event. Type is the fully-qualified
// "package::module::name" identifier; Sender is the 32-byte address
// rendered as a 0x-prefixed hex string; Contents is the opaque payload,
// present in its raw binary form when the source delivers raw events.
type Event struct {
	Type     string
	Sender   string
	Contents []byte
}

// Identity names the logical entity an event updates. Two events sharing
// an Identity within one checkpoint are redundant; only the latest
// (by transaction position, then event position) needs processing.
type Identity string
