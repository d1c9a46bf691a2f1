// Package srs implements the spaced-repetition scheduling engine: the
// settings resolver, the pure rating state machine, leech handling, and
// the session selector with its queue statistics. Nothing in this package
// performs I/O; callers hand in immutable snapshots of card state and
// daily usage, which makes every function safe to call concurrently.
package srs
