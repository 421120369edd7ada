// Package votingworkflow hosts staged voting elections inside the governance
// context.
//
// Each election is owned by the account that deployed it and moves through a
// fixed sequence of stages: voter registration, proposal registration, the
// voting session and the tally. The owner drives every transition and keeps
// the voter registry; registered voters submit proposals and cast one vote
// each. Every accepted call appends ABI-encoded entries to the election's
// event log and to an outbox drained by the relay worker. Rejected calls
// leave no trace.
package votingworkflow
