// Package harness runs roster scenarios: scripted sequences of write
// intents pushed through a real View State Controller, with the snapshots
// and failures they produce recorded as a trace.
//
// # Scenario Format
//
//	name: update_record
//	description: "Updating a record redelivers the full snapshot"
//	setup:
//	  - name: Ada
//	    course: CS
//	flow:
//	  - invoke: update
//	    args: { id: 1, name: "Ada L.", course: CS }
//	    expect:
//	      case: ok
//	      snapshot:
//	        - { id: 1, name: "Ada L.", course: CS }
//	assertions:
//	  - type: final_state
//	    records:
//	      - { id: 1, name: "Ada L.", course: CS }
//
// Setup records are written straight to the store before the controller
// subscribes, so the first trace event is always the initial snapshot.
//
// Each flow step dispatches one intent (add, update, or delete) and waits
// for its outcome. expect.case is "ok" for a write that succeeds, or the
// error code the intent must fail with (VALIDATION, NOT_FOUND, STORAGE,
// DISPOSED). A failed step must not produce a snapshot.
//
// # Assertion Types
//
//   - final_state: the controller's last state equals records
//   - trace_count: the trace holds exactly count events of the given type
//   - trace_order: events of the listed types appear in that order
//
// # Deterministic Testing
//
// Every run uses a fresh in-memory store and fixed intent ids
// ("intent-1", "intent-2", ...), so traces are identical across runs and
// can be compared against golden files with RunWithGolden.
package harness
