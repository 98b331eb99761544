// Package viewmodel implements the View State Controller: the bridge
// between the repository's push-based feed and a pull-based observable
// state, and the funnel for user write intents.
//
// # Lifecycle
//
//	Uninitialized --New--> Subscribed --Dispose / ctx done--> Disposed
//
// New subscribes to the repository's feed before returning. Each delivered
// snapshot replaces the held state wholesale. Dispose (or cancelling the
// context passed to New) cancels the subscription; no state update happens
// after that, and new intents are rejected with student.ErrDisposed.
//
// # Write Intents
//
// AddRecord, UpdateRecord, and DeleteRecord never wait for storage. They
// normalize and validate their input, stamp it with an intent id, and queue
// it for a single worker goroutine. The outcome is only visible through the
// next snapshot. Failures are logged at warn level unless a handler was
// installed with WithFailureHandler.
//
// Intents already queued when the controller is disposed still run; the
// worker uses a context detached from the owner's cancellation and closes
// Drained once the queue is empty.
package viewmodel
