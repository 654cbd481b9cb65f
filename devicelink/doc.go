// Package devicelink maintains the logical session between a display and
// the backend, tolerating network loss.
//
// A display boots unidentified. The client first ensures a persisted
// device identity, then an activation code (supplied out-of-band or
// obtained through a one-time registration exchange), then keeps a
// websocket channel open against the backend, reconnecting forever with
// capped exponential backoff. Activation - the binding of the display to
// a branch - arrives either as a pushed device_assigned event or through
// the status-poll fallback; both funnel through the same idempotent
// Activate, which starts the heartbeat and result-polling loops exactly
// once.
//
// Session state only travels forward:
//
//	Unidentified -> Unregistered -> Registered(inactive) -> Active
//
// There is deliberately no deactivation transition. A branch_changed
// event re-points an active session; nothing un-activates it.
//
// Failure containment: registration is the only operation that surfaces
// an error to the boot sequence (no session can exist without a code).
// Everything else - fetch failures, heartbeat failures, malformed channel
// payloads, channel drops - is logged and absorbed; the owning loop tries
// again on its next tick.
package devicelink
