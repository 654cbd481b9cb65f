// Package backend wraps the consumed backend surface: the device HTTP
// endpoints (register, status, heartbeat, results) and the per-device
// real-time websocket channel.
//
// The package is intentionally dumb transport: it reports transport and
// status failures as errors and hands raw JSON payloads upward. Retry
// policy, reconnect backoff and activation semantics all live with the
// caller (the session client).
package backend
