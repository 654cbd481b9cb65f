// Package statestore persists the small set of per-installation device
// state that must survive process restarts: the device identity and the
// activation code.
//
// State lives in a single SQLite file next to the application. The store
// is a plain key-value table; keys are fixed names exported as constants.
// Opening the store lazily creates the schema, so a fresh installation
// needs no migration step.
package statestore
