// Package config resolves the runtime configuration from the process
// environment, with an optional .env file for development setups.
//
// Every knob has a production default; only the backend endpoints are
// mandatory. Validation is fail-fast: a misconfigured display should
// refuse to boot rather than run half-wired.
package config
