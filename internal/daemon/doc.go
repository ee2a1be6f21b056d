// Package daemon runs the long-lived duewatch process: lock-file mutual
// exclusion, the daily scheduler, and the embedded HTTP API used by the CLI
// and by downstream duewatch instances.
package daemon
