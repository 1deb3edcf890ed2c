// Package history records scenario evaluations for later audit.
//
// Each evaluation produces one Record per evaluated rule, tagged with a
// generated record ID, the snapshot version the evaluation ran against and
// the reference date of the scenario. Recording is best-effort: failures
// are logged and never surface to the evaluation caller.
package history
