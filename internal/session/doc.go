// Package session schedules pipeline runs for an interactive editing
// session on a single source image.
//
// A Scheduler coalesces run requests: interactive edits call RequestLow,
// which stores the request in a single pending slot and (re)starts a
// quiescence timer, so a burst of edits produces at most one low-fidelity
// run. Committing an edit calls RequestHigh, which drops any pending
// low-fidelity request and starts exactly one high-fidelity run.
//
// Every request carries a monotonically increasing sequence number. When a
// run completes, its artifacts are published only if no newer run has
// already published; a slow, older run that finishes late is discarded.
// Consumers therefore always observe the most recent completed run.
//
// A Session layers editing state on top: the committed Settings and a
// separate draft curve set that pointer-drag edits modify. Edits to the
// draft schedule low-fidelity previews; Commit promotes the draft and
// schedules the high-fidelity run.
package session
