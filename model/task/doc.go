// Package task defines the unit of work admitted, scheduled and executed by
// taskgate, together with its lifecycle transitions and priority scoring.
//
// Lifecycle:
//
//	new -> queued | pending_approval
//	pending_approval -> queued | rejected
//	queued -> running -> completed | failed
//	failed -> new (Requeue, operator triggered)
package task
