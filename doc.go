// Package taskgate provides a policy-gated task orchestration core.
//
// Submitted tasks are scored, classified by the policy engine and either
// queued at once or held for a human decision. The orchestrator dispatches
// queued tasks by priority to executors registered per module, records every
// step in a hash-chained audit trail and moves failures to a dead-letter list.
// An anomaly monitor watches the trail and can pause dispatching.
//
// Most applications build everything from a Config:
//
//	cfg, _ := taskgate.LoadConfig(ctx, "taskgate.yaml")
//	srv, _ := taskgate.New(ctx, cfg, taskgate.WithExecutor("billing", billing))
//	go srv.Start(ctx)
//	defer srv.Shutdown(ctx)
//	result, _ := srv.Orchestrator().SubmitTask(ctx, &task.Task{Module: "billing", Action: "refund"})
//
// The HTTP API is served by srv.Handler() and the cmd/taskgate binary.
package taskgate
