// ABOUTME: Package workflow runs registry operations in response to bus events
// ABOUTME: Subscriptions come from the workflows section of the config file

// Package workflow binds event patterns to operations.
//
// Each configured workflow subscribes to the bus with its "on" pattern and,
// for every matching event, executes its "run" operation. Param values are
// either literals or references resolved against the event:
//
//	"$.key"     value of payload["key"] (dotted keys walk nested maps)
//	"$trace"    trace id of the event
//	"$event"    path of the event
//
// Workflow executions carry a WorkflowContext and run as trusted system
// calls, so they may target internal and hidden operations. Failures are
// logged and never stop the runner.
package workflow
