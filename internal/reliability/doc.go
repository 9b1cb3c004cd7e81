// Package reliability handles messages that could not be processed.
//
// ExceptionRouter turns a failed delivery into a message addressed to an
// exception destination. The router works on a receive-side copy, so the
// original envelope and any other consumer's copy are untouched. The copy
// carries the failure in its exception section:
//
//	router := reliability.NewExceptionRouter("orders.exceptions",
//	    reliability.WithRouterLogger(logger),
//	)
//	rerouted, err := router.Reroute(env, handlerErr, "orders")
//
// Retry runs an operation under a RetryPolicy. Envelope-layer failures that
// contracts.IsFatal reports as fatal are never retried.
package reliability
