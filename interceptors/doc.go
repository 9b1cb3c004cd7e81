// Package interceptors wraps envelope handlers with cross-cutting concerns.
//
// Built-in interceptors:
//   - LoggingInterceptor: logs each handled message with timing
//   - MetricsInterceptor: records handler counts, timings and failures
//   - LoopDetectionInterceptor: stamps fingerprints and refuses revisits
//   - TimeoutInterceptor: bounds handler time
//   - ValidationInterceptor: rejects messages before the handler runs
//   - FilteringInterceptor: skips messages that do not match a filter
//
// Example usage:
//
//	chain := interceptors.NewInterceptorChain(logger).
//		Add(interceptors.NewLoggingInterceptor(logger)).
//		Add(interceptors.NewLoopDetectionInterceptor("me-1")).
//		Add(interceptors.NewTimeoutInterceptor(30 * time.Second))
//
//	err := receiver.Consume(ctx, ch, queue, chain.Handler(final))
//
// Interceptors run in the order they were added, with the final handler
// called last.
package interceptors
