// Package dispatch runs event listeners on behalf of the bus.
//
// Listeners execute synchronously in the caller's goroutine. The Executor
// converts a panicking listener into a Result carrying the panic value and
// stack, and times every call. It never retries, isolates or cancels a
// listener: deciding what a failed Result means is left to the caller.
//
// # Usage
//
//	exec := dispatch.NewExecutor(
//	    dispatch.WithPanicHandler(func(v any, stack []byte) {
//	        logger.Error("listener panicked", zap.Any("value", v))
//	    }),
//	)
//	res := exec.Execute(func() error { return sub.OnEvent(ctx, t, ev) })
//	if !res.IsSuccess() {
//	    return res.Err()
//	}
package dispatch
