// Package flight collapses concurrent computations for the same key into one.
//
// A Registry maps a key to the computation currently running for it. The
// first RunOnce for a key starts the computation in its own goroutine;
// every RunOnce for that key while it is running joins it and observes the
// same value or the same failure.
//
// # Lifecycle
//
// When a computation settles, the registry
//
//  1. records the outcome, so every joined handle can read it,
//  2. dispatches the hooks the creator attached, each in its own goroutine,
//  3. removes the registration, so the next RunOnce starts fresh work.
//
// The computation never sees the caller's cancellation. A caller that stops
// waiting gets ctx.Err() from Wait while the computation runs on for the
// callers still joined. Panics are recovered into *PanicError and the
// registration is cleared on every path.
//
// # Usage
//
//	reg := flight.NewRegistry()
//
//	h, joined, err := flight.RunOnce(ctx, reg, "user:42", loadUser)
//	if err != nil {
//	    return err
//	}
//	user, err := h.Wait(ctx)
//
// Failures are wrapped once in *ComputationError and shared by all joined
// callers; errors.Is still matches the error returned by the computation.
// Nothing is retried.
package flight
