// Package resilience groups the fault tolerance patterns used around the
// summarization capability and document fetching.
//
//   - circuitbreaker: stops hammering a backend that keeps failing
//   - retry: exponential backoff with jitter, disabled (one attempt) by default
//
// Usage Example:
//
//	cb := circuitbreaker.New(circuitbreaker.CapabilityConfig("huggingface"))
//	summary, err := circuitbreaker.Call(cb, func() (string, error) {
//	    return callBackend(ctx, segment)
//	})
//
//	err := retry.WithBackoff(ctx, retry.CapabilityConfig(3), func() error {
//	    return performOperation()
//	})
package resilience
