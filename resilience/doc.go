// Package resilience provides the fault-tolerance primitives wrapped around
// every external call the pipeline makes: retry with exponential backoff,
// a circuit breaker that fails fast once a backend is clearly down, and a
// token-bucket rate limiter for backends with request quotas.
//
//	cb := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("openai"))
//	rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{Rate: 0.5, Burst: 1})
//
//	resp, err := resilience.Retry(ctx, resilience.DefaultRetryConfig(), func() (*Response, error) {
//	    if err := rl.Wait(ctx); err != nil {
//	        return nil, err
//	    }
//	    return resilience.ExecuteWithResult(cb, func() (*Response, error) { return call(ctx) })
//	})
package resilience
