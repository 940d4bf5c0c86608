package middleware

// Len reports how many callers currently hold a limiter.
func (l *RateLimiter) Len() int { return l.limiters.Size() }
