package scheduler

import "net/http"

// Classification buckets a raw HTTP response for retry and caching decisions.
type Classification int

const (
	Success Classification = iota
	RateLimited
	Failure
)

func (c Classification) String() string {
	switch c {
	case Success:
		return "success"
	case RateLimited:
		return "rate-limited"
	default:
		return "failure"
	}
}

// Classify maps a status code to its classification: any 2xx is a success,
// 429 is rate-limited, everything else is a failure.
func Classify(statusCode int) Classification {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return Success
	case statusCode == http.StatusTooManyRequests:
		return RateLimited
	default:
		return Failure
	}
}
