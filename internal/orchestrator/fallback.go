package orchestrator

// ShouldFallback decides whether a failure kind justifies switching to the
// fallback provider. Only rate-limit exhaustion qualifies: 5xx and transport
// failures may indicate a systemic problem a second provider would not
// reliably avoid, and blind fallback there would mask real outages. Schema
// failures stay on the provider that produced them.
func ShouldFallback(kind ErrorKind) bool {
	return kind == ErrorKindRateLimitExhausted
}
