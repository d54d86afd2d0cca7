package model

import "strconv"

// Shared attribute vocabulary. Parsers on both planes normalize their
// source field names into these paths so the aligner and comparator stay
// plane-agnostic. Version-scoped refinements nest under
// "subsets.<name>." + path rather than overwriting the service-wide value.
const (
	// Circuit breaking.
	PathMaxConnections       = "connection-pool.max-connections"
	PathMaxPendingRequests   = "connection-pool.max-pending-requests"
	PathMaxRequests          = "connection-pool.max-requests"
	PathMaxRetries           = "connection-pool.max-retries"
	PathConsecutiveErrors    = "outlier.consecutive-error-threshold"
	PathEjectionInterval     = "outlier.ejection-interval"
	PathBaseEjectionDuration = "outlier.base-ejection-duration"
	PathMaxEjectionPercent   = "outlier.max-ejection-percent"

	// Load balancing.
	PathLBAlgorithm = "load-balancer.algorithm"

	// Rate limiting.
	PathRateLimitRequests     = "rate-limit.requests-per-unit"
	PathRateLimitFillInterval = "rate-limit.fill-interval"

	// Traffic shifting.
	PathTrafficSplit = "traffic.split"

	// Retries.
	PathRetryAttempts   = "retry.attempts"
	PathRetryPerTryTime = "retry.per-try-timeout"
	PathRetryOn         = "retry.retry-on"

	// Timeouts.
	PathRequestTimeout = "timeout.request"
	PathIdleTimeout    = "timeout.idle"

	// Fault injection.
	PathFaultDelayPercent = "fault.delay.percentage"
	PathFaultDelayFixed   = "fault.delay.fixed-duration"
	PathFaultAbortPercent = "fault.abort.percentage"
	PathFaultAbortStatus  = "fault.abort.http-status"

	// Routing.
	PathRouteHosts    = "route.hosts"
	PathRouteGateways = "route.gateways"
)

// SubsetPath nests a service-wide path under a version scope key.
func SubsetPath(subset, path string) string {
	return "subsets." + subset + "." + path
}

// RoutePath addresses a field of the i-th route rule, e.g.
// RoutePath(0, "match.uri-prefix") → "routes.0.match.uri-prefix".
func RoutePath(i int, field string) string {
	return "routes." + strconv.Itoa(i) + "." + field
}
