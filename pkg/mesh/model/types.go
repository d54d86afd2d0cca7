package model

import "fmt"

// FunctionType identifies one governance capability.
type FunctionType string

const (
	// FunctionRouting covers match-based request routing rules.
	FunctionRouting FunctionType = "routing"

	// FunctionTrafficShift covers weighted traffic splitting across versions.
	FunctionTrafficShift FunctionType = "traffic_shift"

	// FunctionCircuitBreak covers connection pools and outlier detection.
	FunctionCircuitBreak FunctionType = "circuit_break"

	// FunctionRateLimit covers request rate limiting.
	FunctionRateLimit FunctionType = "rate_limit"

	// FunctionLoadBalance covers load balancing algorithm selection.
	FunctionLoadBalance FunctionType = "load_balance"

	// FunctionRetry covers retry policies.
	FunctionRetry FunctionType = "retry"

	// FunctionTimeout covers request and idle timeouts.
	FunctionTimeout FunctionType = "timeout"

	// FunctionFaultInjection covers injected delays and aborts.
	FunctionFaultInjection FunctionType = "fault_injection"
)

// AllFunctionTypes lists every known function type in stable order.
func AllFunctionTypes() []FunctionType {
	return []FunctionType{
		FunctionRouting,
		FunctionTrafficShift,
		FunctionCircuitBreak,
		FunctionRateLimit,
		FunctionLoadBalance,
		FunctionRetry,
		FunctionTimeout,
		FunctionFaultInjection,
	}
}

// Valid reports whether t is a known function type.
func (t FunctionType) Valid() bool {
	switch t {
	case FunctionRouting, FunctionTrafficShift, FunctionCircuitBreak,
		FunctionRateLimit, FunctionLoadBalance, FunctionRetry,
		FunctionTimeout, FunctionFaultInjection:
		return true
	}
	return false
}

// Plane identifies which side of the mesh a model was derived from.
type Plane string

const (
	// PlaneControl is the declarative policy layer authored by operators.
	PlaneControl Plane = "control"

	// PlaneData is the proxy-level state that actually enforces traffic
	// behavior, including observed traffic.
	PlaneData Plane = "data"
)

// Key uniquely identifies one function for one service across both planes.
type Key struct {
	Namespace string
	Service   string
	Type      FunctionType
}

// String renders the key as "namespace.service.type". Keys sort
// lexicographically on this form, which gives alignment its deterministic
// emission order.
func (k Key) String() string {
	return fmt.Sprintf("%s.%s.%s", k.Namespace, k.Service, k.Type)
}

// ServiceKey renders just the "namespace.service" portion, the map key
// used at the service level of the consistency tree.
func (k Key) ServiceKey() string {
	return k.Namespace + "." + k.Service
}
