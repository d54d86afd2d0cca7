// Meshlens audits service-mesh configuration for cross-plane consistency.
//
// It loads policy documents from the control plane (VirtualServices,
// DestinationRules, EnvoyFilters, Gateways) and the data plane (proxy
// config dumps and traffic samples), normalizes both sides into a common
// semantic model, and reports every place where the planes disagree:
//   - Routing rules and traffic splits
//   - Circuit breaking and connection pool limits
//   - Retry, timeout, and outlier detection settings
//   - mTLS and rate limiting configuration
//
// Traffic splits are checked statistically, so sampling noise in observed
// request counts does not produce false alarms.
//
// Usage:
//
//	# Run a one-shot audit and print the verdict report
//	meshlens check --config /path/to/config.yaml
//
//	# Watch source directories and re-audit on change
//	meshlens watch
//
//	# List past audit runs
//	meshlens history list
//
//	# Show a stored run in full
//	meshlens history show <run-id>
//
//	# Validate a configuration file
//	meshlens validate --config /path/to/config.yaml
//
// For complete documentation, see: https://github.com/tessera-hq/meshlens
package main

func main() {
	Execute()
}
