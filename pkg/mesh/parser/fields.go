package parser

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Loose accessors over decoded YAML/JSON bodies. YAML decodes numbers as
// int, JSON as float64; both are accepted wherever a number is expected.

func mapField(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	v, ok := m[key].(map[string]any)
	if !ok {
		return nil
	}
	return v
}

func sliceField(m map[string]any, key string) []any {
	if m == nil {
		return nil
	}
	v, ok := m[key].([]any)
	if !ok {
		return nil
	}
	return v
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	v, _ := m[key].(string)
	return v
}

func intField(m map[string]any, key string) (int64, bool) {
	if m == nil {
		return 0, false
	}
	switch v := m[key].(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), true
	case uint64:
		return int64(v), true
	}
	return 0, false
}

func floatField(m map[string]any, key string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	switch v := m[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// durationField parses proto-style duration strings ("5s", "100ms",
// "0.5s") as emitted by both planes.
func durationField(m map[string]any, key string) (time.Duration, bool) {
	s := stringField(m, key)
	if s == "" {
		return 0, false
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, false
	}
	return d, true
}

// serviceHost splits a fully qualified host such as
// "reviews.default.svc.cluster.local" into service and namespace.
func serviceHost(host, defaultNamespace string) (service, namespace string) {
	parts := strings.Split(host, ".")
	service = parts[0]
	namespace = defaultNamespace
	if len(parts) > 1 && parts[1] != "" {
		namespace = parts[1]
	}
	return service, namespace
}

// clusterTarget decodes an Envoy cluster name of the form
// "outbound|port|subset|host" into its service coordinates.
func clusterTarget(name, defaultNamespace string) (service, namespace, subset string, ok bool) {
	parts := strings.Split(name, "|")
	if len(parts) < 4 || parts[0] != "outbound" {
		return "", "", "", false
	}
	subset = parts[2]
	service, namespace = serviceHost(parts[3], defaultNamespace)
	if service == "" {
		return "", "", "", false
	}
	return service, namespace, subset, true
}

// clusterPort extracts the port component of an Envoy cluster name.
func clusterPort(name string) (int64, bool) {
	parts := strings.Split(name, "|")
	if len(parts) < 4 {
		return 0, false
	}
	port, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return port, true
}

// stringSlice reads a list of strings, tolerating mixed decoding.
func stringSlice(m map[string]any, key string) []string {
	var out []string
	for _, v := range sliceField(m, key) {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// sortedKeys returns m's keys sorted, so attribute insertion never
// depends on map iteration order.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// routeConfigs locates the route config list in a route table dump,
// accepting both dump wrappers and bare lists.
func routeConfigs(body map[string]any) []any {
	if v := sliceField(body, "routeConfigs"); v != nil {
		return v
	}
	if v := sliceField(body, "configs"); v != nil {
		return v
	}
	return nil
}

// clusterList locates the cluster list in a clusters dump.
func clusterList(body map[string]any) []any {
	if v := sliceField(body, "dynamicActiveClusters"); v != nil {
		return v
	}
	if v := sliceField(body, "clusters"); v != nil {
		return v
	}
	return nil
}

// virtualHostTarget resolves the service a virtual host fronts, from its
// "svc.ns.svc.cluster.local:port" name or its first non-wildcard domain.
func virtualHostTarget(vh map[string]any, defaultNamespace string) (service, namespace string, ok bool) {
	name := stringField(vh, "name")
	if host, _, found := strings.Cut(name, ":"); found && host != "" && !strings.HasPrefix(host, "*") {
		service, namespace = serviceHost(host, defaultNamespace)
		return service, namespace, true
	}
	for _, domain := range stringSlice(vh, "domains") {
		if domain == "" || strings.HasPrefix(domain, "*") {
			continue
		}
		domain, _, _ = strings.Cut(domain, ":")
		service, namespace = serviceHost(domain, defaultNamespace)
		return service, namespace, true
	}
	return "", "", false
}

func errMissingSpec(doc *Document) error {
	return fmt.Errorf("%s %s/%s: missing spec", doc.Kind, doc.Namespace, doc.Name)
}

func errNoHosts(doc *Document) error {
	return fmt.Errorf("%s %s/%s: no hosts declared", doc.Kind, doc.Namespace, doc.Name)
}

func errEmptyDump(doc *Document, field string) error {
	return fmt.Errorf("%s %s: dump has no %s", doc.Kind, doc.Name, field)
}
