package parser

import (
	"tessera-hq/meshlens/pkg/mesh/model"
)

// CircuitBreakParser extracts connection pool limits and outlier
// detection. Control plane: DestinationRule traffic policies, with
// subset-level policies nested under their version scope. Data plane:
// Envoy cluster circuit breaker thresholds and outlier detection, with
// subset clusters nested the same way.
type CircuitBreakParser struct{}

// NewCircuitBreakParser returns the circuit break parser.
func NewCircuitBreakParser() *CircuitBreakParser { return &CircuitBreakParser{} }

// Type implements Parser.
func (p *CircuitBreakParser) Type() model.FunctionType { return model.FunctionCircuitBreak }

// ParseControl implements Parser.
func (p *CircuitBreakParser) ParseControl(doc *Document, ctx *Context) ([]*model.FunctionModel, error) {
	if doc.Kind != KindDestinationRule {
		return nil, nil
	}
	spec := mapField(doc.Body, "spec")
	if spec == nil {
		return nil, errMissingSpec(doc)
	}
	host := stringField(spec, "host")
	if host == "" {
		return nil, errNoHosts(doc)
	}
	service, namespace := serviceHost(host, ctx.Namespace(doc))

	m := model.NewFunctionModel(model.FunctionCircuitBreak, namespace, service, model.PlaneControl, doc.Ref())
	p.controlPolicy(m, mapField(spec, "trafficPolicy"), "")
	for _, rawSubset := range sliceField(spec, "subsets") {
		subset, ok := rawSubset.(map[string]any)
		if !ok {
			continue
		}
		name := stringField(subset, "name")
		if name == "" {
			continue
		}
		p.controlPolicy(m, mapField(subset, "trafficPolicy"), name)
	}
	if m.Attrs.Len() == 0 {
		return nil, nil
	}
	return []*model.FunctionModel{m}, nil
}

// controlPolicy normalizes one trafficPolicy block. A non-empty scope
// nests every path under "subsets.<scope>." so version-specific overrides
// never shadow the service-wide value.
func (p *CircuitBreakParser) controlPolicy(m *model.FunctionModel, policy map[string]any, scope string) {
	if policy == nil {
		return
	}
	set := func(path string, v model.Value) {
		if scope != "" {
			path = model.SubsetPath(scope, path)
		}
		m.Attrs.Set(path, v)
	}

	if pool := mapField(policy, "connectionPool"); pool != nil {
		tcp := mapField(pool, "tcp")
		if n, ok := intField(tcp, "maxConnections"); ok {
			set(model.PathMaxConnections, model.IntValue(n))
		}
		http := mapField(pool, "http")
		if n, ok := intField(http, "http1MaxPendingRequests"); ok {
			set(model.PathMaxPendingRequests, model.IntValue(n))
		}
		if n, ok := intField(http, "http2MaxRequests"); ok {
			set(model.PathMaxRequests, model.IntValue(n))
		}
		if n, ok := intField(http, "maxRetries"); ok {
			set(model.PathMaxRetries, model.IntValue(n))
		}
	}

	if outlier := mapField(policy, "outlierDetection"); outlier != nil {
		if n, ok := intField(outlier, "consecutive5xxErrors"); ok {
			set(model.PathConsecutiveErrors, model.IntValue(n))
		}
		if d, ok := durationField(outlier, "interval"); ok {
			set(model.PathEjectionInterval, model.DurationValue(d))
		}
		if d, ok := durationField(outlier, "baseEjectionTime"); ok {
			set(model.PathBaseEjectionDuration, model.DurationValue(d))
		}
		if n, ok := intField(outlier, "maxEjectionPercent"); ok {
			set(model.PathMaxEjectionPercent, model.IntValue(n))
		}
	}
}

// ParseData implements Parser.
func (p *CircuitBreakParser) ParseData(doc *Document, ctx *Context) ([]*model.FunctionModel, error) {
	if doc.Kind != KindClusters {
		return nil, nil
	}
	clusters := clusterList(doc.Body)
	if clusters == nil {
		return nil, errEmptyDump(doc, "clusters")
	}

	set := model.NewModelSet()
	for _, raw := range clusters {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		cluster := item
		if inner := mapField(item, "cluster"); inner != nil {
			cluster = inner
		}
		service, namespace, subset, ok := clusterTarget(stringField(cluster, "name"), ctx.Namespace(doc))
		if !ok {
			continue
		}

		m := model.NewFunctionModel(model.FunctionCircuitBreak, namespace, service, model.PlaneData, doc.Ref())
		p.dataCluster(m, cluster, subset)
		if m.Attrs.Len() > 0 {
			set.Add(m)
		}
	}
	return set.Models(), nil
}

func (p *CircuitBreakParser) dataCluster(m *model.FunctionModel, cluster map[string]any, scope string) {
	set := func(path string, v model.Value) {
		if scope != "" {
			path = model.SubsetPath(scope, path)
		}
		m.Attrs.Set(path, v)
	}

	breakers := mapField(cluster, "circuitBreakers")
	if thresholds := sliceField(breakers, "thresholds"); len(thresholds) > 0 {
		if threshold, ok := thresholds[0].(map[string]any); ok {
			if n, ok := intField(threshold, "maxConnections"); ok {
				set(model.PathMaxConnections, model.IntValue(n))
			}
			if n, ok := intField(threshold, "maxPendingRequests"); ok {
				set(model.PathMaxPendingRequests, model.IntValue(n))
			}
			if n, ok := intField(threshold, "maxRequests"); ok {
				set(model.PathMaxRequests, model.IntValue(n))
			}
			if n, ok := intField(threshold, "maxRetries"); ok {
				set(model.PathMaxRetries, model.IntValue(n))
			}
		}
	}

	if outlier := mapField(cluster, "outlierDetection"); outlier != nil {
		if n, ok := intField(outlier, "consecutive5xx"); ok {
			set(model.PathConsecutiveErrors, model.IntValue(n))
		}
		if d, ok := durationField(outlier, "interval"); ok {
			set(model.PathEjectionInterval, model.DurationValue(d))
		}
		if d, ok := durationField(outlier, "baseEjectionTime"); ok {
			set(model.PathBaseEjectionDuration, model.DurationValue(d))
		}
		if n, ok := intField(outlier, "maxEjectionPercent"); ok {
			set(model.PathMaxEjectionPercent, model.IntValue(n))
		}
	}
}
