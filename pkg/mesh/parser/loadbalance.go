package parser

import (
	"tessera-hq/meshlens/pkg/mesh/model"
)

// lbAliases maps plane-specific algorithm names onto one vocabulary. The
// proxy reports LEAST_REQUEST for a declared LEAST_CONN policy.
var lbAliases = map[string]string{
	"LEAST_REQUEST": "LEAST_CONN",
}

func normalizeLBAlgorithm(name string) string {
	if canonical, ok := lbAliases[name]; ok {
		return canonical
	}
	return name
}

// LoadBalanceParser extracts the load balancing algorithm from
// DestinationRule load balancer settings and Envoy cluster lbPolicy.
type LoadBalanceParser struct{}

// NewLoadBalanceParser returns the load balance parser.
func NewLoadBalanceParser() *LoadBalanceParser { return &LoadBalanceParser{} }

// Type implements Parser.
func (p *LoadBalanceParser) Type() model.FunctionType { return model.FunctionLoadBalance }

// ParseControl implements Parser.
func (p *LoadBalanceParser) ParseControl(doc *Document, ctx *Context) ([]*model.FunctionModel, error) {
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

	m := model.NewFunctionModel(model.FunctionLoadBalance, namespace, service, model.PlaneControl, doc.Ref())
	if alg := lbSimple(mapField(spec, "trafficPolicy")); alg != "" {
		m.Attrs.Set(model.PathLBAlgorithm, model.StringValue(alg))
	}
	for _, rawSubset := range sliceField(spec, "subsets") {
		subset, ok := rawSubset.(map[string]any)
		if !ok {
			continue
		}
		name := stringField(subset, "name")
		if name == "" {
			continue
		}
		if alg := lbSimple(mapField(subset, "trafficPolicy")); alg != "" {
			m.Attrs.Set(model.SubsetPath(name, model.PathLBAlgorithm), model.StringValue(alg))
		}
	}
	if m.Attrs.Len() == 0 {
		return nil, nil
	}
	return []*model.FunctionModel{m}, nil
}

func lbSimple(policy map[string]any) string {
	lb := mapField(policy, "loadBalancer")
	return normalizeLBAlgorithm(stringField(lb, "simple"))
}

// ParseData implements Parser.
func (p *LoadBalanceParser) ParseData(doc *Document, ctx *Context) ([]*model.FunctionModel, error) {
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
		alg := normalizeLBAlgorithm(stringField(cluster, "lbPolicy"))
		if alg == "" {
			continue
		}

		m := model.NewFunctionModel(model.FunctionLoadBalance, namespace, service, model.PlaneData, doc.Ref())
		path := model.PathLBAlgorithm
		if subset != "" {
			path = model.SubsetPath(subset, path)
		}
		m.Attrs.Set(path, model.StringValue(alg))
		set.Add(m)
	}
	return set.Models(), nil
}
