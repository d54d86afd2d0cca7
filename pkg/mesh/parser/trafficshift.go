package parser

import (
	"fmt"

	"tessera-hq/meshlens/pkg/mesh/model"
)

// TrafficShiftParser extracts weighted traffic splits. The control plane
// declares proportions through VirtualService destination weights; the
// data plane realizes them as weighted clusters in the proxy route table
// and, when traffic has been driven through the mesh, as observed
// per-version request counts.
type TrafficShiftParser struct{}

// NewTrafficShiftParser returns the traffic shift parser.
func NewTrafficShiftParser() *TrafficShiftParser { return &TrafficShiftParser{} }

// Type implements Parser.
func (p *TrafficShiftParser) Type() model.FunctionType { return model.FunctionTrafficShift }

// ParseControl implements Parser.
func (p *TrafficShiftParser) ParseControl(doc *Document, ctx *Context) ([]*model.FunctionModel, error) {
	if doc.Kind != KindVirtualService {
		return nil, nil
	}
	spec := mapField(doc.Body, "spec")
	if spec == nil {
		return nil, errMissingSpec(doc)
	}

	var models []*model.FunctionModel
	for _, raw := range sliceField(spec, "http") {
		route, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		dests := sliceField(route, "route")
		if len(dests) < 2 {
			continue
		}

		shares := make(map[string]float64)
		var service, namespace string
		var total float64
		for _, rawDest := range dests {
			dest, ok := rawDest.(map[string]any)
			if !ok {
				continue
			}
			destination := mapField(dest, "destination")
			if destination == nil {
				continue
			}
			weight, _ := floatField(dest, "weight")
			label := stringField(destination, "subset")
			if label == "" {
				label, _ = serviceHost(stringField(destination, "host"), ctx.Namespace(doc))
			}
			if service == "" {
				service, namespace = serviceHost(stringField(destination, "host"), ctx.Namespace(doc))
			}
			shares[label] += weight
			total += weight
		}
		if service == "" || total == 0 {
			return nil, fmt.Errorf("%s %s/%s: weighted route with no usable destinations", doc.Kind, doc.Namespace, doc.Name)
		}
		for label := range shares {
			shares[label] /= total
		}

		m := model.NewFunctionModel(model.FunctionTrafficShift, namespace, service, model.PlaneControl, doc.Ref())
		m.Attrs.Set(model.PathTrafficSplit, model.DistValue(model.NewProportions(shares)))
		models = append(models, m)
	}
	return models, nil
}

// ParseData implements Parser.
func (p *TrafficShiftParser) ParseData(doc *Document, ctx *Context) ([]*model.FunctionModel, error) {
	switch doc.Kind {
	case KindTrafficSample:
		return p.parseSample(doc, ctx)
	case KindRouteTable:
		return p.parseRouteWeights(doc, ctx)
	}
	return nil, nil
}

// parseSample reads observed per-version request counts collected while
// probing the mesh.
func (p *TrafficShiftParser) parseSample(doc *Document, ctx *Context) ([]*model.FunctionModel, error) {
	service := doc.Service
	if service == "" {
		service = stringField(doc.Body, "service")
	}
	if service == "" {
		return nil, fmt.Errorf("traffic sample %s: no service attribution", doc.Name)
	}
	rawCounts := mapField(doc.Body, "counts")
	if len(rawCounts) == 0 {
		return nil, fmt.Errorf("traffic sample %s: no counts", doc.Name)
	}

	counts := make(map[string]int64, len(rawCounts))
	for _, label := range sortedKeys(rawCounts) {
		n, ok := intField(rawCounts, label)
		if !ok {
			return nil, fmt.Errorf("traffic sample %s: bucket %q is not a count", doc.Name, label)
		}
		counts[label] = n
	}

	namespace := doc.Namespace
	if namespace == "" {
		namespace = stringField(doc.Body, "namespace")
	}
	if namespace == "" {
		namespace = ctx.Namespace(doc)
	}

	m := model.NewFunctionModel(model.FunctionTrafficShift, namespace, service, model.PlaneData, doc.Ref())
	m.Attrs.Set(model.PathTrafficSplit, model.DistValue(model.NewCounts(counts)))
	return []*model.FunctionModel{m}, nil
}

// parseRouteWeights reads realized split proportions from weighted
// clusters in the proxy route table. Observed counts, when present from a
// traffic sample, overwrite these under the model-set merge rule.
func (p *TrafficShiftParser) parseRouteWeights(doc *Document, ctx *Context) ([]*model.FunctionModel, error) {
	configs := routeConfigs(doc.Body)
	if configs == nil {
		return nil, errEmptyDump(doc, "routeConfigs")
	}

	var models []*model.FunctionModel
	for _, rawCfg := range configs {
		cfg, ok := rawCfg.(map[string]any)
		if !ok {
			continue
		}
		for _, rawVH := range sliceField(cfg, "virtualHosts") {
			vh, ok := rawVH.(map[string]any)
			if !ok {
				continue
			}
			for _, rawRoute := range sliceField(vh, "routes") {
				route, ok := rawRoute.(map[string]any)
				if !ok {
					continue
				}
				if m := p.weightedRoute(route, ctx.Namespace(doc), doc.Ref()); m != nil {
					models = append(models, m)
				}
			}
		}
	}
	return models, nil
}

func (p *TrafficShiftParser) weightedRoute(route map[string]any, defaultNS, ref string) *model.FunctionModel {
	action := mapField(route, "route")
	weighted := mapField(action, "weightedClusters")
	if weighted == nil {
		return nil
	}

	shares := make(map[string]float64)
	var service, namespace string
	var total float64
	for _, rawCluster := range sliceField(weighted, "clusters") {
		cluster, ok := rawCluster.(map[string]any)
		if !ok {
			continue
		}
		svc, ns, subset, ok := clusterTarget(stringField(cluster, "name"), defaultNS)
		if !ok {
			continue
		}
		if service == "" {
			service, namespace = svc, ns
		}
		weight, _ := floatField(cluster, "weight")
		label := subset
		if label == "" {
			label = svc
		}
		shares[label] += weight
		total += weight
	}
	if service == "" || total == 0 {
		return nil
	}
	for label := range shares {
		shares[label] /= total
	}

	m := model.NewFunctionModel(model.FunctionTrafficShift, namespace, service, model.PlaneData, ref)
	m.Attrs.Set(model.PathTrafficSplit, model.DistValue(model.NewProportions(shares)))
	return m
}
