package parser

import (
	"strings"

	"tessera-hq/meshlens/pkg/mesh/model"
)

// RoutingParser extracts match-based routing rules. On the control plane
// it reads VirtualService match/destination blocks; on the data plane it
// reads proxy route tables, normalizing both into the same route.N.*
// attribute paths.
type RoutingParser struct{}

// NewRoutingParser returns the routing parser.
func NewRoutingParser() *RoutingParser { return &RoutingParser{} }

// Type implements Parser.
func (p *RoutingParser) Type() model.FunctionType { return model.FunctionRouting }

// ParseControl implements Parser.
func (p *RoutingParser) ParseControl(doc *Document, ctx *Context) ([]*model.FunctionModel, error) {
	if doc.Kind != KindVirtualService {
		return nil, nil
	}
	spec := mapField(doc.Body, "spec")
	if spec == nil {
		return nil, errMissingSpec(doc)
	}
	hosts := stringSlice(spec, "hosts")
	if len(hosts) == 0 {
		return nil, errNoHosts(doc)
	}

	service, namespace := serviceHost(hosts[0], ctx.Namespace(doc))
	m := model.NewFunctionModel(model.FunctionRouting, namespace, service, model.PlaneControl, doc.Ref())
	short := make([]string, len(hosts))
	for i, h := range hosts {
		short[i], _ = serviceHost(h, namespace)
	}
	m.Attrs.Set(model.PathRouteHosts, model.StringValue(strings.Join(short, ",")))
	if gateways := stringSlice(spec, "gateways"); len(gateways) > 0 {
		m.Attrs.Set(model.PathRouteGateways, model.StringValue(strings.Join(gateways, ",")))
	}

	for i, raw := range sliceField(spec, "http") {
		route, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		p.controlMatch(m, i, route)
		p.controlDestination(m, i, route, ctx.Namespace(doc))
	}
	return []*model.FunctionModel{m}, nil
}

func (p *RoutingParser) controlMatch(m *model.FunctionModel, i int, route map[string]any) {
	matches := sliceField(route, "match")
	if len(matches) == 0 {
		return
	}
	match, ok := matches[0].(map[string]any)
	if !ok {
		return
	}
	if uri := mapField(match, "uri"); uri != nil {
		if prefix := stringField(uri, "prefix"); prefix != "" {
			m.Attrs.Set(model.RoutePath(i, "match.uri-prefix"), model.StringValue(prefix))
		}
		if exact := stringField(uri, "exact"); exact != "" {
			m.Attrs.Set(model.RoutePath(i, "match.uri-exact"), model.StringValue(exact))
		}
	}
	headers := mapField(match, "headers")
	for _, header := range sortedKeys(headers) {
		cond, ok := headers[header].(map[string]any)
		if !ok {
			continue
		}
		if exact := stringField(cond, "exact"); exact != "" {
			m.Attrs.Set(model.RoutePath(i, "match.header."+header), model.StringValue(exact))
		}
	}
}

func (p *RoutingParser) controlDestination(m *model.FunctionModel, i int, route map[string]any, defaultNS string) {
	dests := sliceField(route, "route")
	if len(dests) == 0 {
		return
	}
	// The routing capability records where traffic goes; how it splits
	// across weighted destinations belongs to the traffic-shift model.
	dest, ok := dests[0].(map[string]any)
	if !ok {
		return
	}
	destination := mapField(dest, "destination")
	if destination == nil {
		return
	}
	if host := stringField(destination, "host"); host != "" {
		svc, _ := serviceHost(host, defaultNS)
		m.Attrs.Set(model.RoutePath(i, "destination.host"), model.StringValue(svc))
	}
	if subset := stringField(destination, "subset"); subset != "" && len(dests) == 1 {
		m.Attrs.Set(model.RoutePath(i, "destination.subset"), model.StringValue(subset))
	}
	if port := mapField(destination, "port"); port != nil {
		if n, ok := intField(port, "number"); ok {
			m.Attrs.Set(model.RoutePath(i, "destination.port"), model.IntValue(n))
		}
	}
}

// ParseData implements Parser.
func (p *RoutingParser) ParseData(doc *Document, ctx *Context) ([]*model.FunctionModel, error) {
	if doc.Kind != KindRouteTable {
		return nil, nil
	}
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
			if m := p.dataVirtualHost(vh, ctx.Namespace(doc), doc.Ref()); m != nil {
				models = append(models, m)
			}
		}
	}
	return models, nil
}

func (p *RoutingParser) dataVirtualHost(vh map[string]any, defaultNS, ref string) *model.FunctionModel {
	service, namespace, ok := virtualHostTarget(vh, defaultNS)
	if !ok {
		return nil
	}
	m := model.NewFunctionModel(model.FunctionRouting, namespace, service, model.PlaneData, ref)
	m.Attrs.Set(model.PathRouteHosts, model.StringValue(service))

	for i, rawRoute := range sliceField(vh, "routes") {
		route, ok := rawRoute.(map[string]any)
		if !ok {
			continue
		}
		if match := mapField(route, "match"); match != nil {
			if prefix := stringField(match, "prefix"); prefix != "" && prefix != "/" {
				m.Attrs.Set(model.RoutePath(i, "match.uri-prefix"), model.StringValue(prefix))
			}
			if path := stringField(match, "path"); path != "" {
				m.Attrs.Set(model.RoutePath(i, "match.uri-exact"), model.StringValue(path))
			}
			for _, rawHeader := range sliceField(match, "headers") {
				header, ok := rawHeader.(map[string]any)
				if !ok {
					continue
				}
				name := stringField(header, "name")
				if name == "" || strings.HasPrefix(name, ":") {
					continue
				}
				if exact := stringField(header, "exactMatch"); exact != "" {
					m.Attrs.Set(model.RoutePath(i, "match.header."+name), model.StringValue(exact))
				} else if sm := mapField(header, "stringMatch"); sm != nil {
					if exact := stringField(sm, "exact"); exact != "" {
						m.Attrs.Set(model.RoutePath(i, "match.header."+name), model.StringValue(exact))
					}
				}
			}
		}
		action := mapField(route, "route")
		if action == nil {
			continue
		}
		if cluster := stringField(action, "cluster"); cluster != "" {
			if svc, _, subset, ok := clusterTarget(cluster, defaultNS); ok {
				m.Attrs.Set(model.RoutePath(i, "destination.host"), model.StringValue(svc))
				if subset != "" {
					m.Attrs.Set(model.RoutePath(i, "destination.subset"), model.StringValue(subset))
				}
				if port, ok := clusterPort(cluster); ok {
					m.Attrs.Set(model.RoutePath(i, "destination.port"), model.IntValue(port))
				}
			}
		}
	}
	if m.Attrs.Len() <= 1 {
		return nil
	}
	return m
}
