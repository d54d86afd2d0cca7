package parser

import (
	"tessera-hq/meshlens/pkg/mesh/model"
)

// TimeoutParser extracts request timeouts from VirtualService routes and
// proxy route actions. Both planes normalize to a single duration unit
// before comparison, so "500ms" declared and "0.5s" enforced agree.
type TimeoutParser struct{}

// NewTimeoutParser returns the timeout parser.
func NewTimeoutParser() *TimeoutParser { return &TimeoutParser{} }

// Type implements Parser.
func (p *TimeoutParser) Type() model.FunctionType { return model.FunctionTimeout }

// ParseControl implements Parser.
func (p *TimeoutParser) ParseControl(doc *Document, ctx *Context) ([]*model.FunctionModel, error) {
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

	m := model.NewFunctionModel(model.FunctionTimeout, namespace, service, model.PlaneControl, doc.Ref())
	for _, raw := range sliceField(spec, "http") {
		route, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if d, ok := durationField(route, "timeout"); ok {
			m.Attrs.Set(model.PathRequestTimeout, model.DurationValue(d))
			break
		}
	}
	if m.Attrs.Len() == 0 {
		return nil, nil
	}
	return []*model.FunctionModel{m}, nil
}

// ParseData implements Parser.
func (p *TimeoutParser) ParseData(doc *Document, ctx *Context) ([]*model.FunctionModel, error) {
	if doc.Kind != KindRouteTable {
		return nil, nil
	}
	configs := routeConfigs(doc.Body)
	if configs == nil {
		return nil, errEmptyDump(doc, "routeConfigs")
	}

	set := model.NewModelSet()
	forEachRoute(configs, ctx.Namespace(doc), func(service, namespace string, route map[string]any) {
		action := mapField(route, "route")
		d, ok := durationField(action, "timeout")
		if !ok || d == 0 {
			// The proxy reports a zero timeout when routing disables it;
			// that is the absence of a policy, not a policy of zero.
			return
		}
		m := model.NewFunctionModel(model.FunctionTimeout, namespace, service, model.PlaneData, doc.Ref())
		m.Attrs.Set(model.PathRequestTimeout, model.DurationValue(d))
		set.Add(m)
	})
	return set.Models(), nil
}
