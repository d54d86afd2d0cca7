package parser

import (
	"tessera-hq/meshlens/pkg/mesh/model"
)

const httpFaultFilter = "envoy.filters.http.fault"

// FaultInjectionParser extracts injected delays and aborts from
// VirtualService fault blocks and the per-route fault filter config in
// proxy route tables.
type FaultInjectionParser struct{}

// NewFaultInjectionParser returns the fault injection parser.
func NewFaultInjectionParser() *FaultInjectionParser { return &FaultInjectionParser{} }

// Type implements Parser.
func (p *FaultInjectionParser) Type() model.FunctionType { return model.FunctionFaultInjection }

// ParseControl implements Parser.
func (p *FaultInjectionParser) ParseControl(doc *Document, ctx *Context) ([]*model.FunctionModel, error) {
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

	m := model.NewFunctionModel(model.FunctionFaultInjection, namespace, service, model.PlaneControl, doc.Ref())
	for _, raw := range sliceField(spec, "http") {
		route, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		fault := mapField(route, "fault")
		if fault == nil {
			continue
		}
		if delay := mapField(fault, "delay"); delay != nil {
			if pct, ok := declaredPercentage(delay); ok {
				m.Attrs.Set(model.PathFaultDelayPercent, model.FloatValue(pct))
			}
			if d, ok := durationField(delay, "fixedDelay"); ok {
				m.Attrs.Set(model.PathFaultDelayFixed, model.DurationValue(d))
			}
		}
		if abort := mapField(fault, "abort"); abort != nil {
			if pct, ok := declaredPercentage(abort); ok {
				m.Attrs.Set(model.PathFaultAbortPercent, model.FloatValue(pct))
			}
			if status, ok := intField(abort, "httpStatus"); ok {
				m.Attrs.Set(model.PathFaultAbortStatus, model.IntValue(status))
			}
		}
		break
	}
	if m.Attrs.Len() == 0 {
		return nil, nil
	}
	return []*model.FunctionModel{m}, nil
}

// ParseData implements Parser.
func (p *FaultInjectionParser) ParseData(doc *Document, ctx *Context) ([]*model.FunctionModel, error) {
	if doc.Kind != KindRouteTable {
		return nil, nil
	}
	configs := routeConfigs(doc.Body)
	if configs == nil {
		return nil, errEmptyDump(doc, "routeConfigs")
	}

	set := model.NewModelSet()
	forEachRoute(configs, ctx.Namespace(doc), func(service, namespace string, route map[string]any) {
		perFilter := mapField(route, "typedPerFilterConfig")
		fault := mapField(perFilter, httpFaultFilter)
		if fault == nil {
			return
		}
		m := model.NewFunctionModel(model.FunctionFaultInjection, namespace, service, model.PlaneData, doc.Ref())
		if delay := mapField(fault, "delay"); delay != nil {
			if pct, ok := enforcedPercentage(delay); ok {
				m.Attrs.Set(model.PathFaultDelayPercent, model.FloatValue(pct))
			}
			if d, ok := durationField(delay, "fixedDelay"); ok {
				m.Attrs.Set(model.PathFaultDelayFixed, model.DurationValue(d))
			}
		}
		if abort := mapField(fault, "abort"); abort != nil {
			if pct, ok := enforcedPercentage(abort); ok {
				m.Attrs.Set(model.PathFaultAbortPercent, model.FloatValue(pct))
			}
			if status, ok := intField(abort, "httpStatus"); ok {
				m.Attrs.Set(model.PathFaultAbortStatus, model.IntValue(status))
			}
		}
		if m.Attrs.Len() > 0 {
			set.Add(m)
		}
	})
	return set.Models(), nil
}

// declaredPercentage reads the control-plane form: {percentage: {value: 10}}.
func declaredPercentage(block map[string]any) (float64, bool) {
	pct := mapField(block, "percentage")
	if pct == nil {
		return 0, false
	}
	return floatField(pct, "value")
}

// enforcedPercentage reads the proxy form: {percentage: {numerator: 10,
// denominator: HUNDRED}}, normalized to percent.
func enforcedPercentage(block map[string]any) (float64, bool) {
	pct := mapField(block, "percentage")
	if pct == nil {
		return 0, false
	}
	numerator, ok := floatField(pct, "numerator")
	if !ok {
		return 0, false
	}
	switch stringField(pct, "denominator") {
	case "TEN_THOUSAND":
		return numerator / 100, true
	case "MILLION":
		return numerator / 10000, true
	default: // HUNDRED
		return numerator, true
	}
}
