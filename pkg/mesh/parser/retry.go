package parser

import (
	"sort"
	"strings"

	"tessera-hq/meshlens/pkg/mesh/model"
)

// RetryParser extracts retry policies from VirtualService routes and
// proxy route table retry policies.
type RetryParser struct{}

// NewRetryParser returns the retry parser.
func NewRetryParser() *RetryParser { return &RetryParser{} }

// Type implements Parser.
func (p *RetryParser) Type() model.FunctionType { return model.FunctionRetry }

// ParseControl implements Parser.
func (p *RetryParser) ParseControl(doc *Document, ctx *Context) ([]*model.FunctionModel, error) {
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

	m := model.NewFunctionModel(model.FunctionRetry, namespace, service, model.PlaneControl, doc.Ref())
	for _, raw := range sliceField(spec, "http") {
		route, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		retries := mapField(route, "retries")
		if retries == nil {
			continue
		}
		if n, ok := intField(retries, "attempts"); ok {
			m.Attrs.Set(model.PathRetryAttempts, model.IntValue(n))
		}
		if d, ok := durationField(retries, "perTryTimeout"); ok {
			m.Attrs.Set(model.PathRetryPerTryTime, model.DurationValue(d))
		}
		if on := stringField(retries, "retryOn"); on != "" {
			m.Attrs.Set(model.PathRetryOn, model.StringValue(normalizeRetryOn(on)))
		}
		break
	}
	if m.Attrs.Len() == 0 {
		return nil, nil
	}
	return []*model.FunctionModel{m}, nil
}

// ParseData implements Parser.
func (p *RetryParser) ParseData(doc *Document, ctx *Context) ([]*model.FunctionModel, error) {
	if doc.Kind != KindRouteTable {
		return nil, nil
	}
	configs := routeConfigs(doc.Body)
	if configs == nil {
		return nil, errEmptyDump(doc, "routeConfigs")
	}

	set := model.NewModelSet()
	forEachRoute(configs, ctx.Namespace(doc), func(service, namespace string, route map[string]any) {
		policy := mapField(mapField(route, "route"), "retryPolicy")
		if policy == nil {
			return
		}
		m := model.NewFunctionModel(model.FunctionRetry, namespace, service, model.PlaneData, doc.Ref())
		if n, ok := intField(policy, "numRetries"); ok {
			m.Attrs.Set(model.PathRetryAttempts, model.IntValue(n))
		}
		if d, ok := durationField(policy, "perTryTimeout"); ok {
			m.Attrs.Set(model.PathRetryPerTryTime, model.DurationValue(d))
		}
		if on := stringField(policy, "retryOn"); on != "" {
			m.Attrs.Set(model.PathRetryOn, model.StringValue(normalizeRetryOn(on)))
		}
		if m.Attrs.Len() > 0 {
			set.Add(m)
		}
	})
	return set.Models(), nil
}

// normalizeRetryOn canonically orders comma-separated retry conditions
// and drops the proxy-injected connect-failure conditions so both planes
// compare on the declared set.
func normalizeRetryOn(on string) string {
	parts := strings.Split(on, ",")
	var kept []string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		switch part {
		case "", "connect-failure", "refused-stream", "unavailable", "cancelled":
			continue
		}
		kept = append(kept, part)
	}
	sort.Strings(kept)
	return strings.Join(kept, ",")
}

// forEachRoute walks every route of every virtual host, attributing it to
// the virtual host's service.
func forEachRoute(configs []any, defaultNS string, fn func(service, namespace string, route map[string]any)) {
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
			service, namespace, ok := virtualHostTarget(vh, defaultNS)
			if !ok {
				continue
			}
			for _, rawRoute := range sliceField(vh, "routes") {
				route, ok := rawRoute.(map[string]any)
				if !ok {
					continue
				}
				fn(service, namespace, route)
			}
		}
	}
}
