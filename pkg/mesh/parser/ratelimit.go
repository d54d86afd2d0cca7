package parser

import (
	"fmt"
	"strings"

	"tessera-hq/meshlens/pkg/mesh/model"
)

const localRateLimitFilter = "envoy.filters.http.local_ratelimit"

// RateLimitParser extracts local rate limit token buckets. Control plane:
// EnvoyFilter patches installing the local rate limit HTTP filter. Data
// plane: the same filter as materialized in listener filter chains.
type RateLimitParser struct{}

// NewRateLimitParser returns the rate limit parser.
func NewRateLimitParser() *RateLimitParser { return &RateLimitParser{} }

// Type implements Parser.
func (p *RateLimitParser) Type() model.FunctionType { return model.FunctionRateLimit }

// ParseControl implements Parser.
func (p *RateLimitParser) ParseControl(doc *Document, ctx *Context) ([]*model.FunctionModel, error) {
	if doc.Kind != KindEnvoyFilter {
		return nil, nil
	}
	spec := mapField(doc.Body, "spec")
	if spec == nil {
		return nil, errMissingSpec(doc)
	}

	service := workloadService(spec)
	if service == "" {
		service = doc.Name
	}
	namespace := ctx.Namespace(doc)

	m := model.NewFunctionModel(model.FunctionRateLimit, namespace, service, model.PlaneControl, doc.Ref())
	for _, rawPatch := range sliceField(spec, "configPatches") {
		patch, ok := rawPatch.(map[string]any)
		if !ok {
			continue
		}
		value := mapField(mapField(patch, "patch"), "value")
		if value == nil {
			continue
		}
		if !strings.Contains(stringField(value, "name"), "local_ratelimit") {
			continue
		}
		bucket := tokenBucket(typedConfig(value))
		if bucket == nil {
			return nil, fmt.Errorf("%s %s/%s: rate limit patch without token bucket", doc.Kind, doc.Namespace, doc.Name)
		}
		p.setBucket(m, bucket)
	}
	if m.Attrs.Len() == 0 {
		return nil, nil
	}
	return []*model.FunctionModel{m}, nil
}

// ParseData implements Parser.
func (p *RateLimitParser) ParseData(doc *Document, ctx *Context) ([]*model.FunctionModel, error) {
	if doc.Kind != KindListeners {
		return nil, nil
	}
	if doc.Service == "" {
		return nil, fmt.Errorf("listener dump %s: no service attribution", doc.Name)
	}

	listeners := sliceField(doc.Body, "listeners")
	if listeners == nil {
		listeners = sliceField(doc.Body, "dynamicListeners")
	}
	if listeners == nil {
		return nil, errEmptyDump(doc, "listeners")
	}

	m := model.NewFunctionModel(model.FunctionRateLimit, ctx.Namespace(doc), doc.Service, model.PlaneData, doc.Ref())
	for _, rawListener := range listeners {
		listener, ok := rawListener.(map[string]any)
		if !ok {
			continue
		}
		for _, rawChain := range sliceField(listener, "filterChains") {
			chain, ok := rawChain.(map[string]any)
			if !ok {
				continue
			}
			for _, rawFilter := range sliceField(chain, "filters") {
				filter, ok := rawFilter.(map[string]any)
				if !ok {
					continue
				}
				p.httpFilters(m, typedConfig(filter))
			}
		}
	}
	if m.Attrs.Len() == 0 {
		return nil, nil
	}
	return []*model.FunctionModel{m}, nil
}

func (p *RateLimitParser) httpFilters(m *model.FunctionModel, hcm map[string]any) {
	for _, rawFilter := range sliceField(hcm, "httpFilters") {
		filter, ok := rawFilter.(map[string]any)
		if !ok {
			continue
		}
		if stringField(filter, "name") != localRateLimitFilter {
			continue
		}
		if bucket := tokenBucket(typedConfig(filter)); bucket != nil {
			p.setBucket(m, bucket)
		}
	}
}

func (p *RateLimitParser) setBucket(m *model.FunctionModel, bucket map[string]any) {
	if n, ok := intField(bucket, "maxTokens"); ok {
		m.Attrs.Set(model.PathRateLimitRequests, model.IntValue(n))
	} else if n, ok := intField(bucket, "max_tokens"); ok {
		m.Attrs.Set(model.PathRateLimitRequests, model.IntValue(n))
	}
	if d, ok := durationField(bucket, "fillInterval"); ok {
		m.Attrs.Set(model.PathRateLimitFillInterval, model.DurationValue(d))
	} else if d, ok := durationField(bucket, "fill_interval"); ok {
		m.Attrs.Set(model.PathRateLimitFillInterval, model.DurationValue(d))
	}
}

// workloadService reads the target service from an EnvoyFilter workload
// selector.
func workloadService(spec map[string]any) string {
	labels := mapField(mapField(spec, "workloadSelector"), "labels")
	if app := stringField(labels, "app"); app != "" {
		return app
	}
	return ""
}

// typedConfig resolves a filter's configuration under either its dump
// name or its declarative name.
func typedConfig(filter map[string]any) map[string]any {
	if tc := mapField(filter, "typedConfig"); tc != nil {
		return tc
	}
	return mapField(filter, "typed_config")
}

// tokenBucket locates the token bucket in a local rate limit config.
func tokenBucket(cfg map[string]any) map[string]any {
	if cfg == nil {
		return nil
	}
	if tb := mapField(cfg, "tokenBucket"); tb != nil {
		return tb
	}
	return mapField(cfg, "token_bucket")
}
