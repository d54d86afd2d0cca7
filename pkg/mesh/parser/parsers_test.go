package parser

import (
	"testing"
	"time"

	"tessera-hq/meshlens/pkg/mesh/model"
)

func singleModel(t *testing.T, models []*model.FunctionModel, err error) *model.FunctionModel {
	t.Helper()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(models) != 1 {
		t.Fatalf("got %d models, want 1", len(models))
	}
	return models[0]
}

func TestRoutingParserControl(t *testing.T) {
	doc := vsDoc("checkout", map[string]any{
		"hosts": []any{"checkout.prod.svc.cluster.local"},
		"http": []any{
			map[string]any{
				"match": []any{
					map[string]any{
						"uri":     map[string]any{"prefix": "/api"},
						"headers": map[string]any{"x-canary": map[string]any{"exact": "true"}},
					},
				},
				"route": []any{
					map[string]any{
						"destination": map[string]any{
							"host":   "checkout.prod.svc.cluster.local",
							"subset": "v2",
							"port":   map[string]any{"number": 80},
						},
					},
				},
			},
		},
	})

	mModels, mErr := NewRoutingParser().ParseControl(doc, testContext())
	m := singleModel(t, mModels, mErr)
	if m.Service != "checkout" || m.Namespace != "prod" {
		t.Errorf("owner = %s.%s", m.Namespace, m.Service)
	}
	checks := map[string]string{
		model.PathRouteHosts:                          "checkout",
		model.RoutePath(0, "match.uri-prefix"):        "/api",
		model.RoutePath(0, "match.header.x-canary"):   "true",
		model.RoutePath(0, "destination.host"):        "checkout",
		model.RoutePath(0, "destination.subset"):      "v2",
	}
	for path, want := range checks {
		v, ok := m.Attrs.Get(path)
		if !ok {
			t.Errorf("missing %s", path)
			continue
		}
		if v.String() != want {
			t.Errorf("%s = %q, want %q", path, v.String(), want)
		}
	}
	if v, _ := m.Attrs.Get(model.RoutePath(0, "destination.port")); v.Int != 80 {
		t.Errorf("port = %d, want 80", v.Int)
	}
}

func TestRoutingParserData(t *testing.T) {
	doc := &Document{
		Kind: KindRouteTable, Namespace: "prod", Name: "checkout-dump",
		Body: map[string]any{
			"routeConfigs": []any{
				map[string]any{
					"virtualHosts": []any{
						map[string]any{
							"name":    "checkout.prod.svc.cluster.local:80",
							"domains": []any{"checkout.prod.svc.cluster.local"},
							"routes": []any{
								map[string]any{
									"match": map[string]any{"prefix": "/api"},
									"route": map[string]any{
										"cluster": "outbound|80|v2|checkout.prod.svc.cluster.local",
									},
								},
							},
						},
					},
				},
			},
		},
	}

	mModels, mErr := NewRoutingParser().ParseData(doc, testContext())
	m := singleModel(t, mModels, mErr)
	if m.Service != "checkout" || m.Namespace != "prod" {
		t.Errorf("owner = %s.%s", m.Namespace, m.Service)
	}
	if v, _ := m.Attrs.Get(model.RoutePath(0, "destination.subset")); v.Str != "v2" {
		t.Errorf("subset = %q", v.Str)
	}
	if v, _ := m.Attrs.Get(model.RoutePath(0, "destination.port")); v.Int != 80 {
		t.Errorf("port = %d", v.Int)
	}
}

func TestTrafficShiftParserControlNormalizesWeights(t *testing.T) {
	mModels, mErr := NewTrafficShiftParser().ParseControl(weightedVSDoc("checkout"), testContext())
	m := singleModel(t, mModels, mErr)

	v, ok := m.Attrs.Get(model.PathTrafficSplit)
	if !ok || v.Kind != model.KindDistribution {
		t.Fatalf("no distribution at %s", model.PathTrafficSplit)
	}
	if p, _ := v.Dist.Proportion("v1"); p != 0.8 {
		t.Errorf("v1 share = %g, want 0.8", p)
	}
	if p, _ := v.Dist.Proportion("v2"); p != 0.2 {
		t.Errorf("v2 share = %g, want 0.2", p)
	}
}

func TestTrafficShiftParserSingleDestinationIsNotASplit(t *testing.T) {
	doc := vsDoc("checkout", map[string]any{
		"hosts": []any{"checkout"},
		"http": []any{
			map[string]any{
				"route": []any{
					map[string]any{"destination": map[string]any{"host": "checkout", "subset": "v1"}},
				},
			},
		},
	})
	models, err := NewTrafficShiftParser().ParseControl(doc, testContext())
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(models) != 0 {
		t.Errorf("single destination should produce no split model, got %d", len(models))
	}
}

func TestTrafficShiftParserSampleCounts(t *testing.T) {
	doc := &Document{
		Kind: KindTrafficSample, Name: "checkout-sample",
		Body: map[string]any{
			"service":   "checkout",
			"namespace": "prod",
			"counts":    map[string]any{"v1": 48, "v2": 14},
		},
	}
	mModels, mErr := NewTrafficShiftParser().ParseData(doc, testContext())
	m := singleModel(t, mModels, mErr)
	if m.Service != "checkout" || m.Namespace != "prod" {
		t.Errorf("owner = %s.%s", m.Namespace, m.Service)
	}
	v, _ := m.Attrs.Get(model.PathTrafficSplit)
	if n, _ := v.Dist.Count("v1"); n != 48 {
		t.Errorf("v1 count = %d", n)
	}
	if v.Dist.Total() != 62 {
		t.Errorf("total = %d, want 62", v.Dist.Total())
	}
}

func TestTrafficShiftParserSampleWithoutCountsFails(t *testing.T) {
	doc := &Document{
		Kind: KindTrafficSample, Name: "broken",
		Body: map[string]any{"service": "checkout"},
	}
	if _, err := NewTrafficShiftParser().ParseData(doc, testContext()); err == nil {
		t.Error("sample without counts should fail")
	}
}

func TestTrafficShiftParserRouteWeights(t *testing.T) {
	doc := &Document{
		Kind: KindRouteTable, Name: "dump",
		Body: map[string]any{
			"routeConfigs": []any{
				map[string]any{
					"virtualHosts": []any{
						map[string]any{
							"name": "checkout.prod.svc.cluster.local:80",
							"routes": []any{
								map[string]any{
									"route": map[string]any{
										"weightedClusters": map[string]any{
											"clusters": []any{
												map[string]any{"name": "outbound|80|v1|checkout.prod.svc.cluster.local", "weight": 75},
												map[string]any{"name": "outbound|80|v2|checkout.prod.svc.cluster.local", "weight": 25},
											},
										},
									},
								},
							},
						},
					},
				},
			},
		},
	}
	mModels, mErr := NewTrafficShiftParser().ParseData(doc, testContext())
	m := singleModel(t, mModels, mErr)
	v, _ := m.Attrs.Get(model.PathTrafficSplit)
	if p, _ := v.Dist.Proportion("v1"); p != 0.75 {
		t.Errorf("v1 share = %g, want 0.75", p)
	}
}

func TestCircuitBreakParserControlSubsetScoping(t *testing.T) {
	doc := &Document{
		Kind: KindDestinationRule, Namespace: "prod", Name: "checkout-dr",
		Body: map[string]any{
			"spec": map[string]any{
				"host": "checkout.prod.svc.cluster.local",
				"trafficPolicy": map[string]any{
					"connectionPool": map[string]any{
						"tcp":  map[string]any{"maxConnections": 100},
						"http": map[string]any{"http1MaxPendingRequests": 64},
					},
					"outlierDetection": map[string]any{
						"consecutive5xxErrors": 5,
						"interval":             "10s",
					},
				},
				"subsets": []any{
					map[string]any{
						"name": "v2",
						"trafficPolicy": map[string]any{
							"connectionPool": map[string]any{
								"tcp": map[string]any{"maxConnections": 10},
							},
						},
					},
				},
			},
		},
	}

	mModels, mErr := NewCircuitBreakParser().ParseControl(doc, testContext())
	m := singleModel(t, mModels, mErr)
	if v, _ := m.Attrs.Get(model.PathMaxConnections); v.Int != 100 {
		t.Errorf("service-wide max connections = %d, want 100", v.Int)
	}
	// The subset override nests under its scope instead of shadowing the
	// service-wide value.
	if v, _ := m.Attrs.Get(model.SubsetPath("v2", model.PathMaxConnections)); v.Int != 10 {
		t.Errorf("subset max connections = %d, want 10", v.Int)
	}
	if v, _ := m.Attrs.Get(model.PathEjectionInterval); v.Duration != 10*time.Second {
		t.Errorf("ejection interval = %v", v.Duration)
	}
}

func TestCircuitBreakParserDataMergesSubsetClusters(t *testing.T) {
	doc := &Document{
		Kind: KindClusters, Namespace: "prod", Name: "checkout-clusters",
		Body: map[string]any{
			"dynamicActiveClusters": []any{
				map[string]any{
					"cluster": map[string]any{
						"name": "outbound|80||checkout.prod.svc.cluster.local",
						"circuitBreakers": map[string]any{
							"thresholds": []any{map[string]any{"maxConnections": 50}},
						},
					},
				},
				map[string]any{
					"cluster": map[string]any{
						"name": "outbound|80|v2|checkout.prod.svc.cluster.local",
						"circuitBreakers": map[string]any{
							"thresholds": []any{map[string]any{"maxConnections": 10}},
						},
					},
				},
			},
		},
	}

	mModels, mErr := NewCircuitBreakParser().ParseData(doc, testContext())
	m := singleModel(t, mModels, mErr)
	if v, _ := m.Attrs.Get(model.PathMaxConnections); v.Int != 50 {
		t.Errorf("service-wide max connections = %d, want 50", v.Int)
	}
	if v, _ := m.Attrs.Get(model.SubsetPath("v2", model.PathMaxConnections)); v.Int != 10 {
		t.Errorf("subset max connections = %d, want 10", v.Int)
	}
}

func TestLoadBalanceParserCrossPlaneAlias(t *testing.T) {
	// The control plane declares LEAST_CONN; the proxy reports
	// LEAST_REQUEST. Both normalize to one name.
	drDoc := &Document{
		Kind: KindDestinationRule, Namespace: "prod", Name: "dr",
		Body: map[string]any{
			"spec": map[string]any{
				"host": "checkout",
				"trafficPolicy": map[string]any{
					"loadBalancer": map[string]any{"simple": "LEAST_CONN"},
				},
			},
		},
	}
	clusterDoc := &Document{
		Kind: KindClusters, Namespace: "prod", Name: "dump",
		Body: map[string]any{
			"clusters": []any{
				map[string]any{
					"name":     "outbound|80||checkout.prod.svc.cluster.local",
					"lbPolicy": "LEAST_REQUEST",
				},
			},
		},
	}

	p := NewLoadBalanceParser()
	controlModels, controlErr := p.ParseControl(drDoc, testContext())
	control := singleModel(t, controlModels, controlErr)
	dataModels, dataErr := p.ParseData(clusterDoc, testContext())
	data := singleModel(t, dataModels, dataErr)

	cv, _ := control.Attrs.Get(model.PathLBAlgorithm)
	dv, _ := data.Attrs.Get(model.PathLBAlgorithm)
	if cv.Str != dv.Str {
		t.Errorf("algorithms differ after normalization: %q vs %q", cv.Str, dv.Str)
	}
}

func TestTimeoutParserZeroDataTimeoutIsAbsence(t *testing.T) {
	doc := &Document{
		Kind: KindRouteTable, Name: "dump",
		Body: map[string]any{
			"routeConfigs": []any{
				map[string]any{
					"virtualHosts": []any{
						map[string]any{
							"name": "checkout.prod.svc.cluster.local:80",
							"routes": []any{
								map[string]any{"route": map[string]any{"timeout": "0s"}},
							},
						},
					},
				},
			},
		},
	}
	models, err := NewTimeoutParser().ParseData(doc, testContext())
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(models) != 0 {
		t.Errorf("zero timeout is disabled routing policy, not a model: got %d", len(models))
	}
}

func TestTimeoutParserCrossUnitComparison(t *testing.T) {
	vs := vsDoc("checkout", map[string]any{
		"hosts": []any{"checkout.prod.svc.cluster.local"},
		"http":  []any{map[string]any{"timeout": "500ms"}},
	})
	mModels, mErr := NewTimeoutParser().ParseControl(vs, testContext())
	m := singleModel(t, mModels, mErr)
	if v, _ := m.Attrs.Get(model.PathRequestTimeout); v.Duration != 500*time.Millisecond {
		t.Errorf("timeout = %v", v.Duration)
	}
}

func TestNormalizeRetryOn(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		// Proxy-injected conditions drop; the rest sorts canonically.
		{"5xx,gateway-error,connect-failure", "5xx,gateway-error"},
		{"gateway-error,5xx", "5xx,gateway-error"},
		{"connect-failure,refused-stream", ""},
		{" 5xx , retriable-4xx ", "5xx,retriable-4xx"},
	}
	for _, tt := range tests {
		if got := normalizeRetryOn(tt.in); got != tt.want {
			t.Errorf("normalizeRetryOn(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRateLimitParserControl(t *testing.T) {
	doc := &Document{
		Kind: KindEnvoyFilter, Namespace: "prod", Name: "checkout-ratelimit",
		Body: map[string]any{
			"spec": map[string]any{
				"workloadSelector": map[string]any{
					"labels": map[string]any{"app": "checkout"},
				},
				"configPatches": []any{
					map[string]any{
						"patch": map[string]any{
							"value": map[string]any{
								"name": "envoy.filters.http.local_ratelimit",
								"typed_config": map[string]any{
									"token_bucket": map[string]any{
										"max_tokens":    100,
										"fill_interval": "1s",
									},
								},
							},
						},
					},
				},
			},
		},
	}
	mModels, mErr := NewRateLimitParser().ParseControl(doc, testContext())
	m := singleModel(t, mModels, mErr)
	if m.Service != "checkout" {
		t.Errorf("service = %q, want checkout (from workload selector)", m.Service)
	}
	if v, _ := m.Attrs.Get(model.PathRateLimitRequests); v.Int != 100 {
		t.Errorf("max tokens = %d", v.Int)
	}
	if v, _ := m.Attrs.Get(model.PathRateLimitFillInterval); v.Duration != time.Second {
		t.Errorf("fill interval = %v", v.Duration)
	}
}

func TestFaultInjectionPercentageForms(t *testing.T) {
	// Declared {percentage: {value: 10}} and enforced {numerator: 1000,
	// denominator: TEN_THOUSAND} must normalize to the same percent.
	vs := vsDoc("checkout", map[string]any{
		"hosts": []any{"checkout.prod.svc.cluster.local"},
		"http": []any{
			map[string]any{
				"fault": map[string]any{
					"abort": map[string]any{
						"percentage": map[string]any{"value": 10},
						"httpStatus": 503,
					},
				},
			},
		},
	})
	dump := &Document{
		Kind: KindRouteTable, Name: "dump",
		Body: map[string]any{
			"routeConfigs": []any{
				map[string]any{
					"virtualHosts": []any{
						map[string]any{
							"name": "checkout.prod.svc.cluster.local:80",
							"routes": []any{
								map[string]any{
									"typedPerFilterConfig": map[string]any{
										"envoy.filters.http.fault": map[string]any{
											"abort": map[string]any{
												"percentage": map[string]any{"numerator": 1000, "denominator": "TEN_THOUSAND"},
												"httpStatus": 503,
											},
										},
									},
								},
							},
						},
					},
				},
			},
		},
	}

	p := NewFaultInjectionParser()
	controlModels, controlErr := p.ParseControl(vs, testContext())
	control := singleModel(t, controlModels, controlErr)
	dataModels, dataErr := p.ParseData(dump, testContext())
	data := singleModel(t, dataModels, dataErr)

	cv, _ := control.Attrs.Get(model.PathFaultAbortPercent)
	dv, _ := data.Attrs.Get(model.PathFaultAbortPercent)
	if cv.Float != 10 || dv.Float != 10 {
		t.Errorf("percentages = %g vs %g, want 10 on both planes", cv.Float, dv.Float)
	}
}

func TestRetryParserControl(t *testing.T) {
	vs := vsDoc("checkout", map[string]any{
		"hosts": []any{"checkout.prod.svc.cluster.local"},
		"http": []any{
			map[string]any{
				"retries": map[string]any{
					"attempts":      3,
					"perTryTimeout": "2s",
					"retryOn":       "gateway-error,5xx,connect-failure",
				},
			},
		},
	})
	mModels, mErr := NewRetryParser().ParseControl(vs, testContext())
	m := singleModel(t, mModels, mErr)
	if v, _ := m.Attrs.Get(model.PathRetryAttempts); v.Int != 3 {
		t.Errorf("attempts = %d", v.Int)
	}
	if v, _ := m.Attrs.Get(model.PathRetryPerTryTime); v.Duration != 2*time.Second {
		t.Errorf("per-try timeout = %v", v.Duration)
	}
	if v, _ := m.Attrs.Get(model.PathRetryOn); v.Str != "5xx,gateway-error" {
		t.Errorf("retry-on = %q", v.Str)
	}
}
