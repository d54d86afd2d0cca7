package ir

import "tessera-hq/meshlens/pkg/mesh/model"

// The export surface is deliberately narrow: counts, per-service issues,
// and a serializable nested mapping. Rendering and reporting collaborators
// consume the mapping; this package knows nothing about HTML, graphs, or
// files.

// Summarize returns counts by status and severity across the tree.
func (s *SystemIR) Summarize() Summary {
	sum := Summary{
		ServicesByStatus:  make(map[Status]int),
		FunctionsByStatus: make(map[Status]int),
		IssuesBySeverity:  make(map[Severity]int),
	}
	for _, svc := range s.Services {
		sum.Services++
		sum.ServicesByStatus[svc.Aggregate()]++
		for _, fn := range svc.Functions {
			sum.Functions++
			sum.FunctionsByStatus[fn.Status]++
			for _, issue := range fn.Issues {
				sum.Issues++
				sum.IssuesBySeverity[issue.Severity]++
			}
		}
	}
	return sum
}

// IssuesFor returns every issue recorded for one service, ordered by
// function type. The returned slice is empty, never nil, when the service
// is unknown or clean.
func (s *SystemIR) IssuesFor(namespace, service string) []Issue {
	svc, ok := s.Services[namespace+"."+service]
	if !ok {
		return []Issue{}
	}
	issues := svc.Issues()
	if issues == nil {
		return []Issue{}
	}
	return issues
}

// ToSerializable returns the tree as a nested mapping:
//
//	{summary: {...}, services: {"ns.svc": {status, functions: {type:
//	{status, issues: [...]}}}}}
//
// Map keys serialize sorted under encoding/json, so identical inputs
// produce byte-identical output across runs.
func (s *SystemIR) ToSerializable() map[string]any {
	services := make(map[string]any, len(s.Services))
	for key, svc := range s.Services {
		functions := make(map[string]any, len(svc.Functions))
		for _, t := range model.AllFunctionTypes() {
			fn, ok := svc.Functions[t]
			if !ok {
				continue
			}
			issues := make([]any, 0, len(fn.Issues))
			for _, issue := range fn.Issues {
				issues = append(issues, map[string]any{
					"field_path":    issue.FieldPath,
					"control_value": issue.ControlValue,
					"data_value":    issue.DataValue,
					"severity":      string(issue.Severity),
					"description":   issue.Description,
				})
			}
			functions[string(t)] = map[string]any{
				"status": string(fn.Status),
				"issues": issues,
			}
		}
		services[key] = map[string]any{
			"status":    string(svc.Aggregate()),
			"functions": functions,
		}
	}

	sum := s.Summarize()
	return map[string]any{
		"summary": map[string]any{
			"services":            sum.Services,
			"functions":           sum.Functions,
			"issues":              sum.Issues,
			"services_by_status":  statusCounts(sum.ServicesByStatus),
			"functions_by_status": statusCounts(sum.FunctionsByStatus),
			"issues_by_severity":  severityCounts(sum.IssuesBySeverity),
		},
		"services": services,
	}
}

func statusCounts(in map[Status]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[string(k)] = v
	}
	return out
}

func severityCounts(in map[Severity]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[string(k)] = v
	}
	return out
}
