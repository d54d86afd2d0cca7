package parser

import (
	"fmt"

	"tessera-hq/meshlens/pkg/mesh/model"
)

// Control-plane document kinds, matching the declarative API objects.
const (
	KindVirtualService  = "VirtualService"
	KindDestinationRule = "DestinationRule"
	KindEnvoyFilter     = "EnvoyFilter"
	KindGateway         = "Gateway"
)

// Data-plane document kinds: proxy config dumps and observed traffic.
const (
	KindClusters      = "Clusters"
	KindRouteTable    = "RouteTable"
	KindListeners     = "Listeners"
	KindTrafficSample = "TrafficSample"
)

// Document is one already-materialized configuration object. Control-plane
// documents are tagged with kind, namespace and name; data-plane documents
// additionally carry the owning service or pod.
type Document struct {
	// Kind selects which parsers consume the document.
	Kind string

	// Namespace and Name identify the source object.
	Namespace string
	Name      string

	// Service is the owning service for data-plane documents.
	Service string

	// Body is the decoded document payload.
	Body map[string]any
}

// Ref returns the traceability identifier recorded on produced models.
func (d *Document) Ref() string {
	return fmt.Sprintf("%s/%s/%s", d.Kind, d.Namespace, d.Name)
}

// Context carries cross-document information into the parsers.
type Context struct {
	// DefaultNamespace is used when a document carries none.
	DefaultNamespace string
}

// Namespace resolves the effective namespace for doc.
func (c *Context) Namespace(doc *Document) string {
	if doc.Namespace != "" {
		return doc.Namespace
	}
	if c != nil && c.DefaultNamespace != "" {
		return c.DefaultNamespace
	}
	return "default"
}

// Parser extracts function models of one capability from documents on
// either plane. Implementations return a nil slice for documents of an
// irrelevant kind.
type Parser interface {
	// Type reports the capability this parser produces models for.
	Type() model.FunctionType

	// ParseControl extracts models from a control-plane document.
	ParseControl(doc *Document, ctx *Context) ([]*model.FunctionModel, error)

	// ParseData extracts models from a data-plane document.
	ParseData(doc *Document, ctx *Context) ([]*model.FunctionModel, error)
}

// ParseError records a malformed or unrecognized document. It is logged
// and recorded, never fatal: the document simply produces no models.
type ParseError struct {
	Doc   string
	Plane model.Plane
	Err   error
}

// Error returns the error message.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s plane document %s: %v", e.Plane, e.Doc, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ParseError) Unwrap() error {
	return e.Err
}
