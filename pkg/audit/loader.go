package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"tessera-hq/meshlens/pkg/config"
	"tessera-hq/meshlens/pkg/mesh/parser"
)

// LoadError records one file that could not be read or decoded. Load
// errors are recorded and skipped, never fatal.
type LoadError struct {
	Path string
	Err  error
}

// Error returns the error message.
func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *LoadError) Unwrap() error {
	return e.Err
}

// Inputs holds every document materialized from the source directories.
// Traffic samples come after proxy dumps in Data so observed counts win
// the last-writer-wins merge against realized route weights.
type Inputs struct {
	Control []*parser.Document
	Data    []*parser.Document
	Errors  []*LoadError
}

// Loader reads control-plane manifests, data-plane dumps, and traffic
// samples from the configured directories.
type Loader struct {
	cfg    config.SourcesConfig
	logger *slog.Logger
}

// NewLoader returns a loader over the configured source directories.
func NewLoader(cfg config.SourcesConfig, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{cfg: cfg, logger: logger.With("component", "loader")}
}

// Load walks the configured directories and decodes every document.
// It fails only when a configured directory cannot be walked; malformed
// individual files are recorded in Inputs.Errors and skipped.
func (l *Loader) Load() (*Inputs, error) {
	in := &Inputs{}

	if l.cfg.ControlDir != "" {
		if err := l.loadControl(in); err != nil {
			return nil, err
		}
	}
	if l.cfg.DataDir != "" {
		if err := l.loadData(in); err != nil {
			return nil, err
		}
	}
	if l.cfg.TrafficDir != "" {
		if err := l.loadTraffic(in); err != nil {
			return nil, err
		}
	}

	l.logger.Info("documents loaded",
		"control", len(in.Control),
		"data", len(in.Data),
		"errors", len(in.Errors),
	)

	return in, nil
}

// loadControl decodes every YAML manifest under ControlDir. Files may hold
// multiple documents separated by "---".
func (l *Loader) loadControl(in *Inputs) error {
	paths, err := walkFiles(l.cfg.ControlDir, ".yaml", ".yml")
	if err != nil {
		return fmt.Errorf("walking control directory: %w", err)
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			in.Errors = append(in.Errors, &LoadError{Path: path, Err: err})
			continue
		}

		dec := yaml.NewDecoder(strings.NewReader(string(data)))
		for {
			var body map[string]any
			err := dec.Decode(&body)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				in.Errors = append(in.Errors, &LoadError{Path: path, Err: err})
				break
			}
			if len(body) == 0 {
				continue
			}

			doc, err := controlDocument(body)
			if err != nil {
				in.Errors = append(in.Errors, &LoadError{Path: path, Err: err})
				continue
			}
			if doc == nil {
				continue
			}
			in.Control = append(in.Control, doc)
		}
	}

	return nil
}

// controlDocument builds a parser document from a decoded manifest.
// Returns nil for kinds no parser consumes.
func controlDocument(body map[string]any) (*parser.Document, error) {
	kind, _ := body["kind"].(string)
	if kind == "" {
		return nil, errors.New("manifest has no kind")
	}

	switch kind {
	case parser.KindVirtualService, parser.KindDestinationRule,
		parser.KindEnvoyFilter, parser.KindGateway:
	default:
		return nil, nil
	}

	var name, namespace string
	if meta, ok := body["metadata"].(map[string]any); ok {
		name, _ = meta["name"].(string)
		namespace, _ = meta["namespace"].(string)
	}
	if name == "" {
		return nil, fmt.Errorf("%s manifest has no metadata.name", kind)
	}

	return &parser.Document{
		Kind:      kind,
		Namespace: namespace,
		Name:      name,
		Body:      body,
	}, nil
}

// loadData decodes every JSON proxy dump under DataDir. The dump kind is
// sniffed from its top-level keys; the owning service and namespace come
// from the file name, "service.namespace.kind.json".
func (l *Loader) loadData(in *Inputs) error {
	paths, err := walkFiles(l.cfg.DataDir, ".json")
	if err != nil {
		return fmt.Errorf("walking data directory: %w", err)
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			in.Errors = append(in.Errors, &LoadError{Path: path, Err: err})
			continue
		}

		var body map[string]any
		if err := json.Unmarshal(data, &body); err != nil {
			in.Errors = append(in.Errors, &LoadError{Path: path, Err: err})
			continue
		}

		kind := sniffDumpKind(body)
		if kind == "" {
			in.Errors = append(in.Errors, &LoadError{Path: path, Err: errors.New("unrecognized dump: no cluster, route, or listener section")})
			continue
		}

		service, namespace := dumpOwner(path, body)
		in.Data = append(in.Data, &parser.Document{
			Kind:      kind,
			Namespace: namespace,
			Name:      fileStem(path),
			Service:   service,
			Body:      body,
		})
	}

	return nil
}

// loadTraffic decodes observed traffic samples, JSON or YAML.
func (l *Loader) loadTraffic(in *Inputs) error {
	paths, err := walkFiles(l.cfg.TrafficDir, ".json", ".yaml", ".yml")
	if err != nil {
		return fmt.Errorf("walking traffic directory: %w", err)
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			in.Errors = append(in.Errors, &LoadError{Path: path, Err: err})
			continue
		}

		var body map[string]any
		if strings.HasSuffix(path, ".json") {
			err = json.Unmarshal(data, &body)
		} else {
			err = yaml.Unmarshal(data, &body)
		}
		if err != nil {
			in.Errors = append(in.Errors, &LoadError{Path: path, Err: err})
			continue
		}

		service, _ := body["service"].(string)
		namespace, _ := body["namespace"].(string)
		in.Data = append(in.Data, &parser.Document{
			Kind:      parser.KindTrafficSample,
			Namespace: namespace,
			Name:      fileStem(path),
			Service:   service,
			Body:      body,
		})
	}

	return nil
}

// sniffDumpKind classifies a proxy dump by its top-level sections.
func sniffDumpKind(body map[string]any) string {
	switch {
	case body["dynamicActiveClusters"] != nil || body["clusters"] != nil:
		return parser.KindClusters
	case body["routeConfigs"] != nil || body["configs"] != nil:
		return parser.KindRouteTable
	case body["dynamicListeners"] != nil || body["listeners"] != nil:
		return parser.KindListeners
	}
	return ""
}

// dumpOwner resolves the owning service and namespace of a dump, either
// from explicit body fields or from the file name.
func dumpOwner(path string, body map[string]any) (service, namespace string) {
	service, _ = body["service"].(string)
	namespace, _ = body["namespace"].(string)
	if service != "" {
		return service, namespace
	}

	parts := strings.Split(fileStem(path), ".")
	if len(parts) >= 3 {
		return parts[0], parts[1]
	}
	if len(parts) == 2 {
		return parts[0], ""
	}
	return "", ""
}

// fileStem returns the file name without directory or extension.
func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// walkFiles returns every regular file under root with one of the given
// extensions, sorted for a deterministic load order.
func walkFiles(root string, exts ...string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		for _, want := range exts {
			if ext == want {
				paths = append(paths, path)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}
