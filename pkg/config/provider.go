// Package config is the default, minimal implementation of the
// modkit.ConfigProvider contract (spec.md §4.7/§6). It is deliberately
// small: the distilled spec treats configuration loading and env
// overlay as an external collaborator's concern, so this package only
// needs to satisfy the contract, not be a production-grade config
// engine.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/golobby/cast"
	"gopkg.in/yaml.v3"
)

// MapConfigProvider is a modkit.ConfigProvider backed by an in-memory
// tree of module sections, the way the teacher's StdConfigProvider
// wraps a parsed config tree behind the same interface regardless of
// source format.
type MapConfigProvider struct {
	sections map[string]json.RawMessage
}

// NewMapConfigProvider returns a provider with no sections.
func NewMapConfigProvider() *MapConfigProvider {
	return &MapConfigProvider{sections: make(map[string]json.RawMessage)}
}

// ModuleConfig implements modkit.ConfigProvider.
func (p *MapConfigProvider) ModuleConfig(name string) json.RawMessage {
	return p.sections["modules."+name]
}

// Section returns the raw section at dotted key (e.g. "server",
// "database", "logging"), for ambient, non-module configuration.
func (p *MapConfigProvider) Section(key string) json.RawMessage {
	return p.sections[key]
}

// SetSection stores value (already JSON-marshalable) under key.
func (p *MapConfigProvider) SetSection(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("config: marshal section %q: %w", key, err)
	}
	p.sections[key] = raw
	return nil
}

// LoadTOML parses a TOML document of nested tables into flat dotted
// sections (top-level table "modules" with nested tables becomes
// "modules.<name>", the rest ("server", "database", "logging", ...)
// become their own top-level dotted keys), using BurntSushi/toml, a
// real teacher dependency.
func LoadTOML(p *MapConfigProvider, data []byte) error {
	var tree map[string]any
	if err := toml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("config: parse toml: %w", err)
	}
	return loadTree(p, tree)
}

// LoadYAML parses a YAML document the same way, using gopkg.in/yaml.v3,
// a real teacher dependency.
func LoadYAML(p *MapConfigProvider, data []byte) error {
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("config: parse yaml: %w", err)
	}
	return loadTree(p, tree)
}

func loadTree(p *MapConfigProvider, tree map[string]any) error {
	for key, val := range tree {
		if key == "modules" {
			modules, ok := val.(map[string]any)
			if !ok {
				continue
			}
			for name, modVal := range modules {
				if err := p.SetSection("modules."+name, modVal); err != nil {
					return err
				}
			}
			continue
		}
		if err := p.SetSection(key, val); err != nil {
			return err
		}
	}
	return nil
}

// ApplyEnvOverlay overrides configuration paths from process
// environment variables prefixed with prefix + "_". Within that, a
// double underscore ("__") is the hierarchy separator between the
// section path and the field name (e.g.
// HYPERSPOT_MODULES__API_INGRESS__ENABLE_DOCS overrides
// modules.api_ingress.enable_docs), per spec.md §6. A single
// underscore never ends a path segment, so multi-word module names
// ("api_ingress") and multi-word field names ("enable_docs",
// "request_timeout_secs") are both unambiguous regardless of how many
// words they contain — unlike splitting on the last single
// underscore, which cannot tell a module-name boundary from a
// field-name boundary. Scalar values are cast into the target field's
// Go kind using golobby/cast, a real teacher dependency, before being
// folded back into the section's raw JSON.
func (p *MapConfigProvider) ApplyEnvOverlay(prefix string) error {
	prefix = strings.ToUpper(prefix) + "_"
	for _, kv := range os.Environ() {
		eq := strings.IndexByte(kv, '=')
		if eq < 0 {
			continue
		}
		key, value := kv[:eq], kv[eq+1:]
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		path := strings.ToLower(strings.TrimPrefix(key, prefix))
		if err := p.overlayOne(path, value); err != nil {
			return err
		}
	}
	return nil
}

// overlayOne splits path on every "__": the last segment is the field
// name and the segments before it, joined with ".", form the dotted
// section key (so "modules__api_ingress__enable_docs" targets field
// "enable_docs" of section "modules.api_ingress", and
// "server__home_dir" targets field "home_dir" of section "server").
// A path with no "__" is ignored. The resulting section is decoded,
// overlaid, and re-encoded.
func (p *MapConfigProvider) overlayOne(path, value string) error {
	parts := strings.Split(path, "__")
	if len(parts) < 2 {
		return nil
	}
	sectionKey := strings.Join(parts[:len(parts)-1], ".")
	field := parts[len(parts)-1]

	raw, ok := p.sections[sectionKey]
	var obj map[string]any
	if ok && len(raw) > 0 {
		if err := json.Unmarshal(raw, &obj); err != nil {
			obj = make(map[string]any)
		}
	} else {
		obj = make(map[string]any)
	}

	casted, err := castScalar(value, obj[field])
	if err != nil {
		return fmt.Errorf("config: env overlay %q: %w", sectionKey+"."+field, err)
	}
	obj[field] = casted

	return p.SetSection(sectionKey, obj)
}

// castScalar coerces the raw string env value to match the kind of
// the existing value at that key, defaulting to string when there is
// no existing value to infer a kind from.
func castScalar(value string, existing any) (any, error) {
	if existing == nil {
		return value, nil
	}
	switch reflect.TypeOf(existing).Kind() {
	case reflect.Bool:
		return cast.FromString(value, cast.Bool)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return cast.FromString(value, cast.Int)
	case reflect.Float32, reflect.Float64:
		return cast.FromString(value, cast.Float64)
	default:
		return cast.FromString(value, cast.String)
	}
}
