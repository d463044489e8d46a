package server

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/segmentio/encoding/json"

	opsv1 "github.com/zboralski/binja-mcp/binja/ops/v1"
	"github.com/zboralski/binja-mcp/internal/model"
)

// tool is one registry entry: an operation exposed as an MCP tool.
type tool struct {
	name        string
	description string
	schema      *jsonschema.Schema
	resolved    *jsonschema.Resolved
	// build decodes already schema-checked arguments, applies the rules a
	// schema cannot express and produces the host request.
	build  func(data []byte) (*opsv1.Request, error)
	render func(req *opsv1.Request, p *opsv1.Payload) string
}

type toolDef struct {
	name        string
	description string
	schema      func() (*jsonschema.Schema, error)
	build       func(data []byte) (*opsv1.Request, error)
	render      func(req *opsv1.Request, p *opsv1.Payload) string
}

func define[T any](name, description string, build func(*T) (*opsv1.Request, error), render func(*opsv1.Request, *opsv1.Payload) string) toolDef {
	return toolDef{
		name:        name,
		description: description,
		schema:      func() (*jsonschema.Schema, error) { return jsonschema.For[T](nil) },
		build: func(data []byte) (*opsv1.Request, error) {
			var args T
			if err := json.Unmarshal(data, &args); err != nil {
				return nil, fmt.Errorf("invalid arguments: %w", err)
			}
			return build(&args)
		},
		render: render,
	}
}

// buildTools derives and resolves every schema and checks the registry covers
// the protocol's operation set exactly.
func buildTools(defs []toolDef, maxLimit int) ([]*tool, error) {
	seen := make(map[string]bool, len(defs))
	tools := make([]*tool, 0, len(defs))
	for _, d := range defs {
		if !opsv1.IsRegistered(d.name) {
			return nil, fmt.Errorf("tool %q is not an operation of protocol %s", d.name, opsv1.ProtocolVersion)
		}
		if seen[d.name] {
			return nil, fmt.Errorf("tool %q registered twice", d.name)
		}
		seen[d.name] = true

		schema, err := d.schema()
		if err != nil {
			return nil, fmt.Errorf("schema for %s: %w", d.name, err)
		}
		constrain(schema, maxLimit)
		resolved, err := schema.Resolve(nil)
		if err != nil {
			return nil, fmt.Errorf("resolve schema for %s: %w", d.name, err)
		}
		tools = append(tools, &tool{
			name:        d.name,
			description: d.description,
			schema:      schema,
			resolved:    resolved,
			build:       d.build,
			render:      d.render,
		})
	}
	for _, name := range opsv1.Operations {
		if !seen[name] {
			return nil, fmt.Errorf("operation %q has no tool", name)
		}
	}
	return tools, nil
}

// constrain adds the bounds struct tags cannot carry.
func constrain(schema *jsonschema.Schema, maxLimit int) {
	if p := schema.Properties["offset"]; p != nil {
		p.Minimum = float(0)
	}
	if p := schema.Properties["limit"]; p != nil {
		p.Minimum = float(0)
		p.Maximum = float(float64(maxLimit))
	}
	for _, name := range schema.Required {
		if p := schema.Properties[name]; p != nil && p.Type == "string" && name != opsv1.ArgComment && name != opsv1.ArgQuery {
			one := 1
			p.MinLength = &one
		}
	}
}

func float(v float64) *float64 { return &v }

// --- argument rules ---

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}

func checkNewName(value string) error {
	if err := required(opsv1.ArgNewName, value); err != nil {
		return err
	}
	for _, r := range value {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return fmt.Errorf("new_name %q must not contain whitespace or control characters", value)
		}
	}
	return nil
}

func checkAddress(value string) error {
	if err := required(opsv1.ArgAddress, value); err != nil {
		return err
	}
	if _, err := model.ParseAddress(value); err != nil {
		return fmt.Errorf("address %q: expected hex (0x1000) or decimal", value)
	}
	return nil
}

func checkHexAddress(value string) error {
	if err := required(opsv1.ArgAddress, value); err != nil {
		return err
	}
	if _, err := model.ParseHexAddress(value); err != nil {
		return fmt.Errorf("address %q: expected hex, with or without 0x", value)
	}
	return nil
}

func checkAll(errs ...error) error {
	return errors.Join(errs...)
}

// --- catalog ---

func (s *Server) page(offset, limit int) *opsv1.Pagination {
	if limit == 0 {
		limit = s.session.DefaultLimit
	}
	return &opsv1.Pagination{Offset: offset, Limit: limit}
}

func (s *Server) listTool(op, noun, description string, render func(string, *opsv1.Payload) string) toolDef {
	return define(op, description,
		func(a *ListArgs) (*opsv1.Request, error) {
			return &opsv1.Request{Op: op, Pagination: s.page(a.Offset, a.Limit)}, nil
		},
		func(_ *opsv1.Request, p *opsv1.Payload) string { return render(noun, p) })
}

func (s *Server) catalog() []toolDef {
	var defs []toolDef
	defs = append(defs, s.readTools()...)
	defs = append(defs, s.searchTools()...)
	defs = append(defs, s.writeTools()...)
	return defs
}
