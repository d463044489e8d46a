package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/segmentio/encoding/json"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Snapshot is the on-disk description of a program, used by the demo host and
// test fixtures. Addresses are strings in 0x-hex or decimal form.
type Snapshot struct {
	Filename         string             `yaml:"filename" json:"filename"`
	AnalysisComplete *bool              `yaml:"analysis_complete" json:"analysis_complete"`
	Functions        []SnapshotFunction `yaml:"functions" json:"functions"`
	Data             []SnapshotData     `yaml:"data" json:"data"`
	Imports          []SnapshotSymbol   `yaml:"imports" json:"imports"`
	Exports          []SnapshotSymbol   `yaml:"exports" json:"exports"`
	Segments         []SnapshotSegment  `yaml:"segments" json:"segments"`
	Classes          []string           `yaml:"classes" json:"classes"`
	Comments         map[string]string  `yaml:"comments" json:"comments"`
}

type SnapshotFunction struct {
	Name       string `yaml:"name" json:"name"`
	RawName    string `yaml:"raw_name" json:"raw_name"`
	Address    string `yaml:"address" json:"address"`
	SymbolType string `yaml:"symbol_type" json:"symbol_type"`
	Decompiled string `yaml:"decompiled" json:"decompiled"`
}

type SnapshotData struct {
	Address string `yaml:"address" json:"address"`
	Name    string `yaml:"name" json:"name"`
	Type    string `yaml:"type" json:"type"`
	Value   string `yaml:"value" json:"value"`
}

type SnapshotSymbol struct {
	Name    string `yaml:"name" json:"name"`
	Address string `yaml:"address" json:"address"`
}

type SnapshotSegment struct {
	Start       string `yaml:"start" json:"start"`
	End         string `yaml:"end" json:"end"`
	Permissions string `yaml:"permissions" json:"permissions"`
}

// LoadSnapshot reads a .yaml/.yml or .json/.jsonc snapshot file.
func LoadSnapshot(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	prog, err := ParseSnapshot(data, format)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", path, err)
	}
	if prog.Filename == "" {
		prog.Filename = path
	}
	return prog, nil
}

// ParseSnapshot decodes data in the given format (yaml, yml, json or jsonc).
func ParseSnapshot(data []byte, format string) (*Program, error) {
	var snap Snapshot
	switch format {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &snap); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	case "json", "jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), &snap); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported snapshot format %q", format)
	}
	return snap.Build()
}

// Build turns the snapshot into a Program. Analysis is complete unless the
// snapshot says otherwise.
func (s *Snapshot) Build() (*Program, error) {
	prog := NewProgram(s.Filename)
	prog.AnalysisComplete = s.AnalysisComplete == nil || *s.AnalysisComplete

	for _, f := range s.Functions {
		addr, err := ParseAddress(f.Address)
		if err != nil {
			return nil, fmt.Errorf("function %q: %w", f.Name, err)
		}
		if err := prog.AddFunction(Function{
			Name:       f.Name,
			RawName:    f.RawName,
			Entry:      addr,
			SymbolType: f.SymbolType,
			Decompiled: f.Decompiled,
		}); err != nil {
			return nil, err
		}
	}
	for _, d := range s.Data {
		addr, err := ParseAddress(d.Address)
		if err != nil {
			return nil, fmt.Errorf("data %q: %w", d.Name, err)
		}
		if err := prog.AddData(DataVar{Address: addr, Name: d.Name, Type: d.Type, Value: d.Value}); err != nil {
			return nil, err
		}
	}
	for _, sym := range s.Imports {
		addr, err := ParseAddress(sym.Address)
		if err != nil {
			return nil, fmt.Errorf("import %q: %w", sym.Name, err)
		}
		prog.AddImport(Symbol{Name: sym.Name, Address: addr})
	}
	for _, sym := range s.Exports {
		addr, err := ParseAddress(sym.Address)
		if err != nil {
			return nil, fmt.Errorf("export %q: %w", sym.Name, err)
		}
		prog.AddExport(Symbol{Name: sym.Name, Address: addr})
	}
	for _, seg := range s.Segments {
		start, err := ParseAddress(seg.Start)
		if err != nil {
			return nil, fmt.Errorf("segment start: %w", err)
		}
		end, err := ParseAddress(seg.End)
		if err != nil {
			return nil, fmt.Errorf("segment end: %w", err)
		}
		perms := strings.ToLower(seg.Permissions)
		if err := prog.AddSegment(Segment{
			Start:      start,
			End:        end,
			Readable:   strings.Contains(perms, "r"),
			Writable:   strings.Contains(perms, "w"),
			Executable: strings.Contains(perms, "x"),
		}); err != nil {
			return nil, err
		}
	}
	for _, name := range s.Classes {
		prog.AddClass(name)
	}
	for a, text := range s.Comments {
		addr, err := ParseAddress(a)
		if err != nil {
			return nil, fmt.Errorf("comment: %w", err)
		}
		prog.comments[addr] = text
	}
	return prog, nil
}
