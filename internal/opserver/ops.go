package opserver

import (
	"sort"
	"strings"
	"unicode"

	opsv1 "github.com/zboralski/binja-mcp/binja/ops/v1"
	"github.com/zboralski/binja-mcp/internal/model"
)

const (
	unnamedLabel = "(unnamed)"
	maxHintNames = 10
)

func getBinaryStatus(c *call) (*opsv1.Payload, error) {
	status := &opsv1.BinaryStatus{}
	if c.prog != nil {
		status.Loaded = true
		status.Filename = c.prog.Filename
		status.AnalysisComplete = c.prog.AnalysisComplete
	}
	return &opsv1.Payload{Status: status}, nil
}

func listClasses(c *call) (*opsv1.Payload, error) {
	names, page := paginate(c.prog.Classes(), c.page)
	return &opsv1.Payload{Names: names, Page: page}, nil
}

func listNamespaces(c *call) (*opsv1.Payload, error) {
	names, page := paginate(c.prog.Namespaces(), c.page)
	return &opsv1.Payload{Names: names, Page: page}, nil
}

func listDataItems(c *call) (*opsv1.Payload, error) {
	vars, page := paginate(c.prog.DataVars(), c.page)
	items := make([]opsv1.DataItem, 0, len(vars))
	for _, dv := range vars {
		name := dv.Name
		if name == "" {
			name = unnamedLabel
		}
		items = append(items, opsv1.DataItem{
			Address: dv.Address.String(),
			Name:    name,
			Type:    dv.Type,
			Value:   dv.Value,
		})
	}
	return &opsv1.Payload{DataItems: items, Page: page}, nil
}

func symbolRecords(syms []model.Symbol) []opsv1.Symbol {
	out := make([]opsv1.Symbol, 0, len(syms))
	for _, sym := range syms {
		out = append(out, opsv1.Symbol{Name: sym.Name, Address: sym.Address.String()})
	}
	return out
}

func listExports(c *call) (*opsv1.Payload, error) {
	syms, page := paginate(c.prog.Exports(), c.page)
	return &opsv1.Payload{Symbols: symbolRecords(syms), Page: page}, nil
}

func listImports(c *call) (*opsv1.Payload, error) {
	syms, page := paginate(c.prog.Imports(), c.page)
	return &opsv1.Payload{Symbols: symbolRecords(syms), Page: page}, nil
}

func functionRecords(fns []*model.Function) []opsv1.Symbol {
	out := make([]opsv1.Symbol, 0, len(fns))
	for _, fn := range fns {
		out = append(out, opsv1.Symbol{Name: fn.Name, Address: fn.Entry.String()})
	}
	return out
}

func listMethods(c *call) (*opsv1.Payload, error) {
	fns, page := paginate(c.prog.Functions(), c.page)
	return &opsv1.Payload{Symbols: functionRecords(fns), Page: page}, nil
}

func listSegments(c *call) (*opsv1.Payload, error) {
	segs, page := paginate(c.prog.Segments(), c.page)
	out := make([]opsv1.Segment, 0, len(segs))
	for _, seg := range segs {
		out = append(out, opsv1.Segment{
			Start:       seg.Start.String(),
			End:         seg.End.String(),
			Permissions: seg.Permissions(),
		})
	}
	return &opsv1.Payload{Segments: out, Page: page}, nil
}

func searchFunctionsByName(c *call) (*opsv1.Payload, error) {
	needle := strings.ToLower(c.arg(opsv1.ArgQuery))
	var matches []*model.Function
	if needle == "" {
		_, page := paginate(matches, c.page)
		return &opsv1.Payload{Symbols: []opsv1.Symbol{}, Page: page}, nil
	}
	for _, fn := range c.prog.Functions() {
		if strings.Contains(strings.ToLower(fn.Name), needle) {
			matches = append(matches, fn)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Name != matches[j].Name {
			return matches[i].Name < matches[j].Name
		}
		return matches[i].Entry < matches[j].Entry
	})
	fns, page := paginate(matches, c.page)
	return &opsv1.Payload{Symbols: functionRecords(fns), Page: page}, nil
}

// resolveFunction finds a function by exact name, then by address. Read-only
// callers may also accept a unique case-insensitive match; mutations never do,
// so a rename cannot land on a look-alike symbol.
func resolveFunction(prog *model.Program, ident string, fold bool) (*model.Function, error) {
	if fn, ok := prog.FunctionByName(ident); ok {
		return fn, nil
	}
	if addr, err := model.ParseAddress(ident); err == nil {
		if fn, ok := prog.FunctionAt(addr); ok {
			return fn, nil
		}
	}
	if fold {
		if fn, ok := prog.FunctionByNameFold(ident); ok {
			return fn, nil
		}
	}
	return nil, notFound(availableFunctions(prog), "function %q not found", ident)
}

func availableFunctions(prog *model.Program) []string {
	fns := prog.Functions()
	if len(fns) > maxHintNames {
		fns = fns[:maxHintNames]
	}
	names := make([]string, 0, len(fns))
	for _, fn := range fns {
		names = append(names, fn.Name)
	}
	return names
}

func functionInfo(fn *model.Function) *opsv1.FunctionInfo {
	return &opsv1.FunctionInfo{
		Name:       fn.Name,
		RawName:    fn.RawName,
		Address:    fn.Entry.String(),
		SymbolType: fn.SymbolType,
	}
}

func checkNewName(name string) error {
	for _, r := range name {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return invalidArgs("new name %q contains whitespace or control characters", name)
		}
	}
	return nil
}

func renameFunction(c *call) (*opsv1.Payload, error) {
	newName := c.arg(opsv1.ArgNewName)
	if err := checkNewName(newName); err != nil {
		return nil, err
	}
	fn, err := resolveFunction(c.prog, c.arg(opsv1.ArgOldName), false)
	if err != nil {
		return nil, err
	}
	if err := c.prog.RenameFunction(fn.Entry, newName); err != nil {
		return nil, err
	}
	return &opsv1.Payload{Success: true, Function: functionInfo(fn)}, nil
}

func renameData(c *call) (*opsv1.Payload, error) {
	newName := c.arg(opsv1.ArgNewName)
	if err := checkNewName(newName); err != nil {
		return nil, err
	}
	// data addresses are always hex, prefix or not
	addr, err := model.ParseHexAddress(c.arg(opsv1.ArgAddress))
	if err != nil {
		return nil, err
	}
	if err := c.prog.RenameData(addr, newName); err != nil {
		return nil, err
	}
	return &opsv1.Payload{Success: true}, nil
}

func decompileFunction(c *call) (*opsv1.Payload, error) {
	fn, err := resolveFunction(c.prog, c.arg(opsv1.ArgName), true)
	if err != nil {
		return nil, err
	}
	text, err := c.prog.Decompile(fn)
	if err != nil {
		return nil, err
	}
	return &opsv1.Payload{Text: text, Function: functionInfo(fn)}, nil
}

func getFunctionInfo(c *call) (*opsv1.Payload, error) {
	fn, err := resolveFunction(c.prog, c.arg(opsv1.ArgName), true)
	if err != nil {
		return nil, err
	}
	return &opsv1.Payload{Function: functionInfo(fn)}, nil
}

func getComment(c *call) (*opsv1.Payload, error) {
	addr, err := model.ParseAddress(c.arg(opsv1.ArgAddress))
	if err != nil {
		return nil, err
	}
	text, err := c.prog.Comment(addr)
	if err != nil {
		return nil, err
	}
	return &opsv1.Payload{Text: text}, nil
}

func setComment(c *call) (*opsv1.Payload, error) {
	addr, err := model.ParseAddress(c.arg(opsv1.ArgAddress))
	if err != nil {
		return nil, err
	}
	if err := c.prog.SetComment(addr, c.args[opsv1.ArgComment]); err != nil {
		return nil, err
	}
	return &opsv1.Payload{Success: true}, nil
}

func deleteComment(c *call) (*opsv1.Payload, error) {
	addr, err := model.ParseAddress(c.arg(opsv1.ArgAddress))
	if err != nil {
		return nil, err
	}
	if err := c.prog.SetComment(addr, ""); err != nil {
		return nil, err
	}
	return &opsv1.Payload{Success: true}, nil
}

func getFunctionComment(c *call) (*opsv1.Payload, error) {
	fn, err := resolveFunction(c.prog, c.arg(opsv1.ArgName), true)
	if err != nil {
		return nil, err
	}
	return &opsv1.Payload{Text: c.prog.FunctionComment(fn), Function: functionInfo(fn)}, nil
}

func setFunctionComment(c *call) (*opsv1.Payload, error) {
	fn, err := resolveFunction(c.prog, c.arg(opsv1.ArgName), false)
	if err != nil {
		return nil, err
	}
	c.prog.SetFunctionComment(fn, c.args[opsv1.ArgComment])
	return &opsv1.Payload{Success: true, Function: functionInfo(fn)}, nil
}

func deleteFunctionComment(c *call) (*opsv1.Payload, error) {
	fn, err := resolveFunction(c.prog, c.arg(opsv1.ArgName), false)
	if err != nil {
		return nil, err
	}
	c.prog.SetFunctionComment(fn, "")
	return &opsv1.Payload{Success: true, Function: functionInfo(fn)}, nil
}
