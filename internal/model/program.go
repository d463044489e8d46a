// Package model is the in-memory program model of the analysis host: the
// functions, data, symbols and segments of one loaded binary.
//
// The model is owned by the host's analysis thread and is not safe for
// concurrent use. Callers outside that thread go through hostexec.Queue.
package model

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("name already in use")
	ErrInvalidAddress      = errors.New("invalid address")
	ErrDecompilationFailed = errors.New("decompilation failed")
	ErrDuplicate           = errors.New("duplicate entity")
)

// Address is a virtual address in the loaded binary.
type Address uint64

func (a Address) String() string {
	return "0x" + strconv.FormatUint(uint64(a), 16)
}

// ParseAddress accepts 0x-prefixed hex or plain decimal.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	var (
		v   uint64
		err error
	)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err = strconv.ParseUint(s[2:], 16, 64)
	} else {
		v, err = strconv.ParseUint(s, 10, 64)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return Address(v), nil
}

// ParseHexAddress reads s as hex whether or not it carries the 0x prefix,
// so "5000" is 0x5000.
func ParseHexAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	digits := s
	if strings.HasPrefix(digits, "0x") || strings.HasPrefix(digits, "0X") {
		digits = digits[2:]
	}
	if digits == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	v, err := strconv.ParseUint(digits, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return Address(v), nil
}

// Function is an analysed function.
type Function struct {
	Name       string
	RawName    string
	Entry      Address
	SymbolType string
	// Decompiled is the high-level representation. Empty means the decompiler
	// could not produce one.
	Decompiled string
}

// DataVar is a defined data variable. Name is empty for unlabelled data.
type DataVar struct {
	Address Address
	Name    string
	Type    string
	Value   string
}

// Symbol is an import or export.
type Symbol struct {
	Name    string
	Address Address
}

// Segment is a mapped range [Start, End).
type Segment struct {
	Start      Address
	End        Address
	Readable   bool
	Writable   bool
	Executable bool
}

// Permissions renders the segment flags as rwx.
func (s Segment) Permissions() string {
	b := []byte("---")
	if s.Readable {
		b[0] = 'r'
	}
	if s.Writable {
		b[1] = 'w'
	}
	if s.Executable {
		b[2] = 'x'
	}
	return string(b)
}

// Program is one loaded binary.
type Program struct {
	Filename         string
	AnalysisComplete bool

	functions map[Address]*Function
	data      map[Address]*DataVar
	imports   []Symbol
	exports   []Symbol
	segments  []Segment
	classes   map[string]struct{}
	comments  map[Address]string
}

func NewProgram(filename string) *Program {
	return &Program{
		Filename:  filename,
		functions: make(map[Address]*Function),
		data:      make(map[Address]*DataVar),
		classes:   make(map[string]struct{}),
		comments:  make(map[Address]string),
	}
}

func (p *Program) AddFunction(fn Function) error {
	if _, ok := p.functions[fn.Entry]; ok {
		return fmt.Errorf("%w: function at %s", ErrDuplicate, fn.Entry)
	}
	if fn.RawName == "" {
		fn.RawName = fn.Name
	}
	if fn.SymbolType == "" {
		fn.SymbolType = "FunctionSymbol"
	}
	p.functions[fn.Entry] = &fn
	return nil
}

func (p *Program) AddData(dv DataVar) error {
	if _, ok := p.data[dv.Address]; ok {
		return fmt.Errorf("%w: data at %s", ErrDuplicate, dv.Address)
	}
	p.data[dv.Address] = &dv
	return nil
}

func (p *Program) AddImport(sym Symbol) { p.imports = append(p.imports, sym) }

func (p *Program) AddExport(sym Symbol) { p.exports = append(p.exports, sym) }

func (p *Program) AddSegment(seg Segment) error {
	if seg.End <= seg.Start {
		return fmt.Errorf("%w: segment %s-%s", ErrInvalidAddress, seg.Start, seg.End)
	}
	p.segments = append(p.segments, seg)
	return nil
}

func (p *Program) AddClass(name string) {
	if name != "" {
		p.classes[name] = struct{}{}
	}
}

// Functions returns all functions ordered by entry address.
func (p *Program) Functions() []*Function {
	out := make([]*Function, 0, len(p.functions))
	for _, fn := range p.functions {
		out = append(out, fn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Entry < out[j].Entry })
	return out
}

func (p *Program) FunctionAt(addr Address) (*Function, bool) {
	fn, ok := p.functions[addr]
	return fn, ok
}

// FunctionByName is an exact, case-sensitive lookup.
func (p *Program) FunctionByName(name string) (*Function, bool) {
	for _, fn := range p.Functions() {
		if fn.Name == name {
			return fn, true
		}
	}
	return nil, false
}

// FunctionByNameFold matches case-insensitively and only succeeds when exactly
// one function matches.
func (p *Program) FunctionByNameFold(name string) (*Function, bool) {
	var found *Function
	for _, fn := range p.functions {
		if strings.EqualFold(fn.Name, name) {
			if found != nil {
				return nil, false
			}
			found = fn
		}
	}
	return found, found != nil
}

// NameOwner returns the address of the entity currently bound to name.
func (p *Program) NameOwner(name string) (Address, bool) {
	for _, fn := range p.functions {
		if fn.Name == name {
			return fn.Entry, true
		}
	}
	for _, dv := range p.data {
		if dv.Name == name {
			return dv.Address, true
		}
	}
	for _, sym := range p.imports {
		if sym.Name == name {
			return sym.Address, true
		}
	}
	for _, sym := range p.exports {
		if sym.Name == name {
			return sym.Address, true
		}
	}
	return 0, false
}

func (p *Program) checkName(name string, owner Address) error {
	if bound, ok := p.NameOwner(name); ok && bound != owner {
		return fmt.Errorf("%w: %q is bound to %s", ErrConflict, name, bound)
	}
	return nil
}

// RenameFunction renames the function at entry. Exports of the same address
// carrying the old name follow the rename.
func (p *Program) RenameFunction(entry Address, newName string) error {
	fn, ok := p.functions[entry]
	if !ok {
		return fmt.Errorf("function at %s: %w", entry, ErrNotFound)
	}
	if err := p.checkName(newName, entry); err != nil {
		return err
	}
	old := fn.Name
	fn.Name = newName
	for i := range p.exports {
		if p.exports[i].Address == entry && p.exports[i].Name == old {
			p.exports[i].Name = newName
		}
	}
	return nil
}

// DataVars returns all data variables ordered by address.
func (p *Program) DataVars() []*DataVar {
	out := make([]*DataVar, 0, len(p.data))
	for _, dv := range p.data {
		out = append(out, dv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// RenameData relabels the data variable at addr. Unlabelled data is not found.
func (p *Program) RenameData(addr Address, newName string) error {
	dv, ok := p.data[addr]
	if !ok || dv.Name == "" {
		return fmt.Errorf("data label at %s: %w", addr, ErrNotFound)
	}
	if err := p.checkName(newName, addr); err != nil {
		return err
	}
	dv.Name = newName
	return nil
}

func sortedSymbols(in []Symbol) []Symbol {
	out := append([]Symbol(nil), in...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Address != out[j].Address {
			return out[i].Address < out[j].Address
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Imports returns imported symbols ordered by address, then name.
func (p *Program) Imports() []Symbol { return sortedSymbols(p.imports) }

// Exports returns exported symbols ordered by address, then name.
func (p *Program) Exports() []Symbol { return sortedSymbols(p.exports) }

// Segments returns segments ordered by start address.
func (p *Program) Segments() []Segment {
	out := append([]Segment(nil), p.segments...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// Classes returns class type names sorted by name.
func (p *Program) Classes() []string {
	out := make([]string, 0, len(p.classes))
	for name := range p.classes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Namespaces derives the qualifying prefixes of every "::"-qualified symbol
// name, sorted by name.
func (p *Program) Namespaces() []string {
	seen := make(map[string]struct{})
	add := func(name string) {
		if i := strings.LastIndex(name, "::"); i > 0 {
			seen[name[:i]] = struct{}{}
		}
	}
	for _, fn := range p.functions {
		add(fn.Name)
	}
	for _, dv := range p.data {
		add(dv.Name)
	}
	for _, sym := range p.imports {
		add(sym.Name)
	}
	for _, sym := range p.exports {
		add(sym.Name)
	}
	out := make([]string, 0, len(seen))
	for ns := range seen {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

func (p *Program) Decompile(fn *Function) (string, error) {
	if fn.Decompiled == "" {
		return "", fmt.Errorf("%s: %w", fn.Name, ErrDecompilationFailed)
	}
	return fn.Decompiled, nil
}

// IsValidOffset reports whether addr falls inside a mapped segment.
func (p *Program) IsValidOffset(addr Address) bool {
	for _, seg := range p.segments {
		if addr >= seg.Start && addr < seg.End {
			return true
		}
	}
	return false
}

func (p *Program) Comment(addr Address) (string, error) {
	if !p.IsValidOffset(addr) {
		return "", fmt.Errorf("%w: %s is not mapped", ErrInvalidAddress, addr)
	}
	return p.comments[addr], nil
}

// SetComment stores text at addr. Empty text deletes the comment.
func (p *Program) SetComment(addr Address, text string) error {
	if !p.IsValidOffset(addr) {
		return fmt.Errorf("%w: %s is not mapped", ErrInvalidAddress, addr)
	}
	if text == "" {
		delete(p.comments, addr)
		return nil
	}
	p.comments[addr] = text
	return nil
}

// FunctionComment is the comment at the function's entry.
func (p *Program) FunctionComment(fn *Function) string {
	return p.comments[fn.Entry]
}

func (p *Program) SetFunctionComment(fn *Function, text string) {
	if text == "" {
		delete(p.comments, fn.Entry)
		return
	}
	p.comments[fn.Entry] = text
}

// Host holds the program currently open in the analysis host, if any.
type Host struct {
	current *Program
}

func NewHost() *Host { return &Host{} }

func (h *Host) Current() *Program { return h.current }

func (h *Host) Load(p *Program) { h.current = p }

func (h *Host) Unload() { h.current = nil }
