package server

import (
	opsv1 "github.com/zboralski/binja-mcp/binja/ops/v1"
)

func (s *Server) readTools() []toolDef {
	return []toolDef{
		define(opsv1.OpGetBinaryStatus,
			"Report whether a binary is loaded, its file name and whether analysis has finished.",
			func(*StatusArgs) (*opsv1.Request, error) {
				return &opsv1.Request{Op: opsv1.OpGetBinaryStatus}, nil
			},
			func(_ *opsv1.Request, p *opsv1.Payload) string { return formatStatus(p) }),

		s.listTool(opsv1.OpListClasses, "classes",
			"List class names in the program, sorted by name. Paginated with offset/limit.", formatNames),
		s.listTool(opsv1.OpListNamespaces, "namespaces",
			"List namespaces in the program, sorted by name. Paginated with offset/limit.", formatNames),
		define(opsv1.OpListDataItems,
			"List defined data labels with address, name, type and value, sorted by address. Paginated with offset/limit.",
			func(a *ListArgs) (*opsv1.Request, error) {
				return &opsv1.Request{Op: opsv1.OpListDataItems, Pagination: s.page(a.Offset, a.Limit)}, nil
			},
			func(_ *opsv1.Request, p *opsv1.Payload) string { return formatDataItems(p) }),
		s.listTool(opsv1.OpListExports, "exports",
			"List exported symbols with their addresses. Paginated with offset/limit.", formatSymbols),
		s.listTool(opsv1.OpListImports, "imports",
			"List imported symbols with their addresses. Paginated with offset/limit.", formatSymbols),
		s.listTool(opsv1.OpListMethods, "functions",
			"List all functions with their entry addresses. Paginated with offset/limit.", formatSymbols),
		define(opsv1.OpListSegments,
			"List memory segments with start, end and rwx permissions. Paginated with offset/limit.",
			func(a *ListArgs) (*opsv1.Request, error) {
				return &opsv1.Request{Op: opsv1.OpListSegments, Pagination: s.page(a.Offset, a.Limit)}, nil
			},
			func(_ *opsv1.Request, p *opsv1.Payload) string { return formatSegments(p) }),

		define(opsv1.OpDecompileFunction,
			"Decompile a function to pseudo-C by name or entry address.",
			func(a *FunctionArgs) (*opsv1.Request, error) {
				return nameRequest(opsv1.OpDecompileFunction, a.Name)
			},
			func(_ *opsv1.Request, p *opsv1.Payload) string { return formatDecompiled(p) }),
		define(opsv1.OpGetFunctionInfo,
			"Show a function's name, raw symbol name, entry address and symbol type.",
			func(a *FunctionArgs) (*opsv1.Request, error) {
				return nameRequest(opsv1.OpGetFunctionInfo, a.Name)
			},
			func(_ *opsv1.Request, p *opsv1.Payload) string { return formatFunction(p.Function) }),

		define(opsv1.OpGetComment,
			"Read the comment at an address.",
			func(a *AddressArgs) (*opsv1.Request, error) {
				if err := checkAddress(a.Address); err != nil {
					return nil, err
				}
				return &opsv1.Request{Op: opsv1.OpGetComment, Args: map[string]string{opsv1.ArgAddress: a.Address}}, nil
			},
			func(req *opsv1.Request, p *opsv1.Payload) string {
				return formatComment(escape(req.Args[opsv1.ArgAddress]), p.Text)
			}),
		define(opsv1.OpGetFunctionComment,
			"Read a function's comment.",
			func(a *FunctionArgs) (*opsv1.Request, error) {
				return nameRequest(opsv1.OpGetFunctionComment, a.Name)
			},
			func(req *opsv1.Request, p *opsv1.Payload) string {
				return formatComment(functionLabel(req, p), p.Text)
			}),
	}
}

func nameRequest(op, name string) (*opsv1.Request, error) {
	if err := required(opsv1.ArgName, name); err != nil {
		return nil, err
	}
	return &opsv1.Request{Op: op, Args: map[string]string{opsv1.ArgName: name}}, nil
}

func functionLabel(req *opsv1.Request, p *opsv1.Payload) string {
	if p.Function != nil {
		return escape(p.Function.Name) + " @ " + p.Function.Address
	}
	return escape(req.Args[opsv1.ArgName])
}
