package server

import (
	"fmt"

	opsv1 "github.com/zboralski/binja-mcp/binja/ops/v1"
)

func (s *Server) searchTools() []toolDef {
	return []toolDef{
		define(opsv1.OpSearchFunctionsByName,
			"Find functions whose name contains query (case-insensitive), sorted by name. An empty query matches nothing. Paginated with offset/limit.",
			func(a *SearchFunctionsArgs) (*opsv1.Request, error) {
				return &opsv1.Request{
					Op:         opsv1.OpSearchFunctionsByName,
					Args:       map[string]string{opsv1.ArgQuery: a.Query},
					Pagination: s.page(a.Offset, a.Limit),
				}, nil
			},
			func(req *opsv1.Request, p *opsv1.Payload) string {
				return formatSymbols(fmt.Sprintf(`functions matching "%s"`, escape(req.Args[opsv1.ArgQuery])), p)
			}),
	}
}
