package server

import (
	"fmt"

	opsv1 "github.com/zboralski/binja-mcp/binja/ops/v1"
)

func (s *Server) writeTools() []toolDef {
	return []toolDef{
		define(opsv1.OpRenameFunction,
			"Rename a function. old_name must match exactly; fails with conflict if new_name is already used elsewhere.",
			func(a *RenameFunctionArgs) (*opsv1.Request, error) {
				if err := checkAll(required(opsv1.ArgOldName, a.OldName), checkNewName(a.NewName)); err != nil {
					return nil, err
				}
				return &opsv1.Request{
					Op:        opsv1.OpRenameFunction,
					Args:      map[string]string{opsv1.ArgOldName: a.OldName, opsv1.ArgNewName: a.NewName},
					RequestID: a.RequestID,
				}, nil
			},
			func(req *opsv1.Request, p *opsv1.Payload) string {
				msg := fmt.Sprintf("renamed %s -> %s", escape(req.Args[opsv1.ArgOldName]), escape(req.Args[opsv1.ArgNewName]))
				if p.Function != nil {
					msg += " at " + p.Function.Address
				}
				return msg
			}),
		define(opsv1.OpRenameData,
			"Rename the data label at an address.",
			func(a *RenameDataArgs) (*opsv1.Request, error) {
				if err := checkAll(checkHexAddress(a.Address), checkNewName(a.NewName)); err != nil {
					return nil, err
				}
				return &opsv1.Request{
					Op:        opsv1.OpRenameData,
					Args:      map[string]string{opsv1.ArgAddress: a.Address, opsv1.ArgNewName: a.NewName},
					RequestID: a.RequestID,
				}, nil
			},
			func(req *opsv1.Request, _ *opsv1.Payload) string {
				return fmt.Sprintf("renamed data at %s to %s", escape(req.Args[opsv1.ArgAddress]), escape(req.Args[opsv1.ArgNewName]))
			}),

		define(opsv1.OpSetComment,
			"Set the comment at an address, replacing any existing one.",
			func(a *SetCommentArgs) (*opsv1.Request, error) {
				if err := checkAddress(a.Address); err != nil {
					return nil, err
				}
				return &opsv1.Request{
					Op:        opsv1.OpSetComment,
					Args:      map[string]string{opsv1.ArgAddress: a.Address, opsv1.ArgComment: a.Comment},
					RequestID: a.RequestID,
				}, nil
			},
			func(req *opsv1.Request, _ *opsv1.Payload) string {
				return "comment set at " + escape(req.Args[opsv1.ArgAddress])
			}),
		define(opsv1.OpDeleteComment,
			"Remove the comment at an address.",
			func(a *DeleteCommentArgs) (*opsv1.Request, error) {
				if err := checkAddress(a.Address); err != nil {
					return nil, err
				}
				return &opsv1.Request{
					Op:        opsv1.OpDeleteComment,
					Args:      map[string]string{opsv1.ArgAddress: a.Address},
					RequestID: a.RequestID,
				}, nil
			},
			func(req *opsv1.Request, _ *opsv1.Payload) string {
				return "comment removed at " + escape(req.Args[opsv1.ArgAddress])
			}),
		define(opsv1.OpSetFunctionComment,
			"Set a function's comment, replacing any existing one.",
			func(a *SetFunctionCommentArgs) (*opsv1.Request, error) {
				if err := required(opsv1.ArgName, a.Name); err != nil {
					return nil, err
				}
				return &opsv1.Request{
					Op:        opsv1.OpSetFunctionComment,
					Args:      map[string]string{opsv1.ArgName: a.Name, opsv1.ArgComment: a.Comment},
					RequestID: a.RequestID,
				}, nil
			},
			func(req *opsv1.Request, p *opsv1.Payload) string {
				return "comment set on " + functionLabel(req, p)
			}),
		define(opsv1.OpDeleteFunctionComment,
			"Remove a function's comment.",
			func(a *DeleteFunctionCommentArgs) (*opsv1.Request, error) {
				req, err := nameRequest(opsv1.OpDeleteFunctionComment, a.Name)
				if err != nil {
					return nil, err
				}
				req.RequestID = a.RequestID
				return req, nil
			},
			func(req *opsv1.Request, p *opsv1.Payload) string {
				return "comment removed from " + functionLabel(req, p)
			}),
	}
}
