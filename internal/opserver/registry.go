package opserver

import (
	"fmt"
	"strings"

	opsv1 "github.com/zboralski/binja-mcp/binja/ops/v1"
	"github.com/zboralski/binja-mcp/internal/model"
)

// call is the context a handler runs with, always on the host thread.
type call struct {
	host *model.Host
	prog *model.Program
	args map[string]string
	page window
}

func (c *call) arg(name string) string {
	return strings.TrimSpace(c.args[name])
}

// operation is one registry entry.
type operation struct {
	name      string
	required  []string
	paginated bool
	// anyState operations run with no binary loaded.
	anyState bool
	run      func(*call) (*opsv1.Payload, error)
}

func catalog() []operation {
	return []operation{
		{name: opsv1.OpGetBinaryStatus, anyState: true, run: getBinaryStatus},
		{name: opsv1.OpListClasses, paginated: true, run: listClasses},
		{name: opsv1.OpListNamespaces, paginated: true, run: listNamespaces},
		{name: opsv1.OpListDataItems, paginated: true, run: listDataItems},
		{name: opsv1.OpListExports, paginated: true, run: listExports},
		{name: opsv1.OpListImports, paginated: true, run: listImports},
		{name: opsv1.OpListMethods, paginated: true, run: listMethods},
		{name: opsv1.OpListSegments, paginated: true, run: listSegments},
		{name: opsv1.OpRenameFunction, required: []string{opsv1.ArgOldName, opsv1.ArgNewName}, run: renameFunction},
		{name: opsv1.OpRenameData, required: []string{opsv1.ArgAddress, opsv1.ArgNewName}, run: renameData},
		{name: opsv1.OpSearchFunctionsByName, required: []string{opsv1.ArgQuery}, paginated: true, run: searchFunctionsByName},
		{name: opsv1.OpDecompileFunction, required: []string{opsv1.ArgName}, run: decompileFunction},
		{name: opsv1.OpGetFunctionInfo, required: []string{opsv1.ArgName}, run: getFunctionInfo},
		{name: opsv1.OpGetComment, required: []string{opsv1.ArgAddress}, run: getComment},
		{name: opsv1.OpSetComment, required: []string{opsv1.ArgAddress, opsv1.ArgComment}, run: setComment},
		{name: opsv1.OpDeleteComment, required: []string{opsv1.ArgAddress}, run: deleteComment},
		{name: opsv1.OpGetFunctionComment, required: []string{opsv1.ArgName}, run: getFunctionComment},
		{name: opsv1.OpSetFunctionComment, required: []string{opsv1.ArgName, opsv1.ArgComment}, run: setFunctionComment},
		{name: opsv1.OpDeleteFunctionComment, required: []string{opsv1.ArgName}, run: deleteFunctionComment},
	}
}

// buildRegistry indexes ops by name and checks it matches the protocol's
// operation set exactly.
func buildRegistry(ops []operation) (map[string]operation, error) {
	reg := make(map[string]operation, len(ops))
	for _, op := range ops {
		if !opsv1.IsRegistered(op.name) {
			return nil, fmt.Errorf("operation %q is not part of protocol %s", op.name, opsv1.ProtocolVersion)
		}
		if _, dup := reg[op.name]; dup {
			return nil, fmt.Errorf("operation %q registered twice", op.name)
		}
		if op.run == nil {
			return nil, fmt.Errorf("operation %q has no handler", op.name)
		}
		reg[op.name] = op
	}
	for _, name := range opsv1.Operations {
		if _, ok := reg[name]; !ok {
			return nil, fmt.Errorf("operation %q has no handler", name)
		}
	}
	return reg, nil
}

// mayBeEmpty lists arguments that must be present but may be blank: a blank
// comment clears it and a blank query matches nothing.
var mayBeEmpty = map[string]bool{
	opsv1.ArgComment: true,
	opsv1.ArgQuery:   true,
}

// validate checks required arguments before anything touches the host.
func (op operation) validate(args map[string]string) error {
	for _, name := range op.required {
		v, ok := args[name]
		if !ok {
			return invalidArgs("missing required argument %q", name)
		}
		if !mayBeEmpty[name] && strings.TrimSpace(v) == "" {
			return invalidArgs("argument %q must not be empty", name)
		}
	}
	return nil
}
