// Package opsv1 defines version 1 of the wire contract between the tool bridge
// and the operation server embedded in the analysis host.
//
// Messages are plain Go structs. They travel over connect-rpc with the json or
// cbor codec from internal/codec; field tags are shared by both codecs.
package opsv1

// Operation names. The set is fixed per protocol version.
const (
	OpGetBinaryStatus       = "get_binary_status"
	OpListClasses           = "list_classes"
	OpListNamespaces        = "list_namespaces"
	OpListDataItems         = "list_data_items"
	OpListExports           = "list_exports"
	OpListImports           = "list_imports"
	OpListMethods           = "list_methods"
	OpListSegments          = "list_segments"
	OpRenameFunction        = "rename_function"
	OpRenameData            = "rename_data"
	OpSearchFunctionsByName = "search_functions_by_name"
	OpDecompileFunction     = "decompile_function"
	OpGetFunctionInfo       = "get_function_info"
	OpGetComment            = "get_comment"
	OpSetComment            = "set_comment"
	OpDeleteComment         = "delete_comment"
	OpGetFunctionComment    = "get_function_comment"
	OpSetFunctionComment    = "set_function_comment"
	OpDeleteFunctionComment = "delete_function_comment"
)

// Operations is the registered operation set, in catalog order.
var Operations = []string{
	OpGetBinaryStatus,
	OpListClasses,
	OpListNamespaces,
	OpListDataItems,
	OpListExports,
	OpListImports,
	OpListMethods,
	OpListSegments,
	OpRenameFunction,
	OpRenameData,
	OpSearchFunctionsByName,
	OpDecompileFunction,
	OpGetFunctionInfo,
	OpGetComment,
	OpSetComment,
	OpDeleteComment,
	OpGetFunctionComment,
	OpSetFunctionComment,
	OpDeleteFunctionComment,
}

var mutating = map[string]bool{
	OpRenameFunction:        true,
	OpRenameData:            true,
	OpSetComment:            true,
	OpDeleteComment:         true,
	OpSetFunctionComment:    true,
	OpDeleteFunctionComment: true,
}

// IsRegistered reports whether op belongs to the registered set.
func IsRegistered(op string) bool {
	for _, name := range Operations {
		if name == op {
			return true
		}
	}
	return false
}

// IsMutating reports whether op changes the program model.
func IsMutating(op string) bool {
	return mutating[op]
}

// Argument keys used in Request.Args.
const (
	ArgOldName = "old_name"
	ArgNewName = "new_name"
	ArgAddress = "address"
	ArgQuery   = "query"
	ArgName    = "name"
	ArgComment = "comment"
)

// Status values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// ErrorKind classifies failures. The first four originate on the host; the
// remote_* kinds are produced by the bridge when the channel itself fails.
type ErrorKind string

const (
	KindValidation        ErrorKind = "validation_error"
	KindNotFound          ErrorKind = "not_found"
	KindConflict          ErrorKind = "conflict"
	KindUnavailable       ErrorKind = "unavailable"
	KindRemoteTimeout     ErrorKind = "remote_timeout"
	KindRemoteUnreachable ErrorKind = "remote_unreachable"
	KindInternal          ErrorKind = "internal"
)

// Pagination is the offset/limit window of a listing request.
type Pagination struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// Request is one operation invocation.
type Request struct {
	Op         string            `json:"op"`
	Args       map[string]string `json:"args,omitempty"`
	Pagination *Pagination       `json:"pagination,omitempty"`
	// RequestID is an idempotency key: a mutating request redelivered with the
	// same id is answered from the acknowledgement table, not re-executed.
	RequestID string `json:"request_id,omitempty"`
}

// Response is the result of one Request. Exactly one of Data or ErrorKind is set.
type Response struct {
	Status    string    `json:"status"`
	Data      *Payload  `json:"data,omitempty"`
	ErrorKind ErrorKind `json:"error_kind,omitempty"`
	Message   string    `json:"message,omitempty"`
	Hints     []string  `json:"hints,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}

// OK reports whether the response carries a successful payload.
func (r *Response) OK() bool {
	return r != nil && r.Status == StatusOK
}

// Payload carries the per-operation result. Which fields are populated is
// fixed by the operation.
type Payload struct {
	Status    *BinaryStatus `json:"status,omitempty"`
	Names     []string      `json:"names,omitempty"`
	Symbols   []Symbol      `json:"symbols,omitempty"`
	DataItems []DataItem    `json:"data_items,omitempty"`
	Segments  []Segment     `json:"segments,omitempty"`
	Function  *FunctionInfo `json:"function,omitempty"`
	Text      string        `json:"text,omitempty"`
	Success   bool          `json:"success,omitempty"`
	Page      *Page         `json:"page,omitempty"`
}

// Page describes the window a listing returned.
type Page struct {
	Total  int `json:"total"`
	Offset int `json:"offset"`
	Count  int `json:"count"`
	Limit  int `json:"limit"`
}

// BinaryStatus reports what the host currently has loaded.
type BinaryStatus struct {
	Loaded           bool   `json:"loaded"`
	Filename         string `json:"filename,omitempty"`
	AnalysisComplete bool   `json:"analysis_complete"`
}

// Symbol is a named address: a function, import or export.
type Symbol struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// DataItem is a defined data variable.
type DataItem struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Type    string `json:"type,omitempty"`
	Value   string `json:"value,omitempty"`
}

// Segment is a mapped memory range. Permissions use the rwx notation.
type Segment struct {
	Start       string `json:"start"`
	End         string `json:"end"`
	Permissions string `json:"permissions"`
}

// FunctionInfo identifies a function.
type FunctionInfo struct {
	Name       string `json:"name"`
	RawName    string `json:"raw_name,omitempty"`
	Address    string `json:"address"`
	SymbolType string `json:"symbol_type,omitempty"`
}

// PingRequest checks the operation server is up.
type PingRequest struct{}

// PingResponse answers a PingRequest.
type PingResponse struct {
	Version string `json:"version"`
	Loaded  bool   `json:"loaded"`
}

// ProtocolVersion is reported by Ping.
const ProtocolVersion = "v1"
