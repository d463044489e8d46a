package server

// Tool argument structs. Input schemas are derived from these types, so the
// json tags decide which fields are required: anything without omitempty is.

type StatusArgs struct{}

type ListArgs struct {
	Offset int `json:"offset,omitempty" jsonschema:"index of the first entry to return (default 0)"`
	Limit  int `json:"limit,omitempty" jsonschema:"maximum number of entries to return (default 100)"`
}

type SearchFunctionsArgs struct {
	Query  string `json:"query" jsonschema:"substring to look for in function names, case-insensitive"`
	Offset int    `json:"offset,omitempty" jsonschema:"index of the first match to return (default 0)"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of matches to return (default 100)"`
}

type RenameFunctionArgs struct {
	OldName   string `json:"old_name" jsonschema:"current name of the function, exact match (an address like 0x401000 also works)"`
	NewName   string `json:"new_name" jsonschema:"new name, no whitespace"`
	RequestID string `json:"request_id,omitempty" jsonschema:"optional idempotency key; resending the same key never renames twice"`
}

type RenameDataArgs struct {
	Address   string `json:"address" jsonschema:"address of the data label, always hex (5000 and 0x5000 are the same)"`
	NewName   string `json:"new_name" jsonschema:"new label, no whitespace"`
	RequestID string `json:"request_id,omitempty" jsonschema:"optional idempotency key; resending the same key never renames twice"`
}

type FunctionArgs struct {
	Name string `json:"name" jsonschema:"function name or entry address"`
}

type AddressArgs struct {
	Address string `json:"address" jsonschema:"address, hex (0x5000) or decimal"`
}

type DeleteCommentArgs struct {
	Address   string `json:"address" jsonschema:"address, hex (0x5000) or decimal"`
	RequestID string `json:"request_id,omitempty" jsonschema:"optional idempotency key"`
}

type SetCommentArgs struct {
	Address   string `json:"address" jsonschema:"address, hex (0x5000) or decimal"`
	Comment   string `json:"comment" jsonschema:"comment text; empty removes the comment"`
	RequestID string `json:"request_id,omitempty" jsonschema:"optional idempotency key"`
}

type DeleteFunctionCommentArgs struct {
	Name      string `json:"name" jsonschema:"function name or entry address"`
	RequestID string `json:"request_id,omitempty" jsonschema:"optional idempotency key"`
}

type SetFunctionCommentArgs struct {
	Name      string `json:"name" jsonschema:"function name or entry address"`
	Comment   string `json:"comment" jsonschema:"comment text; empty removes the comment"`
	RequestID string `json:"request_id,omitempty" jsonschema:"optional idempotency key"`
}
