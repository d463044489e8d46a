package server

import (
	"maps"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/segmentio/encoding/json"
)

// handleToolError logs the structured ToolError and returns an MCP CallToolResult with
// the serialised JSON body, so MCP clients can programmatically recover using the kind/status fields.
func (s *Server) handleToolError(terr *ToolError) (*mcp.CallToolResult, error) {
	s.logger.Printf("[Error] %s", terr.Error())
	body, _ := s.marshalJSON(terr)
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: string(body)}},
	}, nil
}

func textResult(text string) (*mcp.CallToolResult, error) {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}, nil
}

// logToolInvocation logs a call and its arguments. details is not modified.
func (s *Server) logToolInvocation(tool string, details map[string]any) {
	details = maps.Clone(details)
	if details == nil {
		details = map[string]any{}
	}
	if s.session != nil {
		details["session"] = s.session.ID
	}
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte('=')
		raw, _ := json.Marshal(details[k])
		b.Write(raw)
	}
	s.logger.Printf("[Tool] %s %s", tool, b.String())
}

// marshalJSON marshals v to JSON, using indentation when debug mode is enabled
func (s *Server) marshalJSON(v any) ([]byte, error) {
	if s.debug {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

func (s *Server) debugf(format string, args ...any) {
	if s.debug {
		s.logger.Printf("[DEBUG] "+format, args...)
	}
}
