package server

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	opsv1 "github.com/zboralski/binja-mcp/binja/ops/v1"
)

func TestEscape(t *testing.T) {
	assert.Equal(t, "plain_name", escape("plain_name"))
	assert.Equal(t, `caf\xe9`, escape("café"))
	assert.Equal(t, `a\x09b\x0a`, escape("a\tb\n"))
	assert.Equal(t, "line one\n\tline two", escapeText("line one\n\tline two"))
	assert.Equal(t, `x\x00`, escapeText("x\x00"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	long := strings.Repeat("é", 60)
	got := truncate(long, maxDetailWidth)
	assert.Equal(t, maxDetailWidth, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, ellipsis))
}

func TestPageHeader(t *testing.T) {
	assert.Equal(t, "functions", pageHeader("functions", nil))
	assert.Equal(t, "functions 0-2 of 2", pageHeader("functions", &opsv1.Page{Total: 2, Offset: 0, Count: 2, Limit: 100}))
	assert.Equal(t, "imports 100-200 of 512 (next offset 200)", pageHeader("imports", &opsv1.Page{Total: 512, Offset: 100, Count: 100, Limit: 100}))
	assert.Equal(t, "exports: none at offset 10 of 3", pageHeader("exports", &opsv1.Page{Total: 3, Offset: 10}))
}

func TestDataItemsKeepIdentity(t *testing.T) {
	name := "g_" + strings.Repeat("very_long_label_", 8)
	p := &opsv1.Payload{
		DataItems: []opsv1.DataItem{
			{Address: "0x5000", Name: name, Type: "char[256]", Value: strings.Repeat("A", 200)},
			{Address: "0x5100", Name: "(unnamed)"},
		},
		Page: &opsv1.Page{Total: 2, Count: 2, Limit: 100},
	}
	lines := strings.Split(formatDataItems(p), "\n")
	assert.Len(t, lines, 3)
	assert.Equal(t, "data items 0-2 of 2", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "0x5000  "+name+"  char[256]  = "))
	assert.True(t, strings.HasSuffix(lines[1], ellipsis))
	assert.NotContains(t, lines[1], strings.Repeat("A", maxDetailWidth))
	assert.Equal(t, "0x5100  (unnamed)", lines[2])
}

func TestFormatSymbolsEscapesNames(t *testing.T) {
	p := &opsv1.Payload{
		Symbols: []opsv1.Symbol{{Name: "fn_ü", Address: "0x10"}},
		Page:    &opsv1.Page{Total: 1, Count: 1, Limit: 100},
	}
	assert.Equal(t, "exports 0-1 of 1\n0x10  fn_\\xfc", formatSymbols("exports", p))
}

func TestFormatFunction(t *testing.T) {
	fn := &opsv1.FunctionInfo{Name: "main", RawName: "_main", Address: "0x400", SymbolType: "FunctionSymbol"}
	assert.Equal(t, "0x400  main\nraw name: _main\nsymbol type: FunctionSymbol", formatFunction(fn))
	assert.Equal(t, "0x400  main", formatFunction(&opsv1.FunctionInfo{Name: "main", RawName: "main", Address: "0x400"}))
}

func TestFormatStatus(t *testing.T) {
	assert.Equal(t, "no binary loaded", formatStatus(&opsv1.Payload{}))
	assert.Equal(t, "loaded: a.out\nanalysis: in progress",
		formatStatus(&opsv1.Payload{Status: &opsv1.BinaryStatus{Loaded: true, Filename: "a.out"}}))
}
