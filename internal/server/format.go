package server

import (
	"fmt"
	"strings"
	"unicode/utf8"

	opsv1 "github.com/zboralski/binja-mcp/binja/ops/v1"
)

// maxDetailWidth bounds type and value columns. Names and addresses are
// never cut: they are what the reader needs to call the next tool.
const maxDetailWidth = 48

const ellipsis = "…"

// escape replaces anything outside printable ASCII with \xNN.
func escape(s string) string {
	return escapeKeep(s, "")
}

// escapeText is escape for multi-line bodies; newlines and tabs survive.
func escapeText(s string) string {
	return escapeKeep(s, "\n\t")
}

func escapeKeep(s, keep string) string {
	clean := true
	for i := 0; i < len(s); i++ {
		if c := s[i]; c < 0x20 || c > 0x7e {
			if strings.IndexByte(keep, c) < 0 {
				clean = false
				break
			}
		}
	}
	if clean {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	for _, r := range s {
		switch {
		case r >= 0x20 && r < 0x7f, r < utf8.RuneSelf && strings.ContainsRune(keep, r):
			b.WriteRune(r)
		default:
			fmt.Fprintf(&b, `\x%02x`, r)
		}
	}
	return b.String()
}

// truncate shortens s to at most width runes, marking the cut.
func truncate(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	runes := []rune(s)
	return string(runes[:width-1]) + ellipsis
}

// detail escapes and truncates a type or value column. The ellipsis itself
// is not escaped.
func detail(s string) string {
	short := truncate(s, maxDetailWidth)
	if short == s {
		return escape(s)
	}
	return escape(strings.TrimSuffix(short, ellipsis)) + ellipsis
}

// pageHeader summarises the window a listing returned, e.g.
// "functions 0-2 of 2" or "imports 100-200 of 512 (next offset 200)".
func pageHeader(noun string, page *opsv1.Page) string {
	if page == nil {
		return noun
	}
	if page.Count == 0 {
		return fmt.Sprintf("%s: none at offset %d of %d", noun, page.Offset, page.Total)
	}
	end := page.Offset + page.Count
	h := fmt.Sprintf("%s %d-%d of %d", noun, page.Offset, end, page.Total)
	if end < page.Total {
		h += fmt.Sprintf(" (next offset %d)", end)
	}
	return h
}

type table struct {
	b strings.Builder
}

func newTable(header string) *table {
	t := &table{}
	t.b.WriteString(header)
	return t
}

func (t *table) row(cols ...string) {
	t.b.WriteByte('\n')
	for i, c := range cols {
		if c == "" {
			continue
		}
		if i > 0 {
			t.b.WriteString("  ")
		}
		t.b.WriteString(c)
	}
}

func (t *table) String() string { return t.b.String() }

func formatNames(noun string, p *opsv1.Payload) string {
	t := newTable(pageHeader(noun, p.Page))
	for _, n := range p.Names {
		t.row(escape(n))
	}
	return t.String()
}

func formatSymbols(noun string, p *opsv1.Payload) string {
	t := newTable(pageHeader(noun, p.Page))
	for _, s := range p.Symbols {
		t.row(s.Address, escape(s.Name))
	}
	return t.String()
}

func formatDataItems(p *opsv1.Payload) string {
	t := newTable(pageHeader("data items", p.Page))
	for _, d := range p.DataItems {
		var typ, val string
		if d.Type != "" {
			typ = detail(d.Type)
		}
		if d.Value != "" {
			val = "= " + detail(d.Value)
		}
		t.row(d.Address, escape(d.Name), typ, val)
	}
	return t.String()
}

func formatSegments(p *opsv1.Payload) string {
	t := newTable(pageHeader("segments", p.Page))
	for _, s := range p.Segments {
		t.row(s.Start+"-"+s.End, s.Permissions)
	}
	return t.String()
}

func formatStatus(p *opsv1.Payload) string {
	st := p.Status
	if st == nil || !st.Loaded {
		return "no binary loaded"
	}
	analysis := "in progress"
	if st.AnalysisComplete {
		analysis = "complete"
	}
	return fmt.Sprintf("loaded: %s\nanalysis: %s", escape(st.Filename), analysis)
}

func formatFunction(fn *opsv1.FunctionInfo) string {
	if fn == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s", fn.Address, escape(fn.Name))
	if fn.RawName != "" && fn.RawName != fn.Name {
		fmt.Fprintf(&b, "\nraw name: %s", escape(fn.RawName))
	}
	if fn.SymbolType != "" {
		fmt.Fprintf(&b, "\nsymbol type: %s", escape(fn.SymbolType))
	}
	return b.String()
}

func formatDecompiled(p *opsv1.Payload) string {
	if p.Function == nil {
		return escapeText(p.Text)
	}
	return fmt.Sprintf("// %s @ %s\n%s", escape(p.Function.Name), p.Function.Address, escapeText(p.Text))
}

func formatComment(subject string, text string) string {
	if text == "" {
		return subject + ": no comment"
	}
	return subject + ":\n" + escapeText(text)
}
