package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T) *Program {
	t.Helper()
	prog, err := LoadSnapshot("testdata/program.yaml")
	require.NoError(t, err)
	return prog
}

func TestParseAddress(t *testing.T) {
	cases := map[string]Address{
		"0x1000": 0x1000,
		"0X1f":   0x1f,
		"4096":   4096,
		" 0x10 ": 0x10,
	}
	for in, want := range cases {
		got, err := ParseAddress(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "0x", "zz", "-1", "0xg1"} {
		_, err := ParseAddress(bad)
		assert.ErrorIs(t, err, ErrInvalidAddress, bad)
	}
}

func TestParseHexAddress(t *testing.T) {
	cases := map[string]Address{
		"0x5000": 0x5000,
		"5000":   0x5000,
		"dead":   0xdead,
		" 0XfF ": 0xff,
	}
	for in, want := range cases {
		got, err := ParseHexAddress(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "0x", "zz", "-1", "0xg1"} {
		_, err := ParseHexAddress(bad)
		assert.ErrorIs(t, err, ErrInvalidAddress, bad)
	}
}

func TestLoadSnapshotYAML(t *testing.T) {
	prog := loadFixture(t)
	assert.Equal(t, "/samples/crackme.elf", prog.Filename)
	assert.True(t, prog.AnalysisComplete)

	fns := prog.Functions()
	require.Len(t, fns, 4)
	assert.Equal(t, "_start", fns[0].Name)
	assert.Equal(t, Address(0xf00), fns[0].Entry)
	assert.Equal(t, "sub_1000", fns[1].RawName)

	segs := prog.Segments()
	require.Len(t, segs, 3)
	assert.Equal(t, "r-x", segs[0].Permissions())
	assert.Equal(t, "rw-", segs[1].Permissions())

	c, err := prog.Comment(0x1000)
	require.NoError(t, err)
	assert.Equal(t, "entry helper", c)
}

func TestLoadSnapshotJSONC(t *testing.T) {
	prog, err := LoadSnapshot("testdata/program.jsonc")
	require.NoError(t, err)
	assert.False(t, prog.AnalysisComplete)
	fn, ok := prog.FunctionAt(0x500)
	require.True(t, ok)
	assert.Equal(t, "helper", fn.Name)
	assert.Equal(t, "r-x", prog.Segments()[0].Permissions())
}

func TestParseSnapshotRejectsUnknownFormat(t *testing.T) {
	_, err := ParseSnapshot([]byte("{}"), "xml")
	assert.Error(t, err)
}

func TestRenameFunction(t *testing.T) {
	prog := loadFixture(t)

	require.NoError(t, prog.RenameFunction(0x1000, "main"))
	_, ok := prog.FunctionByName("sub_1000")
	assert.False(t, ok)
	fn, ok := prog.FunctionByName("main")
	require.True(t, ok)
	assert.Equal(t, Address(0x1000), fn.Entry)

	// the export at the same address follows the rename
	var exported []string
	for _, sym := range prog.Exports() {
		exported = append(exported, sym.Name)
	}
	assert.Equal(t, []string{"_start", "main"}, exported)

	// renaming onto itself is fine
	assert.NoError(t, prog.RenameFunction(0x1000, "main"))
}

func TestRenameFunctionConflict(t *testing.T) {
	prog := loadFixture(t)
	err := prog.RenameFunction(0x1000, "sub_2000")
	assert.ErrorIs(t, err, ErrConflict)
	err = prog.RenameFunction(0x1000, "g_counter")
	assert.ErrorIs(t, err, ErrConflict)
	err = prog.RenameFunction(0x1000, "puts")
	assert.ErrorIs(t, err, ErrConflict)

	fn, ok := prog.FunctionAt(0x1000)
	require.True(t, ok)
	assert.Equal(t, "sub_1000", fn.Name)
}

func TestRenameData(t *testing.T) {
	prog := loadFixture(t)
	require.NoError(t, prog.RenameData(0x5000, "g_hits"))
	assert.Equal(t, "g_hits", prog.DataVars()[0].Name)

	assert.ErrorIs(t, prog.RenameData(0x5008, "unnamed"), ErrNotFound)
	assert.ErrorIs(t, prog.RenameData(0x9999, "nowhere"), ErrNotFound)
	assert.ErrorIs(t, prog.RenameData(0x5000, "sub_2000"), ErrConflict)
}

func TestFunctionByNameFold(t *testing.T) {
	prog := NewProgram("x")
	require.NoError(t, prog.AddFunction(Function{Name: "Main", Entry: 1}))
	fn, ok := prog.FunctionByNameFold("main")
	require.True(t, ok)
	assert.Equal(t, "Main", fn.Name)

	require.NoError(t, prog.AddFunction(Function{Name: "MAIN", Entry: 2}))
	_, ok = prog.FunctionByNameFold("main")
	assert.False(t, ok, "ambiguous fold match must not resolve")
}

func TestNamespacesAndClasses(t *testing.T) {
	prog := loadFixture(t)
	assert.Equal(t, []string{"Crypto", "Crypto::Cipher"}, prog.Namespaces())
	assert.Equal(t, []string{"Aes", "Crypto::Cipher"}, prog.Classes())
}

func TestDecompile(t *testing.T) {
	prog := loadFixture(t)
	fn, _ := prog.FunctionByName("sub_2000")
	text, err := prog.Decompile(fn)
	require.NoError(t, err)
	assert.Contains(t, text, "puts")

	fn, _ = prog.FunctionByName("Crypto::Cipher::init")
	_, err = prog.Decompile(fn)
	assert.ErrorIs(t, err, ErrDecompilationFailed)
}

func TestComments(t *testing.T) {
	prog := loadFixture(t)
	require.NoError(t, prog.SetComment(0x5000, "hot counter"))
	c, err := prog.Comment(0x5000)
	require.NoError(t, err)
	assert.Equal(t, "hot counter", c)

	require.NoError(t, prog.SetComment(0x5000, ""))
	c, _ = prog.Comment(0x5000)
	assert.Empty(t, c)

	assert.ErrorIs(t, prog.SetComment(0x9000, "x"), ErrInvalidAddress)
	_, err = prog.Comment(0x9000)
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestAddDuplicate(t *testing.T) {
	prog := NewProgram("x")
	require.NoError(t, prog.AddFunction(Function{Name: "a", Entry: 1}))
	assert.ErrorIs(t, prog.AddFunction(Function{Name: "b", Entry: 1}), ErrDuplicate)
	assert.Error(t, prog.AddSegment(Segment{Start: 10, End: 10}))
}
