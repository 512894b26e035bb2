package parser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ormasoftchile/rbdoctor/pkg/ast"
)

const sample = `addon "evm" {
  chain_id = input.chain_id
}

signer "deployer" "evm::secret_key" {
  secret_key = input.deployer_key
}

action "send" "evm::send_eth" {
  value     = "1000"
  recipient = evm::address(env.recipient)
  signer    = signer.deployer
}

output "tx" {
  value = action.send.tx_hash
}
`

func TestParse_Blocks(t *testing.T) {
	rb, err := Parse("main.tx", []byte(sample))
	require.NoError(t, err)
	require.Len(t, rb.Blocks, 4)

	kinds := []ast.BlockKind{ast.KindAddon, ast.KindSigner, ast.KindAction, ast.KindOutput}
	for i, k := range kinds {
		assert.Equal(t, k, rb.Blocks[i].Kind, "block %d", i)
	}

	action := rb.Find(ast.KindAction, "send")
	require.NotNil(t, action)
	assert.Equal(t, "evm::send_eth", action.Label)
	assert.Equal(t, []string{"value", "recipient", "signer"}, action.Keys())
	assert.Equal(t, 9, action.Line())
	require.NotNil(t, action.LabelSpan)
	assert.Equal(t, 9, action.LabelSpan.StartLine)
}

func TestParse_Expressions(t *testing.T) {
	rb, err := Parse("main.tx", []byte(sample))
	require.NoError(t, err)

	action := rb.Find(ast.KindAction, "send")
	value, _ := action.Attr("value")
	assert.Equal(t, &ast.String{Value: "1000", Span: value.Value.Pos()}, value.Value)

	recipient, _ := action.Attr("recipient")
	call, ok := recipient.Value.(*ast.FunctionCall)
	require.True(t, ok, "expected function call, got %T", recipient.Value)
	assert.Equal(t, "evm::address", call.Name)
	require.Len(t, call.Args, 1)
	ref, ok := call.Args[0].(*ast.Reference)
	require.True(t, ok)
	assert.Equal(t, []string{"env", "recipient"}, ref.Path)
	require.NotNil(t, ref.Span)
	assert.Equal(t, 11, ref.Span.StartLine)
	assert.Equal(t, 28, ref.Span.StartCol)
}

func TestParse_Literals(t *testing.T) {
	src := `variable "v" {
  n    = 42
  f    = 1.5
  b    = true
  list = [1, "two", variable.other]
  obj  = { key = "v", nested = action.a.b }
  tmpl = "prefix-${input.suffix}"
  cond = input.flag ? 1 : 2
}
`
	rb, err := Parse("v.tx", []byte(src))
	require.NoError(t, err)
	b := rb.Blocks[0]

	n, _ := b.Attr("n")
	assert.Equal(t, "42", n.Value.(*ast.Number).Value)
	f, _ := b.Attr("f")
	assert.Equal(t, "1.5", f.Value.(*ast.Number).Value)
	bv, _ := b.Attr("b")
	assert.True(t, bv.Value.(*ast.Bool).Value)

	list, _ := b.Attr("list")
	arr := list.Value.(*ast.Array)
	require.Len(t, arr.Items, 3)
	assert.Equal(t, "variable.other", arr.Items[2].(*ast.Reference).Dotted())

	obj, _ := b.Attr("obj")
	o := obj.Value.(*ast.Object)
	require.Len(t, o.Entries, 2)
	assert.Equal(t, "key", o.Entries[0].Key)
	assert.Equal(t, "nested", o.Entries[1].Key)

	tmpl, _ := b.Attr("tmpl")
	refs := ast.References(tmpl.Value)
	require.Len(t, refs, 1)
	assert.Equal(t, "input.suffix", refs[0].Dotted())

	cond, _ := b.Attr("cond")
	refs = ast.References(cond.Value)
	require.Len(t, refs, 1)
	assert.Equal(t, "input.flag", refs[0].Dotted())
}

func TestParse_IndexedTraversalStopsAtNumericIndex(t *testing.T) {
	rb, err := Parse("i.tx", []byte(`output "o" {
  value = action.deploy.logs[0].data
}
`))
	require.NoError(t, err)
	v, _ := rb.Blocks[0].Attr("value")
	assert.Equal(t, []string{"action", "deploy", "logs"}, v.Value.(*ast.Reference).Path)
}

func TestParse_NestedBlocks(t *testing.T) {
	rb, err := Parse("n.tx", []byte(`action "call" "evm::call_contract_function" {
  contract_address = input.contract
  abi {
    name = variable.abi_name
  }
}
`))
	require.NoError(t, err)
	b := rb.Blocks[0]
	require.Len(t, b.Nested, 1)
	assert.Equal(t, ast.BlockKind("abi"), b.Nested[0].Kind)
}

func TestParse_SyntaxError(t *testing.T) {
	_, err := Parse("bad.tx", []byte("action \"x\" {\n  value = \n"))
	require.Error(t, err)

	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "bad.tx", perr.File)
	assert.Greater(t, perr.Line, 0)
}

func TestParse_UnknownBlockType(t *testing.T) {
	_, err := Parse("u.tx", []byte("resource \"x\" {}\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported block type "resource"`)
}

func TestParse_MissingName(t *testing.T) {
	_, err := Parse("m.tx", []byte("output {}\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output block requires a name label")
}

func TestParse_TopLevelAttribute(t *testing.T) {
	_, err := Parse("a.tx", []byte("x = 1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unexpected top-level attribute "x"`)
}

func TestError_MessageOmitsLocation(t *testing.T) {
	e := &Error{File: "a.tx", Line: 3, Column: 5, Summary: "Invalid expression", Detail: "Expected a value."}
	assert.Equal(t, "Invalid expression; Expected a value.", e.Message())
	assert.Equal(t, "a.tx:3,5: Invalid expression; Expected a value.", e.Error())
	assert.Equal(t, "b.tx: unexpected body type", (&Error{File: "b.tx", Summary: "unexpected body type"}).Error())
}
