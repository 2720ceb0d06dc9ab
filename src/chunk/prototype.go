// Package chunk holds function prototypes, the compiled form of a function body,
// and the decoders and encoders that move them in and out of bytes.
package chunk

import (
	"bytes"
	"fmt"
	"strconv"
	"text/template"

	"github.com/tanema/lvm/src/bytecode"
)

type (
	// Upvalue describes where a closure finds a captured variable when it is
	// created: in a register of the enclosing frame or in the enclosing closure's
	// own upvalues.
	Upvalue struct {
		Name      string
		FromStack bool
		Index     uint8
	}
	// LocVar is debug information for a local variable and the range of pcs it
	// is active.
	LocVar struct {
		Name    string
		StartPC int
		EndPC   int
	}
	// Prototype is the compiled representation of one function body. It is created
	// once by a loader and only read after that.
	Prototype struct {
		Source          string
		LineDefined     int64
		LastLineDefined int64
		NumParams       uint8
		IsVararg        bool
		MaxStackSize    uint8
		Code            []uint32
		Constants       []any // nil, bool, int64, float64 or string
		Upvalues        []Upvalue
		Protos          []*Prototype
		LineInfo        []int64
		LocVars         []LocVar
	}
)

const protoTemplate = `{{.Kind}} <{{.Source}}:{{.LineDefined}},{{.LastLineDefined}}> ({{len .Code}} instructions)
{{.NumParams}}{{if .IsVararg}}+{{end}} params, {{.MaxStackSize}} slots, {{len .Upvalues}} upvalues, {{len .LocVars}} locals, {{len .Constants}} constants, {{len .Protos}} functions
{{- range $i, $code := .Code}}
	{{inc $i}}	[{{line $i}}]	{{$code | inst}}{{meta $i $code}}
{{- end}}
constants ({{len .Constants}}):
{{- range $i, $k := .Constants}}
	{{inc $i}}	{{konst $k}}
{{- end}}
locals ({{len .LocVars}}):
{{- range $i, $l := .LocVars}}
	{{$i}}	{{$l.Name}}	{{inc $l.StartPC}}	{{inc $l.EndPC}}
{{- end}}
upvalues ({{len .Upvalues}}):
{{- range $i, $u := .Upvalues}}
	{{$i}}	{{$u.Name}}	{{if $u.FromStack}}1{{else}}0{{end}}	{{$u.Index}}
{{- end}}
{{- range .Protos}}

{{. -}}
{{end}}
`

// Kind is either main for the top level chunk, or function for nested prototypes.
func (p *Prototype) Kind() string {
	if p.LineDefined == 0 {
		return "main"
	}
	return "function"
}

// GetConst gets a constant, nil if the index is out of range.
func (p *Prototype) GetConst(idx int64) any {
	if idx < 0 || int(idx) >= len(p.Constants) {
		return nil
	}
	return p.Constants[idx]
}

// Line returns the source line of an instruction or 0 if there is no line info.
func (p *Prototype) Line(pc int) int64 {
	if pc < 0 || pc >= len(p.LineInfo) {
		return 0
	}
	return p.LineInfo[pc]
}

// UpvalueName returns the debug name of an upvalue or a placeholder.
func (p *Prototype) UpvalueName(idx int64) string {
	if idx >= 0 && int(idx) < len(p.Upvalues) && p.Upvalues[idx].Name != "" {
		return p.Upvalues[idx].Name
	}
	return "?"
}

// String formats the prototype tree as a listing similar to luac -l.
func (p *Prototype) String() string {
	var buf bytes.Buffer
	tmpl := template.New("proto")
	tmpl.Funcs(map[string]any{
		"inc":   func(i int) int { return i + 1 },
		"line":  func(i int) int64 { return p.Line(i) },
		"inst":  bytecode.ToString,
		"konst": constString,
		"meta":  p.codeMeta,
	})
	tmpl = template.Must(tmpl.Parse(protoTemplate))
	if err := tmpl.Execute(&buf, p); err != nil {
		panic(err)
	}
	return buf.String()
}

func (p *Prototype) codeMeta(pc int, code uint32) string {
	op := bytecode.GetOp(code)
	switch op {
	case bytecode.LOADK:
		return "\t; " + constString(p.GetConst(bytecode.GetBx(code)))
	case bytecode.GETUPVAL, bytecode.SETUPVAL:
		return "\t; " + p.UpvalueName(bytecode.GetB(code))
	case bytecode.GETTABUP:
		return "\t; " + p.UpvalueName(bytecode.GetB(code)) + p.rkMeta(bytecode.GetC(code))
	case bytecode.SETTABUP:
		return "\t; " + p.UpvalueName(bytecode.GetA(code)) + p.rkMeta(bytecode.GetB(code)) + p.rkMeta(bytecode.GetC(code))
	case bytecode.JMP, bytecode.FORLOOP, bytecode.FORPREP, bytecode.TFORLOOP:
		return fmt.Sprintf("\t; to %v", bytecode.GetsBx(code)+int64(pc)+2)
	case bytecode.CALL:
		return fmt.Sprintf("\t; %s in %s out", optionVariable(bytecode.GetB(code)), optionVariable(bytecode.GetC(code)))
	case bytecode.TAILCALL:
		return fmt.Sprintf("\t; %s in all out", optionVariable(bytecode.GetB(code)))
	case bytecode.RETURN:
		return fmt.Sprintf("\t; %s out", optionVariable(bytecode.GetB(code)))
	}
	if bytecode.Kind(code) != bytecode.TypeABC {
		return ""
	}
	info := bytecode.Info[op]
	meta := ""
	if info.B == bytecode.OpArgK {
		meta += p.rkMeta(bytecode.GetB(code))
	}
	if info.C == bytecode.OpArgK {
		meta += p.rkMeta(bytecode.GetC(code))
	}
	if meta == "" {
		return ""
	}
	return "\t;" + meta
}

func (p *Prototype) rkMeta(x int64) string {
	if bytecode.IsK(x) {
		return " " + constString(p.GetConst(bytecode.IndexK(x)))
	}
	return " -"
}

func constString(k any) string {
	switch val := k.(type) {
	case nil:
		return "nil"
	case bool:
		return strconv.FormatBool(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', 14, 64)
	case string:
		return strconv.Quote(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func optionVariable(param int64) string {
	narg := (param - 1)
	if narg < 0 {
		return "all"
	}
	return strconv.FormatInt(narg, 10)
}
