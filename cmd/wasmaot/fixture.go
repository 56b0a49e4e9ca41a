package main

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"

	"github.com/Thihup/teavm/classmodel"
	"github.com/Thihup/teavm/exprtree"
)

// fixtureProgram is the on-disk shape of a class-universe fixture: enough of
// classmodel's data model, spelled out as plain JSON, to build an InMemory
// ClassUniverse without a real front end.
type fixtureProgram struct {
	Classes     []fixtureClass               `json:"classes"`
	EntryPoints map[string]fixtureMethodRef  `json:"entryPoints,omitempty"`
}

type fixtureAnnotation struct {
	Values map[string]string `json:"values,omitempty"`
}

type fixtureField struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Static bool   `json:"static,omitempty"`
}

type fixtureMethod struct {
	Name        string                       `json:"name"`
	Params      []string                     `json:"params,omitempty"`
	Return      string                       `json:"return,omitempty"`
	Native      bool                         `json:"native,omitempty"`
	Static      bool                         `json:"static,omitempty"`
	Abstract    bool                         `json:"abstract,omitempty"`
	Annotations map[string]fixtureAnnotation `json:"annotations,omitempty"`
	Locals      []string                     `json:"locals,omitempty"`
	Body        *fixtureNode                 `json:"body,omitempty"`
}

type fixtureClass struct {
	Name        string                       `json:"name"`
	Super       string                       `json:"super,omitempty"`
	Interfaces  []string                     `json:"interfaces,omitempty"`
	IsInterface bool                         `json:"isInterface,omitempty"`
	IsStructure bool                         `json:"isStructure,omitempty"`
	Fields      []fixtureField               `json:"fields,omitempty"`
	Methods     []fixtureMethod              `json:"methods,omitempty"`
	Annotations map[string]fixtureAnnotation `json:"annotations,omitempty"`
}

type fixtureMethodRef struct {
	Class  string   `json:"class"`
	Name   string   `json:"name"`
	Params []string `json:"params,omitempty"`
	Return string   `json:"return,omitempty"`
}

// fixtureNode is the tagged-variant wire shape of one exprtree.Node, mirroring
// the "Type"-hint-plus-payload convention OPA's ast.Term JSON codec uses for
// its own sum-typed Value field.
type fixtureNode struct {
	Kind string `json:"kind"`

	ConstInt   int64   `json:"const,omitempty"`
	ConstFloat float64 `json:"constf,omitempty"`
	Index      uint32  `json:"index,omitempty"`

	Class     string `json:"class,omitempty"`
	Owner     string `json:"owner,omitempty"`
	Field     string `json:"field,omitempty"`
	FieldSize int    `json:"fieldSize,omitempty"`

	Target   *fixtureMethodRef `json:"target,omitempty"`
	Receiver *fixtureNode      `json:"receiver,omitempty"`
	Args     []*fixtureNode    `json:"args,omitempty"`

	Value    *fixtureNode   `json:"value,omitempty"`
	Children []*fixtureNode `json:"children,omitempty"`

	Cond     *fixtureNode `json:"cond,omitempty"`
	Then     *fixtureNode `json:"then,omitempty"`
	Else     *fixtureNode `json:"else,omitempty"`
	LoopBody *fixtureNode `json:"loopBody,omitempty"`

	Op      string       `json:"op,omitempty"`
	NumType string       `json:"numType,omitempty"`
	Left    *fixtureNode `json:"left,omitempty"`
	Right   *fixtureNode `json:"right,omitempty"`
}

// loadFixture decodes a class-universe fixture and builds the InMemory
// universe and entry-point table it describes.
func loadFixture(r io.Reader) (*classmodel.InMemory, map[string]classmodel.MethodRef, error) {
	var prog fixtureProgram
	if err := json.NewDecoder(r).Decode(&prog); err != nil {
		return nil, nil, errors.Wrap(err, "decoding fixture")
	}

	universe := classmodel.NewInMemory()
	for _, fc := range prog.Classes {
		cd, err := convertClass(fc)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "class %s", fc.Name)
		}
		universe.Add(cd)
	}

	entryPoints := make(map[string]classmodel.MethodRef, len(prog.EntryPoints))
	for export, ref := range prog.EntryPoints {
		entryPoints[export] = classmodel.MethodRef{Class: ref.Class, Name: ref.Name, Params: ref.Params, Return: ref.Return}
	}
	return universe, entryPoints, nil
}

func convertClass(fc fixtureClass) (*classmodel.ClassDescriptor, error) {
	cd := &classmodel.ClassDescriptor{
		Name:        fc.Name,
		Super:       fc.Super,
		Interfaces:  fc.Interfaces,
		IsInterface: fc.IsInterface,
		IsStructure: fc.IsStructure,
		Annotations: convertAnnotations(fc.Annotations),
	}
	for _, ff := range fc.Fields {
		cd.Fields = append(cd.Fields, classmodel.FieldDescriptor{Name: ff.Name, Type: ff.Type, Static: ff.Static})
	}
	for _, fm := range fc.Methods {
		md, err := convertMethod(fc.Name, fm)
		if err != nil {
			return nil, errors.Wrapf(err, "method %s", fm.Name)
		}
		cd.Methods = append(cd.Methods, md)
	}
	return cd, nil
}

func convertAnnotations(in map[string]fixtureAnnotation) map[string]classmodel.Annotation {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]classmodel.Annotation, len(in))
	for name, a := range in {
		out[name] = classmodel.Annotation{Name: name, Values: a.Values}
	}
	return out
}

func convertMethod(owner string, fm fixtureMethod) (*classmodel.MethodDescriptor, error) {
	md := &classmodel.MethodDescriptor{
		Owner:       owner,
		Name:        fm.Name,
		Params:      fm.Params,
		Return:      fm.Return,
		Native:      fm.Native,
		Static:      fm.Static,
		Abstract:    fm.Abstract,
		Annotations: convertAnnotations(fm.Annotations),
	}
	if fm.Body != nil {
		tree, err := convertNode(fm.Body)
		if err != nil {
			return nil, err
		}
		md.Body = &exprtree.MethodBody{LocalTypes: convertLocalTypes(fm.Locals), Tree: tree}
	}
	return md, nil
}

func convertLocalTypes(in []string) []exprtree.LocalType {
	if len(in) == 0 {
		return nil
	}
	out := make([]exprtree.LocalType, len(in))
	for i, s := range in {
		out[i] = convertLocalType(s)
	}
	return out
}

// convertLocalType maps a single descriptor onto a LocalType, the same
// convention convertLocalTypes uses for a method's local-slot table: "J"
// (long), "F" (float), "D" (double), "ref" (object reference), defaulting to
// i32 for "I" and every other descriptor.
func convertLocalType(s string) exprtree.LocalType {
	switch s {
	case "J":
		return exprtree.LocalI64
	case "F":
		return exprtree.LocalF32
	case "D":
		return exprtree.LocalF64
	case "ref":
		return exprtree.LocalRef
	default:
		return exprtree.LocalI32
	}
}

func convertRef(t *fixtureMethodRef) exprtree.MethodRefLike {
	if t == nil {
		return exprtree.MethodRefLike{}
	}
	return exprtree.MethodRefLike{Class: t.Class, Name: t.Name, Params: t.Params, Return: t.Return}
}

func convertNodes(in []*fixtureNode) ([]exprtree.Node, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]exprtree.Node, len(in))
	for i, fn := range in {
		n, err := convertNode(fn)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

// convertNode recursively rebuilds one exprtree.Node from its wire shape,
// switching on the Kind discriminator the way ast.Term's UnmarshalJSON
// switches on its "Type" hint.
func convertNode(n *fixtureNode) (exprtree.Node, error) {
	if n == nil {
		return nil, nil
	}
	switch n.Kind {
	case "ConstInt":
		return exprtree.ConstInt{Value: int32(n.ConstInt)}, nil
	case "ConstLong":
		return exprtree.ConstLong{Value: n.ConstInt}, nil
	case "ConstFloat":
		return exprtree.ConstFloat{Value: float32(n.ConstFloat)}, nil
	case "ConstDouble":
		return exprtree.ConstDouble{Value: n.ConstFloat}, nil
	case "LocalGet":
		return exprtree.LocalGet{Index: n.Index}, nil
	case "LocalSet":
		v, err := convertNode(n.Value)
		if err != nil {
			return nil, err
		}
		return exprtree.LocalSet{Index: n.Index, Value: v}, nil
	case "FieldGet":
		r, err := convertNode(n.Receiver)
		if err != nil {
			return nil, err
		}
		return exprtree.FieldGet{Receiver: r, Owner: n.Owner, Field: n.Field, FieldTypeSz: n.FieldSize}, nil
	case "FieldSet":
		r, err := convertNode(n.Receiver)
		if err != nil {
			return nil, err
		}
		v, err := convertNode(n.Value)
		if err != nil {
			return nil, err
		}
		return exprtree.FieldSet{Receiver: r, Owner: n.Owner, Field: n.Field, Value: v, FieldTypeSz: n.FieldSize}, nil
	case "StaticGet":
		return exprtree.StaticGet{Owner: n.Owner, Field: n.Field, FieldTypeSz: n.FieldSize}, nil
	case "StaticSet":
		v, err := convertNode(n.Value)
		if err != nil {
			return nil, err
		}
		return exprtree.StaticSet{Owner: n.Owner, Field: n.Field, Value: v, FieldTypeSz: n.FieldSize}, nil
	case "New":
		return exprtree.New{Class: n.Class}, nil
	case "InvokeStatic":
		args, err := convertNodes(n.Args)
		if err != nil {
			return nil, err
		}
		return exprtree.InvokeStatic{Target: convertRef(n.Target), Args: args}, nil
	case "InvokeSpecial":
		r, err := convertNode(n.Receiver)
		if err != nil {
			return nil, err
		}
		args, err := convertNodes(n.Args)
		if err != nil {
			return nil, err
		}
		return exprtree.InvokeSpecial{Target: convertRef(n.Target), Receiver: r, Args: args}, nil
	case "InvokeVirtual":
		r, err := convertNode(n.Receiver)
		if err != nil {
			return nil, err
		}
		args, err := convertNodes(n.Args)
		if err != nil {
			return nil, err
		}
		return exprtree.InvokeVirtual{Target: convertRef(n.Target), Receiver: r, Args: args}, nil
	case "Block":
		children, err := convertNodes(n.Children)
		if err != nil {
			return nil, err
		}
		return exprtree.Block{Children: children}, nil
	case "If":
		cond, err := convertNode(n.Cond)
		if err != nil {
			return nil, err
		}
		then, err := convertNode(n.Then)
		if err != nil {
			return nil, err
		}
		els, err := convertNode(n.Else)
		if err != nil {
			return nil, err
		}
		return exprtree.If{Cond: cond, Then: then, Else: els}, nil
	case "Loop":
		body, err := convertNode(n.LoopBody)
		if err != nil {
			return nil, err
		}
		return exprtree.Loop{Body: body}, nil
	case "Break":
		return exprtree.Break{}, nil
	case "Drop":
		v, err := convertNode(n.Value)
		if err != nil {
			return nil, err
		}
		return exprtree.Drop{Value: v}, nil
	case "Return":
		return exprtree.Return{}, nil
	case "ReturnValue":
		v, err := convertNode(n.Value)
		if err != nil {
			return nil, err
		}
		return exprtree.ReturnValue{Value: v}, nil
	case "BinOp":
		l, err := convertNode(n.Left)
		if err != nil {
			return nil, err
		}
		r, err := convertNode(n.Right)
		if err != nil {
			return nil, err
		}
		return exprtree.BinOp{Op: n.Op, Type: convertLocalType(n.NumType), Left: l, Right: r}, nil
	case "UnOp":
		v, err := convertNode(n.Value)
		if err != nil {
			return nil, err
		}
		return exprtree.UnOp{Op: n.Op, Type: convertLocalType(n.NumType), Value: v}, nil
	default:
		return nil, errors.Errorf("unknown expression node kind %q", n.Kind)
	}
}
