// Package structure describes the shape of a JSON value.
//
// A description mirrors one sample value: objects list their fields in
// document order, arrays are described by their first element only, and
// every scalar is reduced to its kind. It is not a schema across samples.
package structure

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/raphaelgruber/chatdb-go/internal/stream"
)

// Kind is the JSON type of a value.
type Kind string

const (
	KindBoolean Kind = "boolean"
	KindInteger Kind = "integer"
	KindFloat   Kind = "float"
	KindString  Kind = "string"
	KindArray   Kind = "array"
	KindObject  Kind = "object"
	KindNull    Kind = "null"
)

// Node is the shape of one value.
type Node struct {
	Kind Kind
	// Fields holds an object's members in document order.
	Fields []Field
	// Elem describes the first element of an array; nil for an empty array.
	Elem *Node
}

// Field is one object member.
type Field struct {
	Name string
	Node *Node
}

// Field returns the member called name, or nil.
func (n *Node) Field(name string) *Node {
	for _, f := range n.Fields {
		if f.Name == name {
			return f.Node
		}
	}
	return nil
}

// Infer describes an already decoded value. Go maps carry no order, so object
// fields come out sorted by name; use Read to keep document order. Infer
// panics on Go types that encoding/json never produces.
func Infer(v any) *Node {
	switch v := v.(type) {
	case nil:
		return &Node{Kind: KindNull}
	case bool:
		return &Node{Kind: KindBoolean}
	case json.Number:
		return &Node{Kind: numberKind(v.String())}
	case float64:
		if v == float64(int64(v)) {
			return &Node{Kind: KindInteger}
		}
		return &Node{Kind: KindFloat}
	case int, int64:
		return &Node{Kind: KindInteger}
	case string:
		return &Node{Kind: KindString}
	case []any:
		n := &Node{Kind: KindArray}
		if len(v) > 0 {
			n.Elem = Infer(v[0])
		}
		return n
	case map[string]any:
		names := make([]string, 0, len(v))
		for name := range v {
			names = append(names, name)
		}
		sort.Strings(names)

		n := &Node{Kind: KindObject, Fields: make([]Field, 0, len(names))}
		for _, name := range names {
			n.Fields = append(n.Fields, Field{Name: name, Node: Infer(v[name])})
		}
		return n
	default:
		panic(fmt.Sprintf("structure: unsupported type %T", v))
	}
}

// Read describes the single JSON value read from r, keeping object fields in
// document order.
func Read(r io.Reader) (*Node, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	n, err := readValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, stream.ErrTrailingData
	}
	return n, nil
}

// First describes the first element of the JSON array read from r.
func First(r io.Reader) (*Node, error) {
	raw, err := stream.FirstRaw(r)
	if err != nil {
		return nil, err
	}
	return Read(bytes.NewReader(raw))
}

func readValue(dec *json.Decoder) (*Node, error) {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}

	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			return readObject(dec)
		case '[':
			return readArray(dec)
		}
		return nil, fmt.Errorf("unexpected %q", rune(v))
	case nil:
		return &Node{Kind: KindNull}, nil
	case bool:
		return &Node{Kind: KindBoolean}, nil
	case json.Number:
		return &Node{Kind: numberKind(v.String())}, nil
	case string:
		return &Node{Kind: KindString}, nil
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

func readObject(dec *json.Decoder) (*Node, error) {
	n := &Node{Kind: KindObject, Fields: []Field{}}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, _ := tok.(string)
		child, err := readValue(dec)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		n.Fields = append(n.Fields, Field{Name: name, Node: child})
	}
	_, err := dec.Token() // }
	return n, err
}

func readArray(dec *json.Decoder) (*Node, error) {
	n := &Node{Kind: KindArray}
	if dec.More() {
		elem, err := readValue(dec)
		if err != nil {
			return nil, fmt.Errorf("[0]: %w", err)
		}
		n.Elem = elem
	}
	for dec.More() {
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	_, err := dec.Token() // ]
	return n, err
}

// numberKind tells integers from floats by their literal, so 1.0 is a float.
func numberKind(lit string) Kind {
	if strings.ContainsAny(lit, ".eE") {
		return KindFloat
	}
	return KindInteger
}

// MarshalJSON renders scalars as their kind name, arrays as a one-element
// list (or "array" when empty), and objects with fields in order.
func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := n.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (n *Node) writeJSON(buf *bytes.Buffer) error {
	switch {
	case n.Kind == KindObject:
		buf.WriteByte('{')
		for i, f := range n.Fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			name, err := json.Marshal(f.Name)
			if err != nil {
				return err
			}
			buf.Write(name)
			buf.WriteByte(':')
			if err := f.Node.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case n.Kind == KindArray && n.Elem != nil:
		buf.WriteByte('[')
		if err := n.Elem.writeJSON(buf); err != nil {
			return err
		}
		buf.WriteByte(']')
	default:
		fmt.Fprintf(buf, "%q", n.Kind)
	}
	return nil
}

// MarshalYAML renders the same layout as MarshalJSON.
func (n *Node) MarshalYAML() (any, error) {
	return n.yamlNode(), nil
}

func (n *Node) yamlNode() *yaml.Node {
	switch {
	case n.Kind == KindObject:
		out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, f := range n.Fields {
			out.Content = append(out.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.Name},
				f.Node.yamlNode())
		}
		return out
	case n.Kind == KindArray && n.Elem != nil:
		return &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Content: []*yaml.Node{n.Elem.yamlNode()}}
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: string(n.Kind)}
	}
}
