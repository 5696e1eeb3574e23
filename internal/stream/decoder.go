// Package stream decodes a top-level JSON array one element at a time.
package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrNotArray indicates the document root is not a JSON array.
	ErrNotArray = errors.New("top-level JSON value is not an array")

	// ErrTrailingData indicates content after the closing bracket.
	ErrTrailingData = errors.New("unexpected data after top-level array")

	// ErrEmpty indicates the array has no elements.
	ErrEmpty = errors.New("array contains no elements")
)

// DecodeError is a syntax or I/O failure while reading the document.
type DecodeError struct {
	Offset int64
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode JSON at offset %d: %v", e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ArrayDecoder yields the elements of a top-level JSON array. Only the
// element being decoded is held in memory. Numbers decode as json.Number.
//
// Errors are sticky: once Next fails, every later call returns the same error.
type ArrayDecoder struct {
	dec     *json.Decoder
	started bool
	count   int
	err     error
}

// NewArrayDecoder returns a decoder reading from r.
func NewArrayDecoder(r io.Reader) *ArrayDecoder {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return &ArrayDecoder{dec: dec}
}

// Next returns the next element, or io.EOF after the closing bracket.
func (d *ArrayDecoder) Next() (any, error) {
	var v any
	if err := d.next(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// NextRaw is like Next but returns the element's undecoded JSON text.
func (d *ArrayDecoder) NextRaw() (json.RawMessage, error) {
	var raw json.RawMessage
	if err := d.next(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (d *ArrayDecoder) next(dst any) error {
	if d.err != nil {
		return d.err
	}
	if !d.started {
		if err := d.open(); err != nil {
			d.err = err
			return err
		}
		d.started = true
	}

	if d.dec.More() {
		if err := d.dec.Decode(dst); err != nil {
			d.err = d.wrap(err)
			return d.err
		}
		d.count++
		return nil
	}

	d.err = d.close()
	return d.err
}

// Count returns the number of elements decoded so far.
func (d *ArrayDecoder) Count() int {
	return d.count
}

// InputOffset returns the byte offset of the decoder in the input.
func (d *ArrayDecoder) InputOffset() int64 {
	return d.dec.InputOffset()
}

func (d *ArrayDecoder) open() error {
	tok, err := d.dec.Token()
	if err != nil {
		return d.wrap(err)
	}
	if delim, ok := tok.(json.Delim); ok && delim == '[' {
		return nil
	}
	return fmt.Errorf("%w: found %s", ErrNotArray, describe(tok))
}

// close consumes the closing bracket and checks nothing follows it.
func (d *ArrayDecoder) close() error {
	tok, err := d.dec.Token()
	if err != nil {
		return d.wrap(err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != ']' {
		return &DecodeError{Offset: d.dec.InputOffset(), Err: fmt.Errorf("unexpected token %v", tok)}
	}

	if _, err := d.dec.Token(); err != io.EOF {
		if err != nil {
			return d.wrap(err)
		}
		return ErrTrailingData
	}
	return io.EOF
}

// wrap converts decoder failures into DecodeError. A bare EOF inside the
// document is reported as io.ErrUnexpectedEOF.
func (d *ArrayDecoder) wrap(err error) error {
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	offset := d.dec.InputOffset()
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		offset = syntaxErr.Offset
	}
	return &DecodeError{Offset: offset, Err: err}
}

func describe(tok json.Token) string {
	switch v := tok.(type) {
	case json.Delim:
		if v == '{' {
			return "object"
		}
		return fmt.Sprintf("%q", string(v))
	case string:
		return "string"
	case json.Number, float64:
		return "number"
	case bool:
		return "boolean"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// First returns the first element of the array read from r.
func First(r io.Reader) (any, error) {
	v, err := NewArrayDecoder(r).Next()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmpty
	}
	return v, err
}

// FirstRaw returns the JSON text of the first element of the array read from r.
func FirstRaw(r io.Reader) (json.RawMessage, error) {
	raw, err := NewArrayDecoder(r).NextRaw()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmpty
	}
	return raw, err
}
