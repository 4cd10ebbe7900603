// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rpc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

// maxValueDepth bounds nesting of decoded values so a hostile peer cannot
// exhaust the stack.
const maxValueDepth = 128

// maxPrealloc caps slice preallocation from untrusted length prefixes.
const maxPrealloc = 1024

// maxPayloadLen bounds str, bin and ext payloads read from the peer.
const maxPayloadLen = 64 << 20

// =============================================================================
// WRITER
// =============================================================================

// Writer encodes Messages onto a byte stream.
//
// Description:
//
//	Each Write encodes one complete frame into an internal buffer and
//	hands it to the underlying writer in a single Write call. A frame that
//	fails to encode never reaches the stream.
//
// Thread Safety:
//
//	Not safe for concurrent use. Client serialises access with its write
//	mutex.
type Writer struct {
	sink io.Writer
	buf  bytes.Buffer
	enc  *msgpack.Encoder
}

// NewWriter creates a Writer over w.
func NewWriter(w io.Writer) *Writer {
	wr := &Writer{sink: w}
	wr.enc = msgpack.NewEncoder(&wr.buf)
	return wr
}

// Write encodes one frame and writes it to the stream.
//
// Outputs:
//
//	error - Wraps ErrIO if the stream failed, ErrUnknownType for a nil
//	        or foreign Message, ErrMalformed for values nested too deep
func (w *Writer) Write(m Message) error {
	w.buf.Reset()
	if err := w.encode(m); err != nil {
		if errors.Is(err, ErrUnknownType) || errors.Is(err, ErrMalformed) || errors.Is(err, ErrUnsupportedType) {
			return err
		}
		return ioError(err)
	}
	if _, err := w.sink.Write(w.buf.Bytes()); err != nil {
		return ioError(err)
	}
	return nil
}

func (w *Writer) encode(m Message) error {
	e := w.enc
	switch msg := m.(type) {
	case *Request:
		if msg == nil {
			break
		}
		if err := e.EncodeArrayLen(4); err != nil {
			return err
		}
		if err := e.EncodeInt(int64(TypeRequest)); err != nil {
			return err
		}
		if err := e.EncodeUint(uint64(msg.ID)); err != nil {
			return err
		}
		if err := e.EncodeString(msg.Method); err != nil {
			return err
		}
		return encodeParams(e, msg.Params)
	case *Response:
		if msg == nil {
			break
		}
		if err := e.EncodeArrayLen(4); err != nil {
			return err
		}
		if err := e.EncodeInt(int64(TypeResponse)); err != nil {
			return err
		}
		if err := e.EncodeUint(uint64(msg.ID)); err != nil {
			return err
		}
		if err := encodeValue(e, msg.Error, 0); err != nil {
			return err
		}
		return encodeValue(e, msg.Result, 0)
	case *Notification:
		if msg == nil {
			break
		}
		if err := e.EncodeArrayLen(3); err != nil {
			return err
		}
		if err := e.EncodeInt(int64(TypeNotification)); err != nil {
			return err
		}
		if err := e.EncodeString(msg.Method); err != nil {
			return err
		}
		return encodeParams(e, msg.Params)
	}
	return fmt.Errorf("%w: %T", ErrUnknownType, m)
}

func encodeParams(e *msgpack.Encoder, params []Value) error {
	if err := e.EncodeArrayLen(len(params)); err != nil {
		return err
	}
	for _, p := range params {
		if err := encodeValue(e, p, 1); err != nil {
			return err
		}
	}
	return nil
}

func encodeValue(e *msgpack.Encoder, v Value, depth int) error {
	if depth > maxValueDepth {
		return fmt.Errorf("%w: value nested deeper than %d", ErrMalformed, maxValueDepth)
	}
	switch v.kind {
	case KindNil:
		return e.EncodeNil()
	case KindBool:
		return e.EncodeBool(v.bits == 1)
	case KindInt:
		return e.EncodeInt(int64(v.bits))
	case KindUint:
		return e.EncodeUint(v.bits)
	case KindFloat:
		return e.EncodeFloat64(math.Float64frombits(v.bits))
	case KindString:
		return e.EncodeString(v.str)
	case KindBinary:
		if err := e.EncodeBytesLen(len(v.bytes)); err != nil {
			return err
		}
		_, err := e.Writer().Write(v.bytes)
		return err
	case KindExt:
		if err := e.EncodeExtHeader(v.ext, len(v.bytes)); err != nil {
			return err
		}
		_, err := e.Writer().Write(v.bytes)
		return err
	case KindArray:
		if err := e.EncodeArrayLen(len(v.items)); err != nil {
			return err
		}
		for _, it := range v.items {
			if err := encodeValue(e, it, depth+1); err != nil {
				return err
			}
		}
		return nil
	case KindMap:
		if err := e.EncodeMapLen(len(v.pairs)); err != nil {
			return err
		}
		for _, p := range v.pairs {
			if err := encodeValue(e, p.Key, depth+1); err != nil {
				return err
			}
			if err := encodeValue(e, p.Value, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("%w: kind %s", ErrUnsupportedType, v.kind)
}

// =============================================================================
// READER
// =============================================================================

// Reader decodes Messages from a byte stream.
//
// Thread Safety:
//
//	Not safe for concurrent use. Exactly one goroutine (the Client's read
//	loop) owns a Reader.
type Reader struct {
	dec *msgpack.Decoder
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{dec: msgpack.NewDecoder(r)}
}

// Read blocks until one complete frame has been decoded.
//
// Description:
//
//	Decodes the next value from the stream and checks it against the frame
//	shape selected by its type tag. Extra elements beyond the fixed arity
//	are rejected because the arities are fixed by the protocol.
//
// Outputs:
//
//	Message - *Request, *Response or *Notification
//	error   - ErrMalformed, ErrUnknownType or ErrIO (wrapping io.EOF on a
//	          clean close)
func (r *Reader) Read() (Message, error) {
	v, err := decodeValue(r.dec, 0)
	if err != nil {
		return nil, err
	}
	return messageFromValue(v)
}

func messageFromValue(v Value) (Message, error) {
	items, ok := v.AsArray()
	if !ok {
		return nil, fmt.Errorf("%w: frame is %s, want array", ErrMalformed, v.Kind())
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: empty frame", ErrMalformed)
	}
	tag, ok := items[0].AsInt()
	if !ok {
		return nil, fmt.Errorf("%w: type tag is %s", ErrMalformed, items[0].Kind())
	}
	switch MessageType(tag) {
	case TypeRequest:
		if len(items) != 4 {
			return nil, arityError(TypeRequest, len(items), 4)
		}
		id, err := frameID(items[1])
		if err != nil {
			return nil, err
		}
		method, err := frameMethod(items[2])
		if err != nil {
			return nil, err
		}
		params, err := frameParams(items[3])
		if err != nil {
			return nil, err
		}
		return &Request{ID: id, Method: method, Params: params}, nil
	case TypeResponse:
		if len(items) != 4 {
			return nil, arityError(TypeResponse, len(items), 4)
		}
		id, err := frameID(items[1])
		if err != nil {
			return nil, err
		}
		return &Response{ID: id, Error: items[2], Result: items[3]}, nil
	case TypeNotification:
		if len(items) != 3 {
			return nil, arityError(TypeNotification, len(items), 3)
		}
		method, err := frameMethod(items[1])
		if err != nil {
			return nil, err
		}
		params, err := frameParams(items[2])
		if err != nil {
			return nil, err
		}
		return &Notification{Method: method, Params: params}, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownType, tag)
}

func arityError(t MessageType, got, want int) error {
	return fmt.Errorf("%w: %s has %d elements, want %d", ErrMalformed, t, got, want)
}

func frameID(v Value) (uint32, error) {
	n, ok := v.AsUint()
	if !ok || n > math.MaxUint32 {
		return 0, fmt.Errorf("%w: request id %s is not a uint32", ErrMalformed, v)
	}
	return uint32(n), nil
}

func frameMethod(v Value) (string, error) {
	s, ok := v.AsString()
	if !ok {
		return "", fmt.Errorf("%w: method is %s, want string", ErrMalformed, v.Kind())
	}
	return s, nil
}

func frameParams(v Value) ([]Value, error) {
	items, ok := v.AsArray()
	if !ok {
		return nil, fmt.Errorf("%w: params is %s, want array", ErrMalformed, v.Kind())
	}
	return items, nil
}

// decodeValue reads one value. Every read after the code has been peeked
// can only fail on the stream, so library errors map to ErrIO.
func decodeValue(d *msgpack.Decoder, depth int) (Value, error) {
	if depth > maxValueDepth {
		return Value{}, fmt.Errorf("%w: value nested deeper than %d", ErrMalformed, maxValueDepth)
	}
	c, err := d.PeekCode()
	if err != nil {
		return Value{}, ioError(err)
	}

	switch {
	case c == msgpcode.Nil:
		if err := d.DecodeNil(); err != nil {
			return Value{}, ioError(err)
		}
		return Nil(), nil
	case c == msgpcode.False || c == msgpcode.True:
		b, err := d.DecodeBool()
		if err != nil {
			return Value{}, ioError(err)
		}
		return Bool(b), nil
	case msgpcode.IsFixedNum(c), c == msgpcode.Int8, c == msgpcode.Int16,
		c == msgpcode.Int32, c == msgpcode.Int64:
		n, err := d.DecodeInt64()
		if err != nil {
			return Value{}, ioError(err)
		}
		return Int(n), nil
	case c == msgpcode.Uint8, c == msgpcode.Uint16, c == msgpcode.Uint32, c == msgpcode.Uint64:
		n, err := d.DecodeUint64()
		if err != nil {
			return Value{}, ioError(err)
		}
		return Uint(n), nil
	case c == msgpcode.Float, c == msgpcode.Double:
		f, err := d.DecodeFloat64()
		if err != nil {
			return Value{}, ioError(err)
		}
		return Float(f), nil
	case msgpcode.IsString(c):
		b, err := readPayload(d)
		if err != nil {
			return Value{}, err
		}
		return String(string(b)), nil
	case msgpcode.IsBin(c):
		b, err := readPayload(d)
		if err != nil {
			return Value{}, err
		}
		return Binary(b), nil
	case msgpcode.IsFixedArray(c), c == msgpcode.Array16, c == msgpcode.Array32:
		n, err := d.DecodeArrayLen()
		if err != nil {
			return Value{}, ioError(err)
		}
		items := make([]Value, 0, min(n, maxPrealloc))
		for i := 0; i < n; i++ {
			it, err := decodeValue(d, depth+1)
			if err != nil {
				return Value{}, err
			}
			items = append(items, it)
		}
		return Array(items...), nil
	case msgpcode.IsFixedMap(c), c == msgpcode.Map16, c == msgpcode.Map32:
		n, err := d.DecodeMapLen()
		if err != nil {
			return Value{}, ioError(err)
		}
		pairs := make([]MapEntry, 0, min(n, maxPrealloc))
		for i := 0; i < n; i++ {
			k, err := decodeValue(d, depth+1)
			if err != nil {
				return Value{}, err
			}
			v, err := decodeValue(d, depth+1)
			if err != nil {
				return Value{}, err
			}
			pairs = append(pairs, MapEntry{Key: k, Value: v})
		}
		return Map(pairs...), nil
	case msgpcode.IsExt(c):
		tag, n, err := d.DecodeExtHeader()
		if err != nil {
			return Value{}, ioError(err)
		}
		if n > maxPayloadLen {
			return Value{}, payloadError(n)
		}
		data := make([]byte, n)
		if err := d.ReadFull(data); err != nil {
			return Value{}, ioError(err)
		}
		return Ext(tag, data), nil
	}
	// 0xc1 is the only byte the format never assigns.
	return Value{}, fmt.Errorf("%w: invalid msgpack code 0x%02x", ErrMalformed, c)
}

// readPayload reads a str or bin value after checking its length prefix.
func readPayload(d *msgpack.Decoder) ([]byte, error) {
	n, err := d.DecodeBytesLen()
	if err != nil {
		return nil, ioError(err)
	}
	if n > maxPayloadLen {
		return nil, payloadError(n)
	}
	data := make([]byte, n)
	if err := d.ReadFull(data); err != nil {
		return nil, ioError(err)
	}
	return data, nil
}

func payloadError(n int) error {
	return fmt.Errorf("%w: payload of %d bytes exceeds %d", ErrMalformed, n, maxPayloadLen)
}

func ioError(err error) error {
	return fmt.Errorf("%w: %w", ErrIO, err)
}

// Marshal encodes a single Value into msgpack bytes.
func Marshal(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeValue(msgpack.NewEncoder(&buf), v, 0); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes exactly one Value from data. Trailing bytes are an error.
func Unmarshal(data []byte) (Value, error) {
	rd := bytes.NewReader(data)
	v, err := decodeValue(msgpack.NewDecoder(rd), 0)
	if err != nil {
		return Value{}, err
	}
	if rd.Len() != 0 {
		return Value{}, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, rd.Len())
	}
	return v, nil
}
