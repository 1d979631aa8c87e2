// Copyright 2015 The LUCI Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package wire frames messages for transport.Sender/Receiver: an 8-byte
// aligned header (body length, a compression flag) followed by the body,
// optionally s2-compressed once it crosses CompressThreshold.
package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/s2"
)

// Bytesable is implemented by anything this package can frame directly.
type Bytesable interface {
	IntoBytes() ([]byte, error)
}

// Bytes is a raw byte slice that is already its own wire encoding.
type Bytes []byte

func (b Bytes) IntoBytes() ([]byte, error) { return b, nil }

const (
	headerSize = 8
	alignment  = 8

	flagCompressed = 1 << 0
)

// CompressThreshold is the body size, in bytes, above which EncodeFrame
// s2-compresses the payload. Bodies at or below it are framed verbatim,
// since compression overhead isn't worth paying for a small progress
// update.
const CompressThreshold = 256

func padLen(n int) int {
	if r := n % alignment; r != 0 {
		return n + (alignment - r)
	}
	return n
}

// EncodeFrame frames payload for the wire: a header carrying the (post-
// compression) body length and a compression flag, the body, and zero
// padding out to the next 8-byte boundary. Framing never splits a
// logical payload across more than one frame — the whole point of
// fixed atomic frames is that a receiver either has the complete message
// or none of it.
func EncodeFrame(payload Bytesable) ([]byte, error) {
	raw, err := payload.IntoBytes()
	if err != nil {
		return nil, fmt.Errorf("wire: encoding payload: %w", err)
	}

	body := raw
	var flags byte
	if len(raw) > CompressThreshold {
		body = s2.Encode(nil, raw)
		flags = flagCompressed
	}

	out := make([]byte, padLen(headerSize+len(body)))
	binary.LittleEndian.PutUint32(out[0:4], uint32(len(body)))
	out[4] = flags
	copy(out[headerSize:], body)
	return out, nil
}

// DecodeFrame reverses EncodeFrame, returning the original (decompressed)
// payload bytes and the number of bytes of frame consumed from data —
// callers streaming frames back to back use this to find the next one.
func DecodeFrame(data []byte) (payload []byte, consumed int, err error) {
	if len(data) < headerSize {
		return nil, 0, fmt.Errorf("wire: short frame header (%d bytes)", len(data))
	}
	bodyLen := int(binary.LittleEndian.Uint32(data[0:4]))
	flags := data[4]
	total := padLen(headerSize + bodyLen)
	if len(data) < total {
		return nil, 0, fmt.Errorf("wire: short frame body: want %d have %d", total, len(data))
	}
	body := data[headerSize : headerSize+bodyLen]

	if flags&flagCompressed != 0 {
		decoded, err := s2.Decode(nil, body)
		if err != nil {
			return nil, 0, fmt.Errorf("wire: s2 decode: %w", err)
		}
		return decoded, total, nil
	}
	out := make([]byte, bodyLen)
	copy(out, body)
	return out, total, nil
}
