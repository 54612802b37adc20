// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package net

import (
	"io"

	"github.com/shroud-chain/shroudd/serial"
)

// RequestKind tags the payload carried inside an Envelope, replacing
// ilxd/types/wire's generated MsgChainServiceRequest oneof (no protoc
// codegen is available in this module, see message.go).
type RequestKind uint8

const (
	KindGetTip RequestKind = iota
	KindGetBlock
	KindGetBlockTxs
	KindGetBlockTxids
	KindSubmitTx
)

// ErrorResponse mirrors ilxd/types/wire.ErrorResponse's small fixed
// vocabulary of RPC failure reasons.
type ErrorResponse uint8

const (
	ErrorNone ErrorResponse = iota
	ErrorNotFound
	ErrorBadRequest
)

// Envelope is the generic request frame every ChainService call sends:
// a kind tag plus the serial-encoded request body. Responses reuse the
// same shape with Kind echoing the request and an ErrorResponse in
// place of a body on failure.
type Envelope struct {
	Kind RequestKind
	Err  ErrorResponse
	Body []byte
}

// Encode implements serial.Encodable.
func (e *Envelope) Encode(w io.Writer) (int, error) {
	wr := serial.NewWriter(w)
	wr.WriteU8(uint8(e.Kind))
	wr.WriteU8(uint8(e.Err))
	wr.WriteBytes(e.Body)
	return wr.Result()
}

// Decode implements serial.Decodable.
func (e *Envelope) Decode(r io.Reader) error {
	rd := serial.NewReader(r)
	e.Kind = RequestKind(rd.ReadU8())
	e.Err = ErrorResponse(rd.ReadU8())
	e.Body = rd.ReadBytes()
	return rd.Err()
}
