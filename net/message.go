// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package net

import (
	"context"

	"github.com/libp2p/go-msgio"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// wireMessage is the proto.Message every request/response is framed
// as. The pack's protobuf toolchain generates real .pb.go types from
// .proto sources via protoc, a build step this module never runs;
// wrapperspb.BytesValue is protobuf's own pre-generated "opaque bytes"
// message, so the wire still carries genuine protobuf framing (and
// genuinely calls proto.Marshal/Unmarshal) without needing generated
// code. The bytes it carries are one of this package's own
// serial-encoded request/response structs.
type wireMessage = wrapperspb.BytesValue

// WriteMsg proto-marshals payload and writes it msgio-framed to w,
// mirroring ilxd/net.WriteMsg's call shape (net.WriteMsg(s, resp)).
func WriteMsg(w msgio.Writer, payload []byte) error {
	msg := &wireMessage{Value: payload}
	data, err := proto.Marshal(msg)
	if err != nil {
		return err
	}
	return w.WriteMsg(data)
}

// ReadMsg reads one msgio-framed protobuf message from r and returns
// its carried bytes, respecting ctx cancellation the way
// ilxd/net.ReadMsg does before blocking on the read.
func ReadMsg(ctx context.Context, r msgio.ReadCloser) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	data, err := r.ReadMsg()
	if err != nil {
		return nil, err
	}
	defer r.ReleaseMsg(data)

	msg := &wireMessage{}
	if err := proto.Unmarshal(data, msg); err != nil {
		return nil, err
	}
	return msg.Value, nil
}
