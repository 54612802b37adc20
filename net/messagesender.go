// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package net

import (
	"context"

	ctxio "github.com/jbenet/go-context/io"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
	"github.com/libp2p/go-msgio"
)

// MessageSender opens a fresh stream per request and writes/reads one
// request/response pair over it, ilxd/net.MessageSender's role in
// sync.ChainService's SendRequest calls.
type MessageSender struct {
	host     host.Host
	protocol protocol.ID
}

// NewMessageSender binds a sender to h over proto.
func NewMessageSender(h host.Host, proto string) MessageSender {
	return MessageSender{host: h, protocol: protocol.ID(proto)}
}

// SendRequest opens a stream to p, writes req, and reads back one
// response, decoding it into resp via decode.
func (ms MessageSender) SendRequest(ctx context.Context, p peer.ID, req []byte, decode func([]byte) error) error {
	s, err := ms.host.NewStream(ctx, p, ms.protocol)
	if err != nil {
		return err
	}
	defer s.Close()

	writer := msgio.NewVarintWriter(s)
	if err := WriteMsg(writer, req); err != nil {
		s.Reset()
		return err
	}

	contextReader := ctxio.NewReader(ctx, s)
	reader := msgio.NewVarintReaderSize(contextReader, 1<<23)
	defer reader.Close()

	respBytes, err := ReadMsg(ctx, reader)
	if err != nil {
		return err
	}
	return decode(respBytes)
}
