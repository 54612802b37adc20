// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

// Package sync is the request/response peer protocol a node uses to pull
// blocks and hand off transactions, ilxd/sync/chain_service.go's role
// re-keyed to this module's own types and its envelope-based net
// package (there being no generated protobuf request/response types to
// build on, see net/message.go).
package sync

import (
	"context"
	"fmt"

	ctxio "github.com/jbenet/go-context/io"
	inet "github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-msgio"
	"go.uber.org/zap"

	"github.com/shroud-chain/shroudd/net"
	"github.com/shroud-chain/shroudd/params"
	"github.com/shroud-chain/shroudd/serial"
	"github.com/shroud-chain/shroudd/types"
)

const ChainServiceProtocol = "chainservice"

var log = zap.S()

// UpdateLogger swaps the package-level logger.
func UpdateLogger(l *zap.SugaredLogger) { log = l }

// FetchBlockFunc looks up a previously-committed block by id, the
// callback ChainService uses to answer peer requests without taking a
// direct dependency on *blockchain.ChainStore.
type FetchBlockFunc func(id types.ID) (*types.Block, error)

// SubmitTxFunc hands a transaction received from a peer off to the
// node's own validation/mempool path.
type SubmitTxFunc func(tx *types.Transaction) error

// ChainService is the point-to-point request/response protocol peers
// use to fetch blocks, transactions, and chain tip state, and to
// forward transactions for validation (spec.md's flood-routing
// Non-goal excludes gossip broadcast, not this RPC surface — see
// net/network.go's package doc).
type ChainService struct {
	ctx        context.Context
	network    *net.Network
	params     *params.NetworkParams
	fetchBlock FetchBlockFunc
	submitTx   SubmitTxFunc
	bestSlot   func() (types.Slot, types.ID)
	ms         net.MessageSender
}

// NewChainService wires up the protocol's stream handler on network and
// returns a client usable to send requests to peers.
func NewChainService(ctx context.Context, fetchBlock FetchBlockFunc, submitTx SubmitTxFunc, bestSlot func() (types.Slot, types.ID), network *net.Network, p *params.NetworkParams) *ChainService {
	protocolID := "/" + p.Name + "/" + ChainServiceProtocol
	cs := &ChainService{
		ctx:        ctx,
		network:    network,
		params:     p,
		fetchBlock: fetchBlock,
		submitTx:   submitTx,
		bestSlot:   bestSlot,
		ms:         net.NewMessageSender(network.Host(), protocolID),
	}
	cs.network.Host().SetStreamHandler(protocolID, cs.HandleNewStream)
	return cs
}

// HandleNewStream dispatches each incoming stream to its own goroutine.
func (cs *ChainService) HandleNewStream(s inet.Stream) {
	go cs.handleNewMessage(s)
}

func (cs *ChainService) handleNewMessage(s inet.Stream) {
	defer s.Close()
	contextReader := ctxio.NewReader(cs.ctx, s)
	reader := msgio.NewVarintReaderSize(contextReader, 1<<23)
	remotePeer := s.Conn().RemotePeer()
	defer reader.Close()

	for {
		select {
		case <-cs.ctx.Done():
			return
		default:
		}

		reqBytes, err := net.ReadMsg(cs.ctx, reader)
		if err != nil {
			log.Debugf("error reading from chain service stream: peer %s: %s", remotePeer, err)
			return
		}
		env := new(net.Envelope)
		if err := serial.Decode(reqBytes, env); err != nil {
			log.Errorf("malformed chain service request from peer %s: %s", remotePeer, err)
			return
		}

		resp, err := cs.dispatch(env)
		if err != nil {
			log.Errorf("error handling chain service message from peer %s: %s", remotePeer, err)
			continue
		}

		respBytes, err := serial.Encode(resp)
		if err != nil {
			log.Errorf("error encoding chain service response to peer %s: %s", remotePeer, err)
			continue
		}
		if err := net.WriteMsg(s, respBytes); err != nil {
			log.Errorf("error writing chain service response to peer %s: %s", remotePeer, err)
			s.Reset()
		}
	}
}

func (cs *ChainService) dispatch(env *net.Envelope) (*net.Envelope, error) {
	switch env.Kind {
	case net.KindGetTip:
		return cs.handleGetTip(), nil
	case net.KindGetBlock:
		req := new(GetBlockReq)
		if err := serial.Decode(env.Body, req); err != nil {
			return nil, err
		}
		return cs.handleGetBlock(req), nil
	case net.KindGetBlockTxs:
		req := new(GetBlockTxsReq)
		if err := serial.Decode(env.Body, req); err != nil {
			return nil, err
		}
		return cs.handleGetBlockTxs(req), nil
	case net.KindGetBlockTxids:
		req := new(GetBlockTxidsReq)
		if err := serial.Decode(env.Body, req); err != nil {
			return nil, err
		}
		return cs.handleGetBlockTxids(req), nil
	case net.KindSubmitTx:
		req := new(SubmitTxReq)
		if err := serial.Decode(env.Body, req); err != nil {
			return nil, err
		}
		return cs.handleSubmitTx(req), nil
	default:
		return &net.Envelope{Kind: env.Kind, Err: net.ErrorBadRequest}, nil
	}
}

func sendEnvelope(cs *ChainService, p peer.ID, kind net.RequestKind, body serial.Encodable) (*net.Envelope, error) {
	var bodyBytes []byte
	var err error
	if body != nil {
		bodyBytes, err = serial.Encode(body)
		if err != nil {
			return nil, err
		}
	}
	reqBytes, err := serial.Encode(&net.Envelope{Kind: kind, Body: bodyBytes})
	if err != nil {
		return nil, err
	}
	resp := new(net.Envelope)
	if err := cs.ms.SendRequest(cs.ctx, p, reqBytes, func(b []byte) error {
		return serial.Decode(b, resp)
	}); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetTip asks p for its current chain tip.
func (cs *ChainService) GetTip(p peer.ID) (types.Slot, types.ID, error) {
	resp, err := sendEnvelope(cs, p, net.KindGetTip, nil)
	if err != nil {
		return 0, types.ID{}, err
	}
	if resp.Err != net.ErrorNone {
		return 0, types.ID{}, fmt.Errorf("error response from peer %s: %d", p, resp.Err)
	}
	out := new(GetTipResp)
	if err := serial.Decode(resp.Body, out); err != nil {
		return 0, types.ID{}, err
	}
	return out.Slot, out.Hash, nil
}

func (cs *ChainService) handleGetTip() *net.Envelope {
	slot, hash := cs.bestSlot()
	body, err := serial.Encode(&GetTipResp{Slot: slot, Hash: hash})
	if err != nil {
		return &net.Envelope{Kind: net.KindGetTip, Err: net.ErrorBadRequest}
	}
	return &net.Envelope{Kind: net.KindGetTip, Body: body}
}

// GetBlock fetches a full block by id from p.
func (cs *ChainService) GetBlock(p peer.ID, id types.ID) (*types.Block, error) {
	resp, err := sendEnvelope(cs, p, net.KindGetBlock, &GetBlockReq{BlockID: id})
	if err != nil {
		return nil, err
	}
	if resp.Err != net.ErrorNone {
		return nil, fmt.Errorf("error response from peer %s: %d", p, resp.Err)
	}
	blk := new(types.Block)
	if err := serial.Decode(resp.Body, blk); err != nil {
		return nil, err
	}
	return blk, nil
}

func (cs *ChainService) handleGetBlock(req *GetBlockReq) *net.Envelope {
	blk, err := cs.fetchBlock(req.BlockID)
	if err != nil {
		return &net.Envelope{Kind: net.KindGetBlock, Err: net.ErrorNotFound}
	}
	body, err := serial.Encode(blk)
	if err != nil {
		return &net.Envelope{Kind: net.KindGetBlock, Err: net.ErrorBadRequest}
	}
	return &net.Envelope{Kind: net.KindGetBlock, Body: body}
}

// GetBlockTxs fetches a subset of a block's transactions by index,
// flagging p with an increased banscore if it shorts the response.
func (cs *ChainService) GetBlockTxs(p peer.ID, blockID types.ID, txIndexes []uint32) ([]*types.Transaction, error) {
	resp, err := sendEnvelope(cs, p, net.KindGetBlockTxs, &GetBlockTxsReq{BlockID: blockID, TxIndexes: txIndexes})
	if err != nil {
		return nil, err
	}
	if resp.Err != net.ErrorNone {
		return nil, fmt.Errorf("error response from peer %s: %d", p, resp.Err)
	}
	out := new(GetBlockTxsResp)
	if err := serial.Decode(resp.Body, out); err != nil {
		return nil, err
	}
	if len(out.Transactions) != len(txIndexes) {
		cs.network.IncreaseBanscore(p, 50, 0)
		return nil, fmt.Errorf("peer %s did not return all requested txs", p)
	}
	return out.Transactions, nil
}

func (cs *ChainService) handleGetBlockTxs(req *GetBlockTxsReq) *net.Envelope {
	blk, err := cs.fetchBlock(req.BlockID)
	if err != nil {
		return &net.Envelope{Kind: net.KindGetBlockTxs, Err: net.ErrorNotFound}
	}
	out := &GetBlockTxsResp{Transactions: make([]*types.Transaction, len(req.TxIndexes))}
	for i, idx := range req.TxIndexes {
		if int(idx) >= len(blk.Transactions) {
			return &net.Envelope{Kind: net.KindGetBlockTxs, Err: net.ErrorBadRequest}
		}
		out.Transactions[i] = blk.Transactions[idx]
	}
	body, err := serial.Encode(out)
	if err != nil {
		return &net.Envelope{Kind: net.KindGetBlockTxs, Err: net.ErrorBadRequest}
	}
	return &net.Envelope{Kind: net.KindGetBlockTxs, Body: body}
}

// GetBlockTxids fetches the id list of every transaction in a block.
func (cs *ChainService) GetBlockTxids(p peer.ID, blockID types.ID) ([]types.ID, error) {
	resp, err := sendEnvelope(cs, p, net.KindGetBlockTxids, &GetBlockTxidsReq{BlockID: blockID})
	if err != nil {
		return nil, err
	}
	if resp.Err != net.ErrorNone {
		return nil, fmt.Errorf("error response from peer %s: %d", p, resp.Err)
	}
	out := new(GetBlockTxidsResp)
	if err := serial.Decode(resp.Body, out); err != nil {
		return nil, err
	}
	return out.Txids, nil
}

func (cs *ChainService) handleGetBlockTxids(req *GetBlockTxidsReq) *net.Envelope {
	blk, err := cs.fetchBlock(req.BlockID)
	if err != nil {
		return &net.Envelope{Kind: net.KindGetBlockTxids, Err: net.ErrorNotFound}
	}
	out := &GetBlockTxidsResp{Txids: make([]types.ID, len(blk.Transactions))}
	for i, tx := range blk.Transactions {
		id, err := tx.ID()
		if err != nil {
			return &net.Envelope{Kind: net.KindGetBlockTxids, Err: net.ErrorBadRequest}
		}
		out.Txids[i] = id
	}
	body, err := serial.Encode(out)
	if err != nil {
		return &net.Envelope{Kind: net.KindGetBlockTxids, Err: net.ErrorBadRequest}
	}
	return &net.Envelope{Kind: net.KindGetBlockTxids, Body: body}
}

// SubmitTx forwards tx to p for validation/relay.
func (cs *ChainService) SubmitTx(p peer.ID, tx *types.Transaction) error {
	resp, err := sendEnvelope(cs, p, net.KindSubmitTx, &SubmitTxReq{Tx: tx})
	if err != nil {
		return err
	}
	if resp.Err != net.ErrorNone {
		return fmt.Errorf("error response from peer %s: %d", p, resp.Err)
	}
	return nil
}

func (cs *ChainService) handleSubmitTx(req *SubmitTxReq) *net.Envelope {
	if err := cs.submitTx(req.Tx); err != nil {
		return &net.Envelope{Kind: net.KindSubmitTx, Err: net.ErrorBadRequest}
	}
	return &net.Envelope{Kind: net.KindSubmitTx}
}
