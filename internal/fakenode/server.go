// Package fakenode runs an in-process gRPC server that answers the Burrow RPCs
// the client uses. Chain state is kept in memory.
package fakenode

import (
	"context"
	"encoding/hex"
	"net"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/84hero/burrow-client/pkg/wire"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Server is a fake node. The Handle* hooks override the default behaviour.
type Server struct {
	HandleCallTx      func(tx *wire.CallTx, sim bool) (*wire.TxExecution, error)
	HandleNameTx      func(tx *wire.NameTx) (*wire.TxExecution, error)
	HandleGetName     func(name string) (*wire.NameEntry, error)
	HandleGetMetadata func(address, metadataHash []byte) (string, error)

	mu      sync.Mutex
	chainID string
	blocks  []*wire.EventsResponse
	subs    map[chan struct{}]struct{}
	names   map[string]*wire.NameEntry
	meta    map[string]string
	byHash  map[string]string
	calls   []*wire.CallTx

	grpc *grpc.Server
	addr string
}

// Start listens on a random local port and stops the server when t ends.
func Start(t testing.TB) *Server {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &Server{
		chainID: "fake-chain",
		subs:    make(map[chan struct{}]struct{}),
		names:   make(map[string]*wire.NameEntry),
		meta:    make(map[string]string),
		byHash:  make(map[string]string),
		grpc:    grpc.NewServer(grpc.ForceServerCodec(wire.Codec{})),
		addr:    lis.Addr().String(),
	}
	s.grpc.RegisterService(&transactDesc, s)
	s.grpc.RegisterService(&queryDesc, s)
	s.grpc.RegisterService(&eventsDesc, s)

	go func() { _ = s.grpc.Serve(lis) }()
	t.Cleanup(s.grpc.Stop)
	return s
}

// Addr returns host:port.
func (s *Server) Addr() string { return s.addr }

// Height returns the latest committed block.
func (s *Server) Height() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint64(len(s.blocks))
}

// Streams returns the number of attached event streams.
func (s *Server) Streams() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// SetMetadata stores the metadata document returned for address.
func (s *Server) SetMetadata(address []byte, meta string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meta[strings.ToUpper(hex.EncodeToString(address))] = meta
}

// SetMetadataByHash stores the metadata document returned for hash.
func (s *Server) SetMetadataByHash(hash []byte, meta string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byHash[strings.ToUpper(hex.EncodeToString(hash))] = meta
}

// Calls returns every call transaction received, simulated or not.
func (s *Server) Calls() []*wire.CallTx {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*wire.CallTx(nil), s.calls...)
}

// Commit appends a block with one transaction holding logs and wakes live
// streams. It returns the new height.
func (s *Server) Commit(logs ...*wire.LogEvent) uint64 {
	return s.CommitTxs(logs)
}

// CommitTxs appends a block with one transaction per entry of txs. Event
// indexes restart in every transaction, as on a real node.
func (s *Server) CommitTxs(txs ...[]*wire.LogEvent) uint64 {
	s.mu.Lock()
	height := uint64(len(s.blocks)) + 1
	block := &wire.EventsResponse{Height: height}
	for t, logs := range txs {
		for i, l := range logs {
			block.Events = append(block.Events, &wire.Event{
				Header: &wire.EventHeader{
					EventType: 1,
					Height:    height,
					Index:     uint64(i),
					TxHash:    []byte{byte(height), byte(t)},
				},
				Log: l,
			})
		}
	}
	s.blocks = append(s.blocks, block)
	for ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	s.mu.Unlock()
	return height
}

func (s *Server) callTx(tx *wire.CallTx, sim bool) (*wire.TxExecution, error) {
	s.mu.Lock()
	s.calls = append(s.calls, tx)
	s.mu.Unlock()
	if s.HandleCallTx != nil {
		return s.HandleCallTx(tx, sim)
	}
	return &wire.TxExecution{
		Header: &wire.TxHeader{TxType: 2, TxHash: []byte{0x01}, Height: s.Height()},
		Result: &wire.Result{},
	}, nil
}

func (s *Server) nameTx(tx *wire.NameTx) (*wire.TxExecution, error) {
	if s.HandleNameTx != nil {
		return s.HandleNameTx(tx)
	}
	entry := &wire.NameEntry{Name: tx.Name, Data: tx.Data}
	if tx.Input != nil {
		entry.Owner = tx.Input.Address
		entry.Expires = tx.Input.Amount
	}
	s.mu.Lock()
	s.names[tx.Name] = entry
	s.mu.Unlock()
	return &wire.TxExecution{
		Header: &wire.TxHeader{TxType: 3, TxHash: []byte{0x02}},
		Result: &wire.Result{NameEntry: entry},
	}, nil
}

func (s *Server) getName(name string) (*wire.NameEntry, error) {
	if s.HandleGetName != nil {
		return s.HandleGetName(name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.names[name]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "name %s not found", name)
	}
	return entry, nil
}

func (s *Server) getMetadata(address, hash []byte) (string, error) {
	if s.HandleGetMetadata != nil {
		return s.HandleGetMetadata(address, hash)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(hash) > 0 {
		return s.byHash[strings.ToUpper(hex.EncodeToString(hash))], nil
	}
	return s.meta[strings.ToUpper(hex.EncodeToString(address))], nil
}

func (s *Server) status() *wire.ResultStatus {
	return &wire.ResultStatus{
		ChainID:       s.chainID,
		BurrowVersion: "fake",
		SyncInfo:      &wire.SyncInfo{LatestBlockHeight: s.Height()},
	}
}

// streamEvents follows the bound semantics of the node: batches are sent in
// height order and the call returns once the end bound is passed.
func (s *Server) streamEvents(ctx context.Context, req *wire.BlocksRequest, send func(*wire.EventsResponse) error) error {
	match := compileQuery(req.Query)
	var start, end *wire.Bound
	if br := req.BlockRange; br != nil {
		start, end = br.Start, br.End
	}

	wake := make(chan struct{}, 1)
	s.mu.Lock()
	s.subs[wake] = struct{}{}
	latest := uint64(len(s.blocks))
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.subs, wake)
		s.mu.Unlock()
	}()

	next := resolve(start, latest, 1)
	if next == 0 {
		next = 1
	}
	streaming := end != nil && end.Type == wire.BoundStream
	last := resolve(end, latest, latest)

	for {
		s.mu.Lock()
		have := uint64(len(s.blocks))
		pending := []*wire.EventsResponse{}
		for ; next <= have && (streaming || next <= last); next++ {
			pending = append(pending, s.blocks[next-1])
		}
		s.mu.Unlock()

		for _, block := range pending {
			out := &wire.EventsResponse{Height: block.Height}
			for _, ev := range block.Events {
				if match(ev) {
					out.Events = append(out.Events, ev)
				}
			}
			if len(out.Events) == 0 {
				continue
			}
			if err := send(out); err != nil {
				return err
			}
		}
		if !streaming && next > last {
			return nil
		}
		select {
		case <-ctx.Done():
			return status.FromContextError(ctx.Err()).Err()
		case <-wake:
		}
	}
}

func resolve(b *wire.Bound, latest, def uint64) uint64 {
	if b == nil {
		return def
	}
	switch b.Type {
	case wire.BoundAbsolute:
		return b.Index
	case wire.BoundRelative:
		if b.Index > latest {
			return 0
		}
		return latest - b.Index
	case wire.BoundFirst:
		return 1
	case wire.BoundLatest:
		return latest
	}
	return latest + 1
}

var clause = regexp.MustCompile(`(\w+) = '([^']*)'`)

// compileQuery understands conjunctions of equalities with one OR group, the
// shape the client produces.
func compileQuery(query string) func(*wire.Event) bool {
	required := map[string][]string{}
	for _, m := range clause.FindAllStringSubmatch(query, -1) {
		required[m[1]] = append(required[m[1]], m[2])
	}
	return func(ev *wire.Event) bool {
		for key, values := range required {
			got, ok := tagValue(ev, key)
			if !ok || !contains(values, got) {
				return false
			}
		}
		return true
	}
}

func tagValue(ev *wire.Event, key string) (string, bool) {
	switch key {
	case "EventType":
		if ev.Log != nil {
			return "LogEvent", true
		}
		return "", false
	case "Address":
		if ev.Log == nil {
			return "", false
		}
		return strings.ToUpper(hex.EncodeToString(ev.Log.Address)), true
	}
	if strings.HasPrefix(key, "Log") && ev.Log != nil {
		i := int(key[len(key)-1] - '0')
		if i >= 0 && i < len(ev.Log.Topics) {
			return strings.ToUpper(hex.EncodeToString(ev.Log.Topics[i])), true
		}
	}
	return "", false
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if strings.EqualFold(x, v) {
			return true
		}
	}
	return false
}
