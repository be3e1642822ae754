package jobs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"solanaetl/internal/chain"
	"solanaetl/internal/executor"
)

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type rpcReply struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   interface{}     `json:"error,omitempty"`
}

func result(raw string) rpcReply { return rpcReply{Result: json.RawMessage(raw)} }

func rpcError(code int, msg string) rpcReply {
	return rpcReply{Error: map[string]interface{}{"code": code, "message": msg}}
}

// fakeNode answers batched JSON-RPC requests and records every method call.
type fakeNode struct {
	mu     sync.Mutex
	calls  map[string]int
	answer func(req rpcRequest) rpcReply
}

func newFakeNode(t *testing.T, answer func(req rpcRequest) rpcReply) (*fakeNode, string) {
	t.Helper()
	n := &fakeNode{calls: make(map[string]int), answer: answer}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var batch []rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		replies := make([]rpcReply, 0, len(batch))
		for _, req := range batch {
			n.mu.Lock()
			n.calls[req.Method]++
			n.mu.Unlock()
			reply := n.answer(req)
			reply.JSONRPC = "2.0"
			reply.ID = req.ID
			replies = append(replies, reply)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(replies)
	}))
	t.Cleanup(srv.Close)
	return n, srv.URL
}

func (n *fakeNode) count(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[method]
}

func slotParam(t *testing.T, req rpcRequest) uint64 {
	t.Helper()
	var slot uint64
	require.NoError(t, json.Unmarshal(req.Params[0], &slot))
	return slot
}

func newTestExecutor(t *testing.T, batchSize, workers int) *executor.Executor {
	t.Helper()
	e, err := executor.New(executor.Config{
		BatchSize:    batchSize,
		MaxWorkers:   workers,
		MaxRetries:   5,
		RetryBackoff: time.Millisecond,
		MaxBackoff:   5 * time.Millisecond,
	})
	require.NoError(t, err)
	return e
}

func newTestClients(t *testing.T, url string, n int) []*chain.Client {
	t.Helper()
	clients, err := chain.NewClients(context.Background(), chain.Config{URIs: []string{url}}, n)
	require.NoError(t, err)
	t.Cleanup(func() { chain.CloseAll(clients) })
	return clients
}
