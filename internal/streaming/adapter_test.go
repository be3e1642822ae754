package streaming

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solanaetl/internal/chain"
	"solanaetl/internal/decoder"
	"solanaetl/internal/executor"
	"solanaetl/internal/model"
	"solanaetl/internal/storage"
)

const transferBlock = `{
  "blockHeight": 9, "blockTime": 1660000000, "blockhash": "HASH10", "parentSlot": 9,
  "previousBlockhash": "HASH9", "rewards": [],
  "transactions": [{
    "meta": {"err": null, "fee": 5000, "preBalances": [1, 1, 1, 1], "postBalances": [1, 1, 1, 1]},
    "transaction": {"signatures": ["TXSIG"], "message": {
      "accountKeys": [
        {"pubkey": "C", "signer": true, "writable": true, "source": "transaction"},
        {"pubkey": "A", "signer": false, "writable": true, "source": "transaction"},
        {"pubkey": "B", "signer": false, "writable": true, "source": "transaction"},
        {"pubkey": "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA", "signer": false, "writable": false, "source": "transaction"}
      ],
      "recentBlockhash": "RB",
      "instructions": [
        {"programId": "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA", "accounts": ["A", "B", "C"], "data": "3vGhvZn9zGuM"}
      ]
    }}
  }]
}`

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

// newAdapterNode serves slot 12 as head, the transfer at slot 10 and no other blocks.
func newAdapterNode(t *testing.T, accountCalls *int32) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var batch []rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		replies := make([]rpcReply, 0, len(batch))
		for _, req := range batch {
			reply := rpcReply{JSONRPC: "2.0", ID: req.ID}
			switch req.Method {
			case "getSlot":
				reply.Result = 12
			case "getBlock":
				var slot uint64
				_ = json.Unmarshal(req.Params[0], &slot)
				if slot == 10 {
					reply.Result = json.RawMessage(transferBlock)
				} else {
					reply.Error = map[string]interface{}{"code": -32009, "message": "Slot was skipped"}
				}
			case "getMultipleAccounts":
				atomic.AddInt32(accountCalls, 1)
				reply.Result = map[string]interface{}{"context": map[string]interface{}{"slot": 12}, "value": []interface{}{}}
			}
			replies = append(replies, reply)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(replies)
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func newTestAdapter(t *testing.T, url string, entities string, out storage.Exporter) *Adapter {
	t.Helper()
	exec, err := executor.New(executor.Config{BatchSize: 2, MaxWorkers: 2, MaxRetries: 3, RetryBackoff: time.Millisecond})
	require.NoError(t, err)
	clients, err := chain.NewClients(context.Background(), chain.Config{URIs: []string{url}}, 2)
	require.NoError(t, err)
	t.Cleanup(func() { chain.CloseAll(clients) })
	registry, err := decoder.NewDefaultRegistry(decoder.SerumDexV3ProgramID)
	require.NoError(t, err)
	set, err := ParseEntityTypes(entities)
	require.NoError(t, err)

	a, err := NewAdapter(AdapterConfig{
		Entities: set,
		Executor: exec,
		Clients:  clients,
		Parser:   decoder.NewParser(registry, nil),
		Exporter: out,
	})
	require.NoError(t, err)
	return a
}

func TestAdapterEmitsOnlyRequestedTypes(t *testing.T) {
	var accountCalls int32
	url := newAdapterNode(t, &accountCalls)
	out := storage.NewMemoryExporter()
	a := newTestAdapter(t, url, "token_transfer", out)
	ctx := context.Background()

	head, err := a.CurrentBlock(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), head)

	require.NoError(t, a.Open(ctx))
	require.NoError(t, a.ExportAll(ctx, 10, 12))
	require.NoError(t, a.Close())

	assert.Empty(t, out.Items(model.TypeBlock))
	assert.Empty(t, out.Items(model.TypeInstruction))
	transfers := out.Items(model.TypeTokenTransfer)
	require.Len(t, transfers, 1)
	assert.Equal(t, "token_transfer_TXSIG_A_B_500", transfers[0]["item_id"])
	assert.Equal(t, "C", storage.FormatValue(transfers[0]["authority"]))
	assert.Zero(t, atomic.LoadInt32(&accountCalls))
}

func TestAdapterTagsEveryItem(t *testing.T) {
	var accountCalls int32
	url := newAdapterNode(t, &accountCalls)
	out := storage.NewMemoryExporter()
	a := newTestAdapter(t, url, "block,transaction,instruction", out)
	ctx := context.Background()

	require.NoError(t, a.Open(ctx))
	require.NoError(t, a.ExportAll(ctx, 10, 11))
	require.NoError(t, a.Close())

	blocks := out.Items(model.TypeBlock)
	require.Len(t, blocks, 1)
	assert.Equal(t, "block_HASH10", blocks[0]["item_id"])

	txs := out.Items(model.TypeTransaction)
	require.Len(t, txs, 1)
	assert.Equal(t, "transaction_TXSIG", txs[0]["item_id"])

	ixs := out.Items(model.TypeInstruction)
	require.Len(t, ixs, 1)
	assert.Equal(t, "instruction_TXSIG_0", ixs[0]["item_id"])
	assert.Zero(t, atomic.LoadInt32(&accountCalls))
}
