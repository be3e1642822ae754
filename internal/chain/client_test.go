package chain

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

// newNode serves batched JSON-RPC requests, echoing ids and delegating each
// request to answer.
func newNode(t *testing.T, answer func(req rpcRequest) rpcReply) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var batch []rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		replies := make([]rpcReply, 0, len(batch))
		for _, req := range batch {
			reply := answer(req)
			reply.JSONRPC = "2.0"
			reply.ID = req.ID
			replies = append(replies, reply)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(replies)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestBatchCallEchoesResults(t *testing.T) {
	srv := newNode(t, func(req rpcRequest) rpcReply {
		var slot uint64
		_ = json.Unmarshal(req.Params[0], &slot)
		switch slot {
		case 2:
			return rpcReply{Error: map[string]interface{}{"code": CodeSlotSkipped, "message": "Slot 2 was skipped"}}
		case 3:
			return rpcReply{Result: json.RawMessage("null")}
		case 4:
			return rpcReply{Error: map[string]interface{}{"code": -32005, "message": "node is behind"}}
		case 5:
			return rpcReply{Error: map[string]interface{}{"code": -32602, "message": "invalid params"}}
		}
		return rpcReply{Result: map[string]interface{}{"blockhash": "H", "slot": slot}}
	})

	c, err := NewClient(context.Background(), Config{URIs: []string{srv.URL}})
	require.NoError(t, err)
	defer c.Close()

	reqs := []Request{
		GetBlock(1, EncodingJSONParsed, true),
		GetBlock(2, EncodingJSONParsed, true),
		GetBlock(3, EncodingJSONParsed, true),
		GetBlock(4, EncodingJSONParsed, true),
		GetBlock(5, EncodingJSONParsed, true),
	}
	resp, err := c.BatchCall(context.Background(), reqs)
	require.NoError(t, err)
	require.Len(t, resp, 5)

	result, ok, err := resp[0].Value()
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"blockhash":"H","slot":1}`, string(result))

	_, ok, err = resp[1].Value()
	assert.NoError(t, err)
	assert.False(t, ok)

	_, _, err = resp[2].Value()
	assert.ErrorIs(t, err, ErrNullResult)
	assert.True(t, IsRetriable(err))

	_, _, err = resp[3].Value()
	assert.True(t, IsRetriable(err))
	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32005, rpcErr.Code)

	_, _, err = resp[4].Value()
	require.Error(t, err)
	assert.False(t, IsRetriable(err))
}

func TestBatchCallFallsBackToNextURI(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer broken.Close()

	var served int32
	good := newNode(t, func(req rpcRequest) rpcReply {
		atomic.AddInt32(&served, 1)
		return rpcReply{Result: 77}
	})

	c, err := NewClient(context.Background(), Config{URIs: []string{broken.URL, good.URL}})
	require.NoError(t, err)
	defer c.Close()

	slot, err := c.LatestSlot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(77), slot)
	assert.Equal(t, int32(1), atomic.LoadInt32(&served))
}

func TestBatchCallAllURIsFail(t *testing.T) {
	unavailable := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer unavailable.Close()
	forbidden := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer forbidden.Close()

	c, err := NewClient(context.Background(), Config{URIs: []string{unavailable.URL}})
	require.NoError(t, err)
	_, err = c.BatchCall(context.Background(), []Request{GetSlot()})
	require.Error(t, err)
	assert.True(t, IsRetriable(err))
	c.Close()

	c, err = NewClient(context.Background(), Config{URIs: []string{forbidden.URL}})
	require.NoError(t, err)
	_, err = c.BatchCall(context.Background(), []Request{GetSlot()})
	require.Error(t, err)
	assert.False(t, IsRetriable(err))
	c.Close()
}

func TestRateLimitedClientHonoursContext(t *testing.T) {
	srv := newNode(t, func(req rpcRequest) rpcReply { return rpcReply{Result: 1} })
	c, err := NewClient(context.Background(), Config{URIs: []string{srv.URL}, RateLimit: 0.001})
	require.NoError(t, err)
	defer c.Close()

	_, err = c.BatchCall(context.Background(), []Request{GetSlot()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.BatchCall(ctx, []Request{GetSlot()})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, OutcomeSkippable, Classify(-32009))
	assert.Equal(t, OutcomeRetriable, Classify(-32603))
	assert.Equal(t, OutcomeRetriable, Classify(-32000))
	assert.Equal(t, OutcomeRetriable, Classify(-32099))
	assert.Equal(t, OutcomeFatal, Classify(-32100))
	assert.Equal(t, OutcomeFatal, Classify(-32602))
	assert.Equal(t, OutcomeFatal, Classify(0))
}

func TestRequestBuilders(t *testing.T) {
	req := GetBlock(9, EncodingJSON, false)
	assert.Equal(t, "getBlock", req.Method)
	opts := req.Params[1].(map[string]interface{})
	assert.Equal(t, "signatures", opts["transactionDetails"])
	assert.Equal(t, 0, opts["maxSupportedTransactionVersion"])
	assert.Equal(t, true, opts["rewards"])

	keys := []string{"a", "b", "c"}
	acc := GetMultipleAccounts(keys, EncodingBase64)
	keys[0] = "z"
	assert.Equal(t, []string{"a", "b", "c"}, acc.Params[0])

	chunks := Chunk([]string{"a", "b", "c", "d", "e"}, 2)
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, chunks)
	assert.Nil(t, Chunk(nil, 2))
}

func TestParseURIs(t *testing.T) {
	assert.Equal(t, []string{"http://a", "http://b"}, ParseURIs(" http://a, ,http://b "))
	assert.Empty(t, ParseURIs(""))
}
