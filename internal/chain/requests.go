package chain

// Account and block encodings accepted by the node.
const (
	EncodingJSONParsed = "jsonParsed"
	EncodingJSON       = "json"
	EncodingBase64     = "base64"
)

// MaxAccountsPerRequest is the node's limit for getMultipleAccounts.
const MaxAccountsPerRequest = 100

// Request is one JSON-RPC call inside a batch.
type Request struct {
	Method string
	Params []interface{}
}

// GetBlock requests a block with full transactions or signatures only.
func GetBlock(slot uint64, encoding string, includeTransactions bool) Request {
	details := "signatures"
	if includeTransactions {
		details = "full"
	}
	return Request{
		Method: "getBlock",
		Params: []interface{}{slot, map[string]interface{}{
			"encoding":                       encoding,
			"transactionDetails":             details,
			"rewards":                        true,
			"maxSupportedTransactionVersion": 0,
		}},
	}
}

// GetTransaction requests a single transaction by signature.
func GetTransaction(signature, encoding string) Request {
	return Request{
		Method: "getTransaction",
		Params: []interface{}{signature, map[string]interface{}{
			"encoding":                       encoding,
			"maxSupportedTransactionVersion": 0,
		}},
	}
}

// GetMultipleAccounts requests up to MaxAccountsPerRequest accounts.
func GetMultipleAccounts(pubkeys []string, encoding string) Request {
	keys := make([]string, len(pubkeys))
	copy(keys, pubkeys)
	return Request{
		Method: "getMultipleAccounts",
		Params: []interface{}{keys, map[string]interface{}{
			"encoding": encoding,
		}},
	}
}

// GetSlot requests the node's current slot.
func GetSlot() Request {
	return Request{Method: "getSlot", Params: []interface{}{}}
}

// Chunk splits keys into consecutive groups of at most size entries.
func Chunk(keys []string, size int) [][]string {
	if size <= 0 {
		size = MaxAccountsPerRequest
	}
	var out [][]string
	for start := 0; start < len(keys); start += size {
		end := start + size
		if end > len(keys) {
			end = len(keys)
		}
		out = append(out, keys[start:end])
	}
	return out
}
