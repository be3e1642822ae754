package streaming

import (
	"strings"

	"solanaetl/internal/model"
	"solanaetl/internal/storage"
)

// ItemID returns a stable identifier for item, or false when its leading key
// column is missing.
func ItemID(item model.Item) (string, bool) {
	typ := item.Type()
	var keys []string
	switch typ {
	case model.TypeBlock:
		keys = []string{"hash"}
	case model.TypeTransaction:
		keys = []string{"signature"}
	case model.TypeInstruction:
		if item["parent_index"] != nil {
			keys = []string{"tx_signature", "parent_index", "index"}
		} else {
			keys = []string{"tx_signature", "index"}
		}
	case model.TypeAccount:
		keys = []string{"pubkey"}
	case model.TypeTokenTransfer:
		keys = []string{"tx_signature", "source", "destination", "value"}
	case model.TypeToken:
		keys = []string{"mint"}
	default:
		return "", false
	}

	parts := []string{typ}
	for _, k := range keys {
		v := storage.FormatValue(item[k])
		if v == "" && k == keys[0] {
			return "", false
		}
		parts = append(parts, v)
	}
	return strings.Join(parts, "_"), true
}
