package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solanaetl/internal/model"
)

func transferItem(sig string, value uint64) model.Item {
	return model.Item{
		"type":           model.TypeTokenTransfer,
		"source":         "A",
		"destination":    "B",
		"authority":      "C",
		"value":          value,
		"decimals":       nil,
		"mint":           nil,
		"mint_authority": nil,
		"transfer_type":  string(model.TransferSPL),
		"tx_signature":   sig,
	}
}

func TestCSVExporterWritesHeaderAndRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token_transfers.csv")
	e, err := NewCSVExporter(path, model.TypeTokenTransfer)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, e.Open(ctx))
	require.NoError(t, e.ExportItems(ctx, []model.Item{transferItem("S1", 500)}))
	require.NoError(t, e.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "source,destination,authority,value,decimals,mint,mint_authority,transfer_type,tx_signature", lines[0])
	assert.Equal(t, "A,B,C,500,,,,spl-transfer,S1", lines[1])

	items, err := ReadItems(path)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "500", items[0]["value"])
	assert.Equal(t, "", items[0]["mint"])
}

func TestCSVExporterQuotesJSONColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "instructions.csv")
	e, err := NewCSVExporter(path, model.TypeInstruction)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, e.Open(ctx))
	require.NoError(t, e.ExportItems(ctx, []model.Item{{
		"type":         model.TypeInstruction,
		"tx_signature": "S",
		"index":        0,
		"accounts":     `["A","B"]`,
		"params":       `{"a":1,"b":"x,y"}`,
	}}))
	require.NoError(t, e.Close())

	items, err := ReadItems(path)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, `["A","B"]`, items[0]["accounts"])
	assert.Equal(t, `{"a":1,"b":"x,y"}`, items[0]["params"])
}

func TestCSVExporterUnknownType(t *testing.T) {
	_, err := NewCSVExporter("x.csv", "nope")
	assert.Error(t, err)
}

func TestJSONLExporterConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.jsonl")
	e := NewJSONLExporter(path)
	ctx := context.Background()
	require.NoError(t, e.Open(ctx))

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				assert.NoError(t, e.ExportItems(ctx, []model.Item{transferItem("S", uint64(w*100+i))}))
			}
		}(w)
	}
	wg.Wait()
	require.NoError(t, e.Close())

	items, err := ReadItems(path)
	require.NoError(t, err)
	require.Len(t, items, 400)
	assert.IsType(t, json.Number(""), items[0]["value"])
}

func TestConsoleExporter(t *testing.T) {
	var buf bytes.Buffer
	e := NewConsoleExporter(&buf)
	ctx := context.Background()
	require.NoError(t, e.Open(ctx))
	require.NoError(t, e.ExportItems(ctx, []model.Item{{"type": "block", "number": 1}}))
	assert.JSONEq(t, `{"type":"block","number":1}`, strings.TrimSpace(buf.String()))
	require.NoError(t, e.Close())
}

func TestCompositeRoutesByType(t *testing.T) {
	blocks := NewMemoryExporter()
	transfers := NewMemoryExporter()
	c := NewCompositeExporter(map[string]Exporter{
		model.TypeBlock:         blocks,
		model.TypeTokenTransfer: transfers,
	}, nil, nil)

	ctx := context.Background()
	require.NoError(t, c.Open(ctx))
	require.NoError(t, c.ExportItems(ctx, []model.Item{
		{"type": model.TypeBlock, "number": 1},
		transferItem("S", 1),
		{"type": model.TypeBlock, "number": 2},
	}))
	require.NoError(t, c.Close())

	assert.Len(t, blocks.Items(model.TypeBlock), 2)
	assert.Len(t, transfers.Items(model.TypeTokenTransfer), 1)
	assert.Equal(t, map[string]int{model.TypeBlock: 2, model.TypeTokenTransfer: 1}, c.Counts())

	err := c.ExportItems(ctx, []model.Item{{"type": model.TypeToken}})
	assert.Error(t, err)
}

func TestCompositeSharedExporterOpensOnce(t *testing.T) {
	shared := &countingExporter{}
	c := NewCompositeExporter(map[string]Exporter{
		model.TypeBlock:       shared,
		model.TypeTransaction: shared,
	}, nil, nil)
	require.NoError(t, c.Open(context.Background()))
	require.NoError(t, c.Close())
	assert.Equal(t, 1, shared.opened)
	assert.Equal(t, 1, shared.closed)
}

type countingExporter struct {
	opened, closed int
}

func (c *countingExporter) Open(ctx context.Context) error { c.opened++; return nil }
func (c *countingExporter) ExportItems(ctx context.Context, items []model.Item) error {
	return nil
}
func (c *countingExporter) Close() error { c.closed++; return nil }

func TestMultiExporterFansOut(t *testing.T) {
	a, b := NewMemoryExporter(), NewMemoryExporter()
	m := NewMultiExporter(a, b)
	ctx := context.Background()
	require.NoError(t, m.Open(ctx))
	require.NoError(t, m.ExportItems(ctx, []model.Item{{"type": "block"}}))
	require.NoError(t, m.Close())
	assert.Len(t, a.Items("block"), 1)
	assert.Len(t, b.Items("block"), 1)
}

func TestNewOutputExporter(t *testing.T) {
	ctx := context.Background()

	e, err := NewOutputExporter(ctx, "console", nil)
	require.NoError(t, err)
	assert.IsType(t, &JSONLExporter{}, e)

	_, err = NewOutputExporter(ctx, "gs://bucket/path", nil)
	assert.ErrorIs(t, err, ErrUnsupportedOutput)

	_, err = NewOutputExporter(ctx, "projects/p/topics/t", nil)
	assert.ErrorIs(t, err, ErrUnsupportedOutput)

	e, err = NewOutputExporter(ctx, "console, nats://localhost:4222/solana.mainnet", nil)
	require.NoError(t, err)
	assert.IsType(t, &MultiExporter{}, e)

	fe, err := NewFileExporter("out/blocks.json", model.TypeBlock)
	require.NoError(t, err)
	assert.IsType(t, &JSONLExporter{}, fe)
	fe, err = NewFileExporter("out/blocks.csv", model.TypeBlock)
	require.NoError(t, err)
	assert.IsType(t, &CSVExporter{}, fe)
}

func TestParseNATSOutput(t *testing.T) {
	server, prefix, err := ParseNATSOutput("nats://localhost:4222/solana/mainnet")
	require.NoError(t, err)
	assert.Equal(t, "nats://localhost:4222", server)
	assert.Equal(t, "solana.mainnet", prefix)

	_, prefix, err = ParseNATSOutput("nats://localhost:4222")
	require.NoError(t, err)
	assert.Equal(t, "solana", prefix)

	_, _, err = ParseNATSOutput("http://localhost")
	assert.Error(t, err)
}

type fakePublisher struct {
	msgs []*nats.Msg
}

func (f *fakePublisher) PublishMsg(ctx context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	f.msgs = append(f.msgs, msg)
	return &jetstream.PubAck{Stream: "SOLANA"}, nil
}

func TestNATSExporterSubjects(t *testing.T) {
	e, err := NewNATSExporter("nats://localhost:4222/solana", nil)
	require.NoError(t, err)
	assert.Equal(t, "solana.token_transfers", e.Subject(model.TypeTokenTransfer))
	assert.Equal(t, "SOLANA", e.StreamName())

	assert.Error(t, e.ExportItems(context.Background(), []model.Item{{"type": "block"}}))

	pub := &fakePublisher{}
	e.js = pub
	item := transferItem("S", 5)
	item["item_id"] = "token_transfer_S"
	require.NoError(t, e.ExportItems(context.Background(), []model.Item{item, {"type": model.TypeBlock}}))
	require.Len(t, pub.msgs, 2)
	assert.Equal(t, "solana.token_transfers", pub.msgs[0].Subject)
	assert.Equal(t, "token_transfer_S", pub.msgs[0].Header.Get("item_id"))
	assert.Equal(t, "solana.blocks", pub.msgs[1].Subject)
}

func TestExtractField(t *testing.T) {
	var buf bytes.Buffer
	items := []model.Item{{"signature": "a"}, {"signature": "b"}, {}}
	require.NoError(t, ExtractField(items, "signature", &buf))
	assert.Equal(t, "a\nb\n\n", buf.String())
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "", FormatValue(nil))
	assert.Equal(t, "true", FormatValue(true))
	assert.Equal(t, "18446744073709551615", FormatValue(uint64(18446744073709551615)))
	assert.Equal(t, "1.5", FormatValue(1.5))
	assert.Equal(t, `["a"]`, FormatValue([]string{"a"}))
}
