package decoder

import (
	"fmt"
	"sort"

	"github.com/gagliardetto/solana-go"
)

// Registry maps program ids to decoders. It is built once and then only read.
type Registry struct {
	decoders map[string]Decoder
}

func NewRegistry() *Registry {
	return &Registry{decoders: make(map[string]Decoder)}
}

// Register binds programID to d. The id must be a valid base58 public key.
func (r *Registry) Register(programID string, d Decoder) error {
	if _, err := solana.PublicKeyFromBase58(programID); err != nil {
		return fmt.Errorf("invalid program id %q: %w", programID, err)
	}
	if d == nil {
		return fmt.Errorf("nil decoder for program %s", programID)
	}
	if _, exists := r.decoders[programID]; exists {
		return fmt.Errorf("program %s already registered", programID)
	}
	r.decoders[programID] = d
	return nil
}

func (r *Registry) Lookup(programID string) (Decoder, bool) {
	d, ok := r.decoders[programID]
	return d, ok
}

// ProgramIDs returns the registered ids in sorted order.
func (r *Registry) ProgramIDs() []string {
	ids := make([]string, 0, len(r.decoders))
	for id := range r.decoders {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// NewDefaultRegistry registers the built-in decoders. An empty serumProgramID
// falls back to the mainnet address.
func NewDefaultRegistry(serumProgramID string) (*Registry, error) {
	if serumProgramID == "" {
		serumProgramID = SerumDexV3ProgramID
	}
	r := NewRegistry()
	for id, d := range map[string]Decoder{
		serumProgramID:  NewSerumDexV3(),
		SystemProgramID: NewSystemProgram(),
		TokenProgramID:  NewTokenProgram(),
	} {
		if err := r.Register(id, d); err != nil {
			return nil, err
		}
	}
	return r, nil
}
