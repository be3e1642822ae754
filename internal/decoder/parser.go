package decoder

import (
	"go.uber.org/zap"

	"solanaetl/internal/model"
)

// Parser assigns decoded types and params to instructions of registered programs.
type Parser struct {
	registry *Registry
	logger   *zap.Logger
}

func NewParser(registry *Registry, logger *zap.Logger) *Parser {
	if registry == nil {
		registry = NewRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{registry: registry, logger: logger}
}

// Parse returns a decoded copy of ix. Instructions of unregistered programs,
// and instructions without a raw payload (already parsed by the node), are
// returned unchanged.
func (p *Parser) Parse(ix model.Instruction) model.Instruction {
	out := ix.Clone()
	if ix.ProgramID == nil || ix.Data == nil || *ix.Data == "" {
		return out
	}
	d, ok := p.registry.Lookup(*ix.ProgramID)
	if !ok {
		return out
	}

	res, err := d.Decode(ix)
	if err != nil {
		fields := []zap.Field{
			zap.String("signature", ix.TxSignature),
			zap.String("program", d.Name()),
			zap.String("instruction", res.InstructionType),
			zap.Error(err),
		}
		if res.InstructionType != "" {
			p.logger.Warn("instruction partially decoded", fields...)
		} else {
			p.logger.Warn("instruction not decoded", fields...)
		}
	}
	if res.InstructionType == "" {
		return out
	}
	if err == nil && res.Remaining != 0 {
		p.logger.Warn("decoded data does not fit instruction payload",
			zap.String("signature", ix.TxSignature),
			zap.String("program", d.Name()),
			zap.String("instruction", res.InstructionType),
			zap.Int("remaining", res.Remaining),
		)
	}

	name := d.Name()
	typ := res.InstructionType
	out.Program = &name
	out.InstructionType = &typ
	out.Params = res.Params
	return out
}

// ParseAll parses each instruction in order.
func (p *Parser) ParseAll(ixs []model.Instruction) []model.Instruction {
	out := make([]model.Instruction, len(ixs))
	for i, ix := range ixs {
		out[i] = p.Parse(ix)
	}
	return out
}
