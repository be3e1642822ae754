package jobs

import "fmt"

// BlockRange represents an inclusive block range.
type BlockRange struct {
	From uint64
	To   uint64
}

// SplitRange splits a block range into batches of size batchSize.
func SplitRange(from, to, batchSize uint64) ([]BlockRange, error) {
	if batchSize == 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("end block must be >= start block")
	}

	ranges := make([]BlockRange, 0, (to-from)/batchSize+1)
	for start := from; ; {
		end := to
		if to-start >= batchSize {
			end = start + batchSize - 1
		}
		ranges = append(ranges, BlockRange{From: start, To: end})
		if end == to {
			break
		}
		start = end + 1
	}
	return ranges, nil
}

// Slots lists every slot of r in ascending order.
func (r BlockRange) Slots() []uint64 {
	out := make([]uint64, 0, r.To-r.From+1)
	for s := r.From; ; s++ {
		out = append(out, s)
		if s == r.To {
			break
		}
	}
	return out
}

// PartitionDir is the hive-style directory suffix of r.
func (r BlockRange) PartitionDir() string {
	return fmt.Sprintf("start_block=%016d/end_block=%016d", r.From, r.To)
}

// FileSuffix is the block range part of partition file names.
func (r BlockRange) FileSuffix() string {
	return fmt.Sprintf("%08d_%08d", r.From, r.To)
}
