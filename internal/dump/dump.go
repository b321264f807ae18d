// Package dump implements the memory dump file format used for debugging (spec §6): a compressed
// or raw, shard-wise snapshot of the allocated pages of a Memory.
package dump

import (
	"bytes"
	"fmt"

	"mipsvm/internal/addr"
	"mipsvm/internal/mem"
)

// DefaultShardSize is used when callers don't need a different granularity.
const DefaultShardSize = 256

// Shard is one slice of a page, S bytes wide, at a known absolute virtual address.
type Shard struct {
	Addr addr.Address
	Data []byte
}

// Dump is the ordered sequence of shards produced from a Memory's allocated pages.
type Dump struct {
	ShardSize uint32
	Compressed bool
	Shards     []Shard
}

// Snapshot builds a Dump of m's allocated pages, split into shards of size shardSize (spec §6:
// 4 <= shardSize <= 4096, shardSize must divide 4096). When compress is true, all-zero shards are
// omitted; when false, every shard is kept so the dump can be laid back out at absolute offsets.
func Snapshot(m *mem.Memory, shardSize uint32, compress bool) (*Dump, error) {
	if shardSize < 4 || shardSize > addr.PageSize || addr.PageSize%shardSize != 0 {
		return nil, fmt.Errorf("dump: shard size %d must divide %d and be in [4,%d]", shardSize, addr.PageSize, addr.PageSize)
	}

	d := &Dump{ShardSize: shardSize, Compressed: compress}

	for _, pn := range m.Pages.PageNumbers() {
		base := addr.FromPage(pn, 0)

		data, err := m.Pages.ReadBytes(base, addr.PageSize)
		if err != nil {
			return nil, err
		}

		for off := uint32(0); off < addr.PageSize; off += shardSize {
			shard := data[off : off+shardSize]

			if compress && isZero(shard) {
				continue
			}

			cp := make([]byte, len(shard))
			copy(cp, shard)

			d.Shards = append(d.Shards, Shard{Addr: base.Add(addr.Address(off)), Data: cp})
		}
	}

	return d, nil
}

func isZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}

	return true
}

// WriteTo serializes the dump. Compressed dumps concatenate shard bytes verbatim, each preceded by
// its address and length; raw dumps place every shard at its absolute virtual-address offset from
// the first shard's address, zero-filling gaps.
func (d *Dump) WriteTo(out *bytes.Buffer) (int64, error) {
	start := int64(out.Len())

	if d.Compressed {
		for _, s := range d.Shards {
			var hdr [8]byte
			addr.PutLittleEndian(hdr[0:4], uint32(s.Addr))
			addr.PutLittleEndian(hdr[4:8], uint32(len(s.Data)))
			out.Write(hdr[:])
			out.Write(s.Data)
		}

		return int64(out.Len()) - start, nil
	}

	if len(d.Shards) == 0 {
		return 0, nil
	}

	base := d.Shards[0].Addr

	for _, s := range d.Shards {
		gap := int64(s.Addr) - int64(base) - int64(out.Len()-int(start))
		for i := int64(0); i < gap; i++ {
			out.WriteByte(0)
		}

		out.Write(s.Data)
	}

	return int64(out.Len()) - start, nil
}
