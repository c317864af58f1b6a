// Package testkit holds invariant checkers shared by runtime tests and
// the stress pipeline.
package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"frost/internal/rt"
)

// CheckHeapInvariants runs the structural block invariants over every
// live block:
//  1. an indirection has scan size 1 and a live field 0
//  2. a black hole has scan size 0
//  3. a lazy constructor's scan size equals its field count
//  4. every owned child handle resolves to a live block
//  5. no block claims more fields than it has slots
//  6. inbound owned references never exceed the refcount ledger
func CheckHeapInvariants(heap *rt.Heap) error {
	live := make(map[rt.Handle]*rt.Block)
	heap.Walk(func(h rt.Handle, b *rt.Block) {
		live[h] = b
	})

	inbound := make(map[rt.Handle]uint32, len(live))
	var err error
	heap.Walk(func(h rt.Handle, b *rt.Block) {
		if err != nil {
			return
		}
		if int(b.ScanSize) > len(b.Fields) {
			err = fmt.Errorf("block %d: scan size %d exceeds %d field slots", h, b.ScanSize, len(b.Fields))
			return
		}
		switch {
		case b.IsIndirection():
			if b.ScanSize != 1 {
				err = fmt.Errorf("indirection %d: scan size %d, want 1", h, b.ScanSize)
				return
			}
			if b.Field(0).IsZero() {
				err = fmt.Errorf("indirection %d: empty result slot", h)
				return
			}
		case b.IsBlackhole():
			if b.ScanSize != 0 {
				err = fmt.Errorf("black hole %d: scan size %d, want 0", h, b.ScanSize)
				return
			}
		case b.IsLazyCon():
			fields, convErr := safecast.Conv[uint32](len(b.Fields))
			if convErr != nil {
				err = fmt.Errorf("block %d: field count overflow: %w", h, convErr)
				return
			}
			if b.ScanSize != fields {
				err = fmt.Errorf("lazy constructor %d: scan size %d, want %d", h, b.ScanSize, fields)
				return
			}
		}
		for i := uint32(0); i < b.ScanSize; i++ {
			f := b.Field(int(i))
			if !f.IsBlock() || f.H == 0 {
				continue
			}
			if _, ok := live[f.H]; !ok {
				err = fmt.Errorf("block %d field %d: dangling handle %d", h, i, f.H)
				return
			}
			inbound[f.H]++
		}
	})
	if err != nil {
		return err
	}

	for h, n := range inbound {
		if b := live[h]; n > b.RefCount()+1 {
			return fmt.Errorf("block %d: %d inbound owned references exceed refcount %d", h, n, b.RefCount())
		}
	}
	return nil
}
