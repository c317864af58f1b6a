package rt

// rcSharedBit is the reserved sentinel in the refcount word: when set,
// the block may be reached from more than one thread. The remaining bits
// hold the reference count, where zero means the holder is the only live
// reference.
const rcSharedBit uint32 = 1 << 31

// Block is a heap cell: a tagged header plus a contiguous vector of field
// slots. The leading ScanSize slots hold owned child values; slots past
// ScanSize are opaque to the collector and to copying.
type Block struct {
	Tag      Tag
	ScanSize uint32
	Fields   []Value

	rc      uint32
	Alive   bool
	AllocID uint64
}

// RefCount returns the reference count without the shared sentinel.
func (b *Block) RefCount() uint32 {
	return b.rc &^ rcSharedBit
}

// IsUnique reports whether the holder is the only live reference.
func (b *Block) IsUnique() bool {
	return b.rc == 0
}

// IsThreadShared reports whether the shared sentinel bit is set.
func (b *Block) IsThreadShared() bool {
	return b.rc&rcSharedBit != 0
}

// IsLazyCon reports whether the block is still an unevaluated thunk.
func (b *Block) IsLazyCon() bool {
	return b.Tag.IsLazyCon()
}

// IsBlackhole reports whether a force is in progress on this block.
func (b *Block) IsBlackhole() bool {
	return b.Tag.IsBlackhole()
}

// IsIndirection reports whether the block has been forced.
func (b *Block) IsIndirection() bool {
	return b.Tag.IsIndirection()
}

// Field returns the value in slot i without transferring ownership.
func (b *Block) Field(i int) Value {
	return b.Fields[i]
}

// SetField stores v into slot i. Ownership of v moves into the block.
func (b *Block) SetField(i int, v Value) {
	b.Fields[i] = v
}

// TakeField moves the value out of slot i, leaving the slot invalid so a
// later release of the block skips it.
func (b *Block) TakeField(i int) Value {
	v := b.Fields[i]
	b.Fields[i] = Value{}
	return v
}
