package rt

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"
)

// Current schema version - increment when the snapshot format changes.
const snapshotSchemaVersion uint16 = 1

// SnapshotValue is the serialized form of one field slot.
type SnapshotValue struct {
	Kind   uint8
	Int    int64  `msgpack:",omitempty"`
	Bool   bool   `msgpack:",omitempty"`
	Handle uint32 `msgpack:",omitempty"`
}

// SnapshotBlock is the serialized form of one live block.
type SnapshotBlock struct {
	Handle uint32
	Tag    uint16
	Scan   uint32
	RC     uint32
	Shared bool
	Fields []SnapshotValue
}

// Snapshot is a schema-versioned dump of the live heap, written with
// msgpack for offline inspection.
type Snapshot struct {
	Schema     uint16
	NextHandle uint32
	Blocks     []SnapshotBlock
}

// CaptureSnapshot serializes every live block in handle order.
func CaptureSnapshot(h *Heap) *Snapshot {
	snap := &Snapshot{
		Schema:     snapshotSchemaVersion,
		NextHandle: uint32(h.next),
	}
	h.Walk(func(handle Handle, b *Block) {
		sb := SnapshotBlock{
			Handle: uint32(handle),
			Tag:    uint16(b.Tag),
			Scan:   b.ScanSize,
			RC:     b.RefCount(),
			Shared: b.IsThreadShared(),
		}
		for _, f := range b.Fields {
			sb.Fields = append(sb.Fields, SnapshotValue{
				Kind:   uint8(f.Kind),
				Int:    f.Int,
				Bool:   f.Bool,
				Handle: uint32(f.H),
			})
		}
		snap.Blocks = append(snap.Blocks, sb)
	})
	return snap
}

// WriteFile serializes the snapshot to path, writing through a temp file
// so a crash never leaves a truncated snapshot behind.
func (s *Snapshot) WriteFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "tmp-*")
	if err != nil {
		return err
	}
	tmpName := f.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	enc := msgpack.NewEncoder(f)
	if err := enc.Encode(s); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// ReadSnapshot loads and validates a snapshot file.
func ReadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%s: decode snapshot: %w", path, err)
	}
	if snap.Schema != snapshotSchemaVersion {
		return nil, fmt.Errorf("%s: snapshot schema %d, want %d", path, snap.Schema, snapshotSchemaVersion)
	}
	return &snap, nil
}
