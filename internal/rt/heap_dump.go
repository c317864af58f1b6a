package rt

import (
	"fmt"
	"sort"
	"strings"
)

type heapDumpRecord struct {
	family string
	tag    string
	rc     uint32
	shared bool
	scan   uint32
	fields int
	line   string
}

// DumpString renders every live block as one sorted "BLK ..." line,
// collapsing identical lines with a count suffix. Handle values are
// deliberately absent so the output is stable across allocation order.
func (h *Heap) DumpString() string {
	records := make([]heapDumpRecord, 0)
	h.Walk(func(_ Handle, b *Block) {
		records = append(records, heapDumpRecordFor(b))
	})
	if len(records) == 0 {
		return ""
	}

	sort.Slice(records, func(i, j int) bool {
		a := records[i]
		b := records[j]
		if a.family != b.family {
			return a.family < b.family
		}
		if a.tag != b.tag {
			return a.tag < b.tag
		}
		if a.scan != b.scan {
			return a.scan < b.scan
		}
		if a.fields != b.fields {
			return a.fields < b.fields
		}
		if a.rc != b.rc {
			return a.rc < b.rc
		}
		return a.line < b.line
	})

	var sb strings.Builder
	for i := 0; i < len(records); {
		line := records[i].line
		count := 1
		for j := i + 1; j < len(records); j++ {
			if records[j].line != line {
				break
			}
			count++
		}
		sb.WriteString(line)
		if count > 1 {
			sb.WriteString(fmt.Sprintf(" count=%d", count))
		}
		sb.WriteString("\n")
		i += count
	}
	return sb.String()
}

func heapDumpRecordFor(b *Block) heapDumpRecord {
	rec := heapDumpRecord{
		family: tagFamilyLabel(b.Tag),
		tag:    b.Tag.String(),
		rc:     b.RefCount(),
		shared: b.IsThreadShared(),
		scan:   b.ScanSize,
		fields: len(b.Fields),
	}
	rec.line = rec.formatLine()
	return rec
}

func (rec heapDumpRecord) formatLine() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "BLK family=%s tag=%s rc=%d scan=%d fields=%d", rec.family, rec.tag, rec.rc, rec.scan, rec.fields)
	if rec.shared {
		sb.WriteString(" shared")
	}
	return sb.String()
}

// BlockSummary renders one block as "family(rc=N,tag=...,scan=N)".
func BlockSummary(b *Block) string {
	if b == nil {
		return "<invalid>"
	}
	return fmt.Sprintf("%s(rc=%d,tag=%s,scan=%d)", tagFamilyLabel(b.Tag), b.RefCount(), b.Tag, b.ScanSize)
}
