package rawlog

import (
	"errors"
	"io"

	"github.com/danmuck/rawlog/internal/obs"
	"github.com/danmuck/rawlog/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Selection chooses which records Filter copies.
type Selection struct {
	// Types keeps only these type names; empty keeps everything. Inside
	// sensory frames the selection applies to the nested observations.
	Types []string
	// From and To bound the top-level record index, inclusive. To < 0 means
	// no upper bound.
	From int64
	To   int64
	// DropNulls discards null records.
	DropNulls bool
}

// All selects every record.
func All() Selection {
	return Selection{To: -1}
}

func (s Selection) inRange(index int64) bool {
	return index >= s.From && (s.To < 0 || index <= s.To)
}

func (s Selection) keeps(name string) bool {
	if len(s.Types) == 0 {
		return true
	}
	for _, t := range s.Types {
		if t == name {
			return true
		}
	}
	return false
}

// FilterStats reports what Filter did.
type FilterStats struct {
	Read    int64
	Written int64
	Dropped int64
}

// Filter copies the selected records of in to out. Every object is decoded
// and re-encoded, so the output holds current versions only.
func Filter(in *Reader, out *Writer, sel Selection) (FilterStats, error) {
	var stats FilterStats
	registry := in.stream.Registry()
	for {
		rec, err := in.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, err
		}
		stats.Read++
		if !sel.inRange(rec.Index) {
			stats.Dropped++
			if sel.To >= 0 && rec.Index > sel.To {
				break
			}
			continue
		}

		if rec.IsNull() {
			if sel.DropNulls {
				stats.Dropped++
				continue
			}
			if err := out.WriteNull(); err != nil {
				return stats, err
			}
			stats.Written++
			continue
		}

		obj := rec.Object
		if frame, ok := obj.(*obs.SensoryFrame); ok && len(sel.Types) > 0 && !sel.keeps(rec.TypeName) {
			obj = selectFrame(registry, frame, sel)
		} else if !sel.keeps(rec.TypeName) {
			obj = nil
		}
		if obj == nil {
			stats.Dropped++
			continue
		}
		if err := out.Write(obj); err != nil {
			return stats, err
		}
		stats.Written++
	}
	log.Debug().Int64("read", stats.Read).Int64("written", stats.Written).Int64("dropped", stats.Dropped).Msg("rawlog filtered")
	return stats, nil
}

// selectFrame keeps the selected observations of frame, or returns nil when
// none remain.
func selectFrame(registry *protocol.Registry, frame *obs.SensoryFrame, sel Selection) protocol.Serializable {
	kept := make([]protocol.Serializable, 0, len(frame.Observations))
	for _, item := range frame.Observations {
		if item == nil {
			continue
		}
		if inner, ok := item.(*obs.SensoryFrame); ok {
			if sub := selectFrame(registry, inner, sel); sub != nil {
				kept = append(kept, sub)
			}
			continue
		}
		name, err := registry.NameOf(item)
		if err == nil && sel.keeps(name) {
			kept = append(kept, item)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return &obs.SensoryFrame{Observations: kept}
}
