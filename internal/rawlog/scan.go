package rawlog

import (
	"errors"
	"io"
	"sort"
)

// TypeStat counts the records of one type.
type TypeStat struct {
	Name     string
	Count    int64
	Bytes    int64
	Versions map[uint8]int64
}

// Summary describes the content of a rawlog.
type Summary struct {
	Records int64
	Nulls   int64
	Bytes   int64
	Skipped int64
	Types   map[string]*TypeStat
}

// SortedTypes returns the type statistics ordered by name.
func (s Summary) SortedTypes() []*TypeStat {
	out := make([]*TypeStat, 0, len(s.Types))
	for _, st := range s.Types {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Scan reads r to the end and summarises it. Skipped records are counted
// under their envelope type.
func Scan(r *Reader) (Summary, error) {
	sum := Summary{Types: make(map[string]*TypeStat)}
	add := func(name string, version uint8, size int) {
		st, ok := sum.Types[name]
		if !ok {
			st = &TypeStat{Name: name, Versions: make(map[uint8]int64)}
			sum.Types[name] = st
		}
		st.Count++
		st.Bytes += int64(size)
		st.Versions[version]++
	}

	seen := 0
	for {
		rec, err := r.Next()
		for ; seen < len(r.skipped); seen++ {
			skip := r.skipped[seen].Record
			sum.Records++
			sum.Skipped++
			sum.Bytes += int64(skip.Size)
			add(skip.TypeName, skip.Version, skip.Size)
		}
		if errors.Is(err, io.EOF) {
			return sum, nil
		}
		if err != nil {
			return sum, err
		}
		sum.Records++
		sum.Bytes += int64(rec.Size)
		if rec.IsNull() {
			sum.Nulls++
			continue
		}
		add(rec.TypeName, rec.Version, rec.Size)
	}
}
