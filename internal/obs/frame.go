package obs

import (
	"time"

	"github.com/danmuck/rawlog/internal/protocol"
)

const TypeSensoryFrame = "SensoryFrame"

// SensoryFrame groups observations taken at roughly the same instant. Nil
// entries are kept as null slots.
type SensoryFrame struct {
	Observations []protocol.Serializable
}

func (f *SensoryFrame) CurrentVersion() uint8 { return 0 }

func (f *SensoryFrame) Encode(out *protocol.Archive) error {
	return protocol.WriteSeq(out, f.Observations, (*protocol.Archive).WriteObject)
}

func (f *SensoryFrame) Decode(in *protocol.Archive, version uint8) error {
	if version != 0 {
		return in.Fail(&protocol.UnsupportedVersionError{TypeName: TypeSensoryFrame, Version: version})
	}
	items, err := protocol.ReadSeq(in, (*protocol.Archive).ReadObject)
	f.Observations = items
	return err
}

// Each calls fn for every non-null observation that implements Observation,
// descending into nested frames.
func (f *SensoryFrame) Each(fn func(Observation) error) error {
	for _, item := range f.Observations {
		switch o := item.(type) {
		case nil:
		case *SensoryFrame:
			if err := o.Each(fn); err != nil {
				return err
			}
		case Observation:
			if err := fn(o); err != nil {
				return err
			}
		}
	}
	return nil
}

// Time is the earliest valid observation timestamp in the frame.
func (f *SensoryFrame) Time() time.Time {
	var earliest time.Time
	_ = f.Each(func(o Observation) error {
		if ts := o.Time(); !ts.IsZero() && (earliest.IsZero() || ts.Before(earliest)) {
			earliest = ts
		}
		return nil
	})
	return earliest
}

func (f *SensoryFrame) Len() int {
	return len(f.Observations)
}
