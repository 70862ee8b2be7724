package protocol

import (
	"testing"
	"time"
)

type point2D struct {
	X, Y float64
	// Z is not stored; it stays at its default.
	Z float64
}

var point2DVersions = NewVersionTable[*point2D]("Point2D",
	func(in *Archive, p *point2D) error {
		x, _ := in.ReadFloat32()
		y, _ := in.ReadFloat32()
		p.X, p.Y, p.Z = float64(x), float64(y), 0
		return in.Err()
	},
	func(in *Archive, p *point2D) error {
		p.X, _ = in.ReadFloat64()
		p.Y, _ = in.ReadFloat64()
		p.Z = 0
		return in.Err()
	},
)

func (p *point2D) CurrentVersion() uint8 { return point2DVersions.Current() }

func (p *point2D) Encode(out *Archive) error {
	out.WriteFloat64(p.X)
	out.WriteFloat64(p.Y)
	return out.Err()
}

func (p *point2D) Decode(in *Archive, version uint8) error {
	return point2DVersions.Decode(in, p, version)
}

type labelled struct {
	Name string
	Tags []string
	At   time.Time
}

func (l *labelled) CurrentVersion() uint8 { return 0 }

func (l *labelled) Encode(out *Archive) error {
	out.WriteString(l.Name)
	out.WriteStrings(l.Tags)
	out.WriteTimestamp(l.At)
	return out.Err()
}

func (l *labelled) Decode(in *Archive, version uint8) error {
	if version != 0 {
		return in.Fail(&UnsupportedVersionError{TypeName: "Labelled", Version: version})
	}
	l.Name, _ = in.ReadString()
	l.Tags, _ = in.ReadStrings()
	l.At, _ = in.ReadTimestamp()
	return in.Err()
}

// container holds nested polymorphic items; nil items are null slots.
type container struct {
	Items []Serializable
}

func (c *container) CurrentVersion() uint8 { return 0 }

func (c *container) Encode(out *Archive) error {
	return WriteSeq(out, c.Items, (*Archive).WriteObject)
}

func (c *container) Decode(in *Archive, version uint8) error {
	items, err := ReadSeq(in, (*Archive).ReadObject)
	c.Items = items
	return err
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	r.MustRegister("Point2D", func() Serializable { return &point2D{} }, 1)
	r.MustRegister("Labelled", func() Serializable { return &labelled{} }, 0)
	r.MustRegister("Container", func() Serializable { return &container{} }, 0)
	return r
}

type recordingObserver struct {
	written []string
	read    []string
	failed  []error
}

func (o *recordingObserver) ObjectWritten(typeName string, version uint8, size int) {
	o.written = append(o.written, typeName)
}

func (o *recordingObserver) ObjectRead(typeName string, version uint8, size int) {
	o.read = append(o.read, typeName)
}

func (o *recordingObserver) ReadFailed(err error) {
	o.failed = append(o.failed, err)
}
