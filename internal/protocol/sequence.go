package protocol

import "fmt"

// maxPrealloc bounds the capacity reserved from an untrusted element count.
const maxPrealloc = 4096

// WriteSeqLen writes a uint32 element count.
func (a *Archive) WriteSeqLen(n int) error {
	if a.err != nil {
		return a.err
	}
	if uint64(n) > uint64(a.limits.MaxSequenceLen) {
		return a.Fail(fmt.Errorf("%w: %d elements, max %d", ErrSequenceTooLong, n, a.limits.MaxSequenceLen))
	}
	return a.WriteUint32(uint32(n))
}

// ReadSeqLen reads a uint32 element count and checks it against the limits.
func (a *Archive) ReadSeqLen() (int, error) {
	n, err := a.ReadUint32()
	if err != nil {
		return 0, err
	}
	if n > a.limits.MaxSequenceLen {
		return 0, a.Fail(fmt.Errorf("%w: %d elements, max %d", ErrSequenceTooLong, n, a.limits.MaxSequenceLen))
	}
	return int(n), nil
}

// WriteSeq writes a counted sequence using write for each element.
func WriteSeq[T any](a *Archive, items []T, write func(*Archive, T) error) error {
	if err := a.WriteSeqLen(len(items)); err != nil {
		return err
	}
	for _, item := range items {
		if err := write(a, item); err != nil {
			return a.Fail(err)
		}
	}
	return a.err
}

// ReadSeq reads a counted sequence using read for each element.
func ReadSeq[T any](a *Archive, read func(*Archive) (T, error)) ([]T, error) {
	n, err := a.ReadSeqLen()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]T, 0, min(n, maxPrealloc))
	for i := 0; i < n; i++ {
		item, err := read(a)
		if err != nil {
			return nil, a.Fail(err)
		}
		out = append(out, item)
	}
	return out, nil
}

func (a *Archive) WriteFloat32s(v []float32) error {
	return WriteSeq(a, v, (*Archive).WriteFloat32)
}

func (a *Archive) ReadFloat32s() ([]float32, error) {
	return ReadSeq(a, (*Archive).ReadFloat32)
}

func (a *Archive) WriteFloat64s(v []float64) error {
	return WriteSeq(a, v, (*Archive).WriteFloat64)
}

func (a *Archive) ReadFloat64s() ([]float64, error) {
	return ReadSeq(a, (*Archive).ReadFloat64)
}

func (a *Archive) WriteStrings(v []string) error {
	return WriteSeq(a, v, (*Archive).WriteString)
}

func (a *Archive) ReadStrings() ([]string, error) {
	return ReadSeq(a, (*Archive).ReadString)
}
