package protocol

import (
	"errors"
	"sync"
	"testing"

	"github.com/danmuck/rawlog/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
)

type otherPoint struct{ point2D }

func TestRegistryIdempotentRegistration(t *testing.T) {
	testlog.Start(t)

	r := NewRegistry()
	factory := func() Serializable { return &point2D{} }
	require.NoError(t, r.Register("Point2D", factory, 1))
	// A distinct func value building the same type counts as the same factory.
	require.NoError(t, r.Register("Point2D", func() Serializable { return new(point2D) }, 1))
	require.Equal(t, 1, r.Len())
}

func TestRegistryDuplicateRegistration(t *testing.T) {
	testlog.Start(t)

	r := NewRegistry()
	require.NoError(t, r.Register("Point2D", func() Serializable { return &point2D{} }, 1))

	err := r.Register("Point2D", func() Serializable { return &otherPoint{} }, 1)
	require.ErrorIs(t, err, ErrDuplicateRegistration)

	err = r.Register("Point2DAlias", func() Serializable { return &point2D{} }, 1)
	require.ErrorIs(t, err, ErrDuplicateRegistration)
}

type defaultPoint struct{ point2D }

func TestRegisterTypeOnDefault(t *testing.T) {
	testlog.Start(t)

	factory := func() Serializable { return &defaultPoint{} }
	require.NoError(t, RegisterType("DefaultPoint", factory, 1))
	require.NotPanics(t, func() { MustRegisterType("DefaultPoint", factory, 1) })
	require.Panics(t, func() {
		MustRegisterType("DefaultPoint", func() Serializable { return &otherPoint{} }, 1)
	})

	desc, ok := Default.Lookup("DefaultPoint")
	require.True(t, ok)
	require.Equal(t, uint8(1), desc.CurrentVersion)

	buf := NewBuffer(nil)
	s := NewStream(buf)
	require.NoError(t, s.WriteObject(&defaultPoint{point2D{X: 5}}))
	obj, err := s.ReadObject()
	require.NoError(t, err)
	require.IsType(t, &defaultPoint{}, obj)
	require.Equal(t, 5.0, obj.(*defaultPoint).X)
}

func TestRegistryRejectsBadRegistrations(t *testing.T) {
	testlog.Start(t)

	r := NewRegistry()
	require.ErrorIs(t, r.Register("Nil", nil, 0), ErrInvalidFactory)
	require.ErrorIs(t, r.Register("NilResult", func() Serializable { return (*point2D)(nil) }, 1), ErrInvalidFactory)
	require.ErrorIs(t, r.Register("Point2D", func() Serializable { return &point2D{} }, 0), ErrVersionMismatch)
	require.ErrorIs(t, r.Register("", func() Serializable { return &point2D{} }, 1), ErrInvalidTypeName)
	require.ErrorIs(t, r.Register("has space", func() Serializable { return &point2D{} }, 1), ErrInvalidTypeName)
	require.Zero(t, r.Len())
}

func TestRegistryCreateAndLookup(t *testing.T) {
	testlog.Start(t)

	r := newTestRegistry(t)

	obj, err := r.Create("Point2D")
	require.NoError(t, err)
	require.IsType(t, &point2D{}, obj)
	require.Equal(t, &point2D{}, obj)

	v, err := r.CurrentVersionOf("Point2D")
	require.NoError(t, err)
	require.Equal(t, uint8(1), v)

	name, err := r.NameOf(&labelled{})
	require.NoError(t, err)
	require.Equal(t, "Labelled", name)

	_, err = r.Create("missing")
	require.ErrorIs(t, err, ErrUnknownType)
	var unknown *UnknownTypeError
	require.True(t, errors.As(err, &unknown))
	require.Equal(t, "missing", unknown.Name)

	_, err = r.CurrentVersionOf("missing")
	require.ErrorIs(t, err, ErrUnknownType)

	_, err = r.NameOf(&otherPoint{})
	require.ErrorIs(t, err, ErrUnknownType)
}

func TestRegistryListSorted(t *testing.T) {
	testlog.Start(t)

	list := newTestRegistry(t).List()
	require.Len(t, list, 3)
	require.Equal(t, "Container", list[0].Name)
	require.Equal(t, "Labelled", list[1].Name)
	require.Equal(t, "Point2D", list[2].Name)
	require.Equal(t, uint8(1), list[2].CurrentVersion)
}

func TestRegistryConcurrentRegistration(t *testing.T) {
	testlog.Start(t)

	r := NewRegistry()
	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- r.Register("Point2D", func() Serializable { return &point2D{} }, 1)
			if _, err := r.Create("Point2D"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, 1, r.Len())
}
