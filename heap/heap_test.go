package heap

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/vektra/neko"
)

func TestAllocate(t *testing.T) {
	n := neko.Modern(t)

	n.It("hands out disjoint live regions", func(t *testing.T) {
		h := New(0)

		a, err := h.Allocate(16)
		require.NoError(t, err)

		b, err := h.Allocate(16)
		require.NoError(t, err)

		require.True(t, a+16 <= b || b+16 <= a)
	})

	n.It("never hands out address zero", func(t *testing.T) {
		h := New(0)

		a, err := h.Allocate(1)
		require.NoError(t, err)
		require.True(t, a > 0)
	})

	n.It("reuses freed blocks of the same size", func(t *testing.T) {
		h := New(0)

		a, err := h.Allocate(32)
		require.NoError(t, err)

		require.NoError(t, h.Free(a))

		b, err := h.Allocate(32)
		require.NoError(t, err)
		require.Equal(t, a, b)
	})

	n.It("zeroes freed memory before reuse", func(t *testing.T) {
		h := New(0)

		a, err := h.Allocate(8)
		require.NoError(t, err)
		require.NoError(t, h.WriteInt32(a, 1234))

		require.NoError(t, h.Free(a))

		b, err := h.Allocate(8)
		require.NoError(t, err)
		require.Equal(t, a, b)

		v, err := h.ReadInt32(b)
		require.NoError(t, err)
		require.Equal(t, int32(0), v)
	})

	n.It("fails when capacity runs out", func(t *testing.T) {
		h := New(64)

		_, err := h.Allocate(48)
		require.NoError(t, err)

		_, err = h.Allocate(48)
		require.Error(t, err)
		require.Equal(t, ErrExhausted, errors.Cause(err))
	})

	n.It("tracks bytes in use", func(t *testing.T) {
		h := New(0)

		a, err := h.Allocate(10)
		require.NoError(t, err)

		_, err = h.Allocate(20)
		require.NoError(t, err)

		require.Equal(t, int32(30), h.InUse())

		require.NoError(t, h.Free(a))
		require.Equal(t, int32(20), h.InUse())
	})

	n.Meow()
}

func TestFree(t *testing.T) {
	n := neko.Modern(t)

	n.It("rejects a second free of the same address", func(t *testing.T) {
		h := New(0)

		a, err := h.Allocate(8)
		require.NoError(t, err)

		require.NoError(t, h.Free(a))

		err = h.Free(a)
		require.Error(t, err)
		require.Equal(t, ErrDoubleFree, errors.Cause(err))
	})

	n.It("rejects freeing an address never allocated", func(t *testing.T) {
		h := New(0)

		err := h.Free(12345)
		require.Error(t, err)
		require.Equal(t, ErrDoubleFree, errors.Cause(err))
	})

	n.Meow()
}

func TestAccess(t *testing.T) {
	n := neko.Modern(t)

	n.It("round-trips int32 values little-endian", func(t *testing.T) {
		h := New(0)

		a, err := h.Allocate(8)
		require.NoError(t, err)

		require.NoError(t, h.WriteInt32(a, 0x01020304))

		b0, err := h.ReadByte(a)
		require.NoError(t, err)
		require.Equal(t, byte(0x04), b0)

		v, err := h.ReadInt32(a)
		require.NoError(t, err)
		require.Equal(t, int32(0x01020304), v)
	})

	n.It("rejects access outside any live allocation", func(t *testing.T) {
		h := New(0)

		a, err := h.Allocate(4)
		require.NoError(t, err)

		err = h.WriteInt32(a+2, 1)
		require.Error(t, err)
		require.Equal(t, ErrOutOfRange, errors.Cause(err))

		_, err = h.ReadByte(a + 4)
		require.Error(t, err)
	})

	n.It("rejects access to freed memory", func(t *testing.T) {
		h := New(0)

		a, err := h.Allocate(4)
		require.NoError(t, err)
		require.NoError(t, h.Free(a))

		_, err = h.ReadByte(a)
		require.Error(t, err)
	})

	n.It("stores and reads NUL-terminated strings", func(t *testing.T) {
		h := New(0)

		addr, err := h.StoreString("hello")
		require.NoError(t, err)

		s, err := h.ReadString(addr)
		require.NoError(t, err)
		require.Equal(t, "hello", s)
	})

	n.It("copies between regions", func(t *testing.T) {
		h := New(0)

		src, err := h.StoreString("abc")
		require.NoError(t, err)

		dst, err := h.Allocate(4)
		require.NoError(t, err)

		require.NoError(t, h.Copy(dst, src, 4))

		s, err := h.ReadString(dst)
		require.NoError(t, err)
		require.Equal(t, "abc", s)
	})

	n.Meow()
}
