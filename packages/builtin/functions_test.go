package builtin

import (
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Call(t *testing.T) {
	r := NewRegistry()

	t.Run("uuid", func(t *testing.T) {
		v, ok := r.Call("uuid()")
		require.True(t, ok)
		assert.Regexp(t, `^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`, v)
	})

	t.Run("timestamp", func(t *testing.T) {
		v, ok := r.Call("timestamp()")
		require.True(t, ok)
		ts, isInt := v.(int64)
		require.True(t, isInt)
		assert.InDelta(t, time.Now().Unix(), ts, 5)
	})

	t.Run("now is RFC3339", func(t *testing.T) {
		v, ok := r.Call("now()")
		require.True(t, ok)
		_, err := time.Parse(time.RFC3339, v.(string))
		assert.NoError(t, err)
	})

	t.Run("randomInt respects range", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			v, ok := r.Call("randomInt(5, 10)")
			require.True(t, ok)
			n := v.(int)
			assert.GreaterOrEqual(t, n, 5)
			assert.LessOrEqual(t, n, 10)
		}
	})

	t.Run("randomString length", func(t *testing.T) {
		v, ok := r.Call("randomString(24)")
		require.True(t, ok)
		assert.Len(t, v.(string), 24)
	})

	t.Run("randomHex odd length", func(t *testing.T) {
		v, ok := r.Call("randomHex(7)")
		require.True(t, ok)
		s := v.(string)
		assert.Len(t, s, 7)
		assert.True(t, regexp.MustCompile(`^[0-9a-f]+$`).MatchString(s))
	})

	t.Run("base64", func(t *testing.T) {
		v, ok := r.Call(`base64("hello")`)
		require.True(t, ok)
		assert.Equal(t, "aGVsbG8=", v)
	})

	t.Run("sha256", func(t *testing.T) {
		v, ok := r.Call("sha256(abc)")
		require.True(t, ok)
		assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", v)
	})

	t.Run("urlEncode", func(t *testing.T) {
		v, ok := r.Call("urlEncode(a b&c)")
		require.True(t, ok)
		assert.Equal(t, "a+b%26c", v)
	})

	t.Run("unknown function", func(t *testing.T) {
		_, ok := r.Call("nope()")
		assert.False(t, ok)
	})

	t.Run("not a call", func(t *testing.T) {
		_, ok := r.Call("userId")
		assert.False(t, ok)
	})
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	r.Register("double", func(args []string) any {
		n, _ := strconv.Atoi(args[0])
		return n * 2
	})
	v, ok := r.Call("double(21)")
	require.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestSplitArgs(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitArgs("a, b, c"))
	assert.Equal(t, []string{"a,b", "c"}, splitArgs(`"a,b", c`))
	assert.Equal(t, []string{"with space"}, splitArgs("'with space'"))
}
