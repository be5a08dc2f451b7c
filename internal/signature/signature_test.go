package signature

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{name: "identical", a: "abcdef", b: "abcdef", want: true},
		{name: "both empty", a: "", b: "", want: true},
		{name: "differs at first byte", a: "xbcdef", b: "abcdef", want: false},
		{name: "differs at last byte", a: "abcdex", b: "abcdef", want: false},
		{name: "shorter", a: "abc", b: "abcdef", want: false},
		{name: "longer", a: "abcdefg", b: "abcdef", want: false},
		{name: "prefix of other", a: "", b: "a", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
			assert.Equal(t, tt.want, Equal(tt.b, tt.a), "Equal must be symmetric")
		})
	}
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "***", Redact(""))
	assert.Equal(t, "***", Redact("abc"))
	assert.Equal(t, "abcdef...", Redact("abcdefghijkl"))
}

func TestResultErr(t *testing.T) {
	assert.NoError(t, Result{Authentic: true}.Err())
	assert.ErrorIs(t, Result{}.Err(), ErrInvalidSignature)
}

func TestWithinTolerance(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	o := defaultOptions()
	WithClock(func() time.Time { return now })(&o)

	assert.True(t, o.withinTolerance(now.Unix()))
	assert.True(t, o.withinTolerance(now.Add(-DefaultTolerance).Unix()))
	assert.True(t, o.withinTolerance(now.Add(DefaultTolerance).Unix()))
	assert.False(t, o.withinTolerance(now.Add(-DefaultTolerance-time.Second).Unix()))
	assert.False(t, o.withinTolerance(now.Add(DefaultTolerance+time.Second).Unix()))

	WithTolerance(0)(&o)
	assert.True(t, o.withinTolerance(0), "zero tolerance disables the window")

	WithTolerance(-time.Minute)(&o)
	assert.Equal(t, time.Duration(0), o.tolerance)
}
