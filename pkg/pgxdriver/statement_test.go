package pgxdriver

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNullFor(t *testing.T) {
	assert.Nil(t, nullFor(nil))
	assert.Nil(t, nullFor(reflect.TypeFor[any]()))

	s, ok := nullFor(reflect.TypeFor[string]()).(*string)
	assert.True(t, ok)
	assert.Nil(t, s)

	ts, ok := nullFor(reflect.TypeFor[time.Time]()).(*time.Time)
	assert.True(t, ok)
	assert.Nil(t, ts)
}

func TestStatementBindingOrder(t *testing.T) {
	s := &statement{}
	s.Bind(2, "c")
	s.Bind(0, "a")
	s.BindNull(1, reflect.TypeFor[int64]())

	assert.Len(t, s.args, 3)
	assert.Equal(t, "a", s.args[0])
	assert.Equal(t, (*int64)(nil), s.args[1])
	assert.Equal(t, "c", s.args[2])
}
