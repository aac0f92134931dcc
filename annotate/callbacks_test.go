package annotate

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestCallbackList(t *testing.T) {
	callbacks := NewCallbackList[func() int]()
	assert.Equal(t, 0, len(callbacks.Get()))

	removeA := callbacks.Add(func() int {
		return 1
	})
	removeB := callbacks.Add(func() int {
		return 2
	})

	values := []int{}
	for _, callback := range callbacks.Get() {
		values = append(values, callback())
	}
	assert.Equal(t, []int{1, 2}, values)

	removeA()
	values = []int{}
	for _, callback := range callbacks.Get() {
		values = append(values, callback())
	}
	assert.Equal(t, []int{2}, values)

	// removing twice is safe
	removeA()
	assert.Equal(t, 1, len(callbacks.Get()))

	removeB()
	assert.Equal(t, 0, len(callbacks.Get()))
}
