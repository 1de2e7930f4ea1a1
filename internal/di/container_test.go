package di

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct{ name string }

func TestContainer_RegisterGetRemove(t *testing.T) {
	c := NewContainer()
	assert.Nil(t, c.Get("w"))
	assert.False(t, c.Has("w"))

	w := &widget{name: "a"}
	c.Register("w", w)
	assert.True(t, c.Has("w"))
	assert.Same(t, w, c.Get("w"))

	c.Register("z", 1)
	assert.Equal(t, []string{"w", "z"}, c.GetNames())

	c.Remove("w")
	assert.False(t, c.Has("w"))

	c.Clear()
	assert.Empty(t, c.GetNames())
}

func TestResolve(t *testing.T) {
	c := NewContainer()
	c.Register("w", &widget{name: "a"})
	c.Register("n", 42)

	w, err := Resolve[*widget](c, "w")
	require.NoError(t, err)
	assert.Equal(t, "a", w.name)

	_, err = Resolve[*widget](c, "n")
	assert.ErrorContains(t, err, `service "n" has type int`)

	_, err = Resolve[*widget](c, "missing")
	assert.ErrorContains(t, err, "not registered")

	assert.Panics(t, func() { MustResolve[*widget](c, "missing") })
	assert.Equal(t, 42, MustResolve[int](c, "n"))
}

func TestGetContainer_Singleton(t *testing.T) {
	var wg sync.WaitGroup
	got := make([]*Container, 8)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = GetContainer()
		}(i)
	}
	wg.Wait()
	for _, c := range got {
		assert.Same(t, got[0], c)
	}
}
