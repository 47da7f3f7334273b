package core

import (
	"fmt"
	"reflect"
	"sync"
)

// Container is the registry host modules share objects through. Keys are
// usually TypeKey values set by Put.
type Container interface {
	Set(key, val any)
	Get(key any) (any, bool)
	MustGet(key any) any
}

type container struct {
	mu     sync.RWMutex
	values map[any]any
}

func NewContainer() Container {
	return &container{values: map[any]any{}}
}

func (c *container) Set(key, val any) {
	c.mu.Lock()
	c.values[key] = val
	c.mu.Unlock()
}

func (c *container) Get(key any) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok
}

func (c *container) MustGet(key any) any {
	v, ok := c.Get(key)
	if !ok {
		panic(fmt.Errorf("container: nothing registered for %T", key))
	}
	return v
}

// TypeKey keys a value by its static type.
type TypeKey[T any] struct{}

// Put stores v under TypeKey[T].
func Put[T any](c Container, v T) { c.Set(TypeKey[T]{}, v) }

// Lookup returns the T stored by Put, if any.
func Lookup[T any](c Container) (T, bool) {
	var zero T
	raw, ok := c.Get(TypeKey[T]{})
	if !ok {
		return zero, false
	}
	v, ok := raw.(T)
	return v, ok
}

// Get returns the T stored by Put and panics when it is missing. Use it
// for objects a module declared in DependsOn.
func Get[T any](c Container) T {
	v, ok := Lookup[T](c)
	if !ok {
		panic(fmt.Errorf("container: no %v registered", reflect.TypeFor[T]()))
	}
	return v
}
