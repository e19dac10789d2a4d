package ir

import "sync/atomic"

// KeyAllocator hands out the small stable integers the generated runtime
// tables rely on: keep-reference slot keys and virtual handler numbers.
//
// Allocation order is the order of calls, so a resolve pass that walks the
// IR in declaration order produces the same numbers on every run.
type KeyAllocator struct {
	key     atomic.Int64
	handler atomic.Int64
}

// NewKeyAllocator creates an allocator whose first key is 1 and whose first
// handler number is 0.
func NewKeyAllocator() *KeyAllocator {
	a := &KeyAllocator{}
	a.handler.Store(-1)
	return a
}

// NewKeyAllocatorAt creates an allocator that resumes after lastKey, used
// when a module reserves keys for handwritten code.
func NewKeyAllocatorAt(lastKey int) *KeyAllocator {
	a := NewKeyAllocator()
	a.key.Store(int64(lastKey))
	return a
}

// NextKey returns the next keep-reference key.
func (a *KeyAllocator) NextKey() int {
	return int(a.key.Add(1))
}

// NextHandler returns the next virtual handler number.
func (a *KeyAllocator) NextHandler() int {
	return int(a.handler.Add(1))
}

// Keys returns how many keys have been handed out, including any reserved
// by NewKeyAllocatorAt.
func (a *KeyAllocator) Keys() int {
	return int(a.key.Load())
}

// Handlers returns how many handler numbers have been handed out.
func (a *KeyAllocator) Handlers() int {
	return int(a.handler.Load()) + 1
}
