// The MIT License (MIT)
//
// # Copyright (c) 2016 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package rqueue implements a growable, order-preserving FIFO queue backed
// by a chain of geometrically-doubling blocks. Once allocated, a block is
// never released back to the runtime: when the head drains past it, the
// block is pushed onto a free-list and reused the next time the tail needs
// room, instead of allocating a bigger one. A brand-new block is only
// allocated when the free-list is empty.
package rqueue

import "errors"

// ErrOutOfMemory is returned by Insert when growing the queue requires a new
// block and the allocation could not be satisfied.
var ErrOutOfMemory = errors.New("rqueue: out of memory")

const firstBlockCap = 8

type block[T any] struct {
	items []T
	next  *block[T]
}

// Queue is a generic growable FIFO. The zero value is not usable; use New.
type Queue[T any] struct {
	head, tail       *block[T]
	headIdx, tailIdx int
	free             *block[T]
	count, cap       int
	lastCap          int
}

// New returns an empty queue. No storage is allocated until the first Insert.
func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Len reports the number of entries currently queued.
func (q *Queue[T]) Len() int { return q.count }

func tryAlloc[T any](n int) (s []T, err error) {
	defer func() {
		if r := recover(); r != nil {
			s = nil
			err = ErrOutOfMemory
		}
	}()
	return make([]T, n), nil
}

func (q *Queue[T]) grow() error {
	if q.free != nil {
		nb := q.free
		q.free = nb.next
		nb.next = nil
		if q.tail == nil {
			q.head, q.tail = nb, nb
		} else {
			q.tail.next = nb
			q.tail = nb
		}
		q.tailIdx = 0
		q.cap += len(nb.items)
		return nil
	}

	newCap := firstBlockCap
	if q.lastCap > 0 {
		newCap = q.lastCap * 2
	}
	items, err := tryAlloc[T](newCap)
	if err != nil {
		return err
	}
	nb := &block[T]{items: items}
	if q.tail == nil {
		q.head, q.tail = nb, nb
	} else {
		q.tail.next = nb
		q.tail = nb
	}
	q.tailIdx = 0
	q.cap += newCap
	q.lastCap = newCap
	return nil
}

// Insert appends v to the tail. It returns ErrOutOfMemory if growing the
// queue was necessary and the new block could not be allocated; the queue
// is left unchanged in that case.
func (q *Queue[T]) Insert(v T) error {
	if q.tail == nil || q.tailIdx == len(q.tail.items) {
		if err := q.grow(); err != nil {
			return err
		}
	}
	q.tail.items[q.tailIdx] = v
	q.tailIdx++
	q.count++
	return nil
}

// Peek returns the head entry without removing it.
func (q *Queue[T]) Peek() (v T, ok bool) {
	if q.count == 0 {
		return v, false
	}
	return q.head.items[q.headIdx], true
}

// Remove removes and returns the head entry.
func (q *Queue[T]) Remove() (v T, ok bool) {
	if q.count == 0 {
		return v, false
	}
	v = q.head.items[q.headIdx]
	var zero T
	q.head.items[q.headIdx] = zero
	q.headIdx++
	q.count--
	if q.headIdx == len(q.head.items) {
		drained := q.head
		if drained == q.tail {
			q.tail, q.tailIdx = nil, 0
		}
		q.head = q.head.next
		q.headIdx = 0
		q.cap -= len(drained.items)
		drained.next = q.free
		q.free = drained
	}
	return v, true
}

// Free drops every reference the queue holds, allowing the backing blocks
// to be garbage collected. The queue is empty and reusable afterwards.
func (q *Queue[T]) Free() {
	q.head, q.tail, q.free = nil, nil, nil
	q.headIdx, q.tailIdx = 0, 0
	q.count, q.cap, q.lastCap = 0, 0, 0
}
