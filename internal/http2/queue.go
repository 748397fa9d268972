package http2

import "container/list"

// RequestQueue is an ordered queue of requests with O(1) removal by
// identity. The connection keeps two: requests not yet written to the wire,
// and written requests awaiting their responses. FIFO order and the tail
// position are properties of the underlying list rather than hand-maintained
// pointers.
type RequestQueue struct {
	l     *list.List
	index map[*Request]*list.Element
}

// NewRequestQueue creates an empty queue.
func NewRequestQueue() *RequestQueue {
	return &RequestQueue{
		l:     list.New(),
		index: make(map[*Request]*list.Element),
	}
}

// Len returns the number of queued requests.
func (q *RequestQueue) Len() int { return q.l.Len() }

// Head returns the oldest queued request without removing it, or nil.
func (q *RequestQueue) Head() *Request {
	front := q.l.Front()
	if front == nil {
		return nil
	}
	return front.Value.(*Request)
}

// Push appends a request at the tail. A request already present is not
// queued twice.
func (q *RequestQueue) Push(r *Request) {
	if _, ok := q.index[r]; ok {
		return
	}
	q.index[r] = q.l.PushBack(r)
}

// Remove unlinks a request by identity, wherever it sits in the queue.
// It reports whether the request was present.
func (q *RequestQueue) Remove(r *Request) bool {
	el, ok := q.index[r]
	if !ok {
		return false
	}
	q.l.Remove(el)
	delete(q.index, r)
	return true
}

// Contains reports whether the request is queued.
func (q *RequestQueue) Contains(r *Request) bool {
	_, ok := q.index[r]
	return ok
}
