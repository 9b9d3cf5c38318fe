package datastruct

// Queue is an insertion-ordered set. Pushing a value that is already queued
// keeps its original place, so a row touched by several notifications in one
// frame is processed once.
type Queue[T comparable] struct {
	list  *IntrusiveLinkedList[T]
	index map[T]*Node[T]
}

func NewQueue[T comparable]() *Queue[T] {
	return &Queue[T]{
		list:  NewIntrusiveLinkedList[T](),
		index: make(map[T]*Node[T]),
	}
}

// Push appends v unless it is already queued. It reports whether v was added.
func (q *Queue[T]) Push(v T) bool {
	if _, ok := q.index[v]; ok {
		return false
	}
	node := &Node[T]{Data: v}
	q.list.Append(node)
	q.index[v] = node
	return true
}

// Remove drops v from the queue if present.
func (q *Queue[T]) Remove(v T) bool {
	node, ok := q.index[v]
	if !ok {
		return false
	}
	q.list.Remove(node)
	delete(q.index, v)
	return true
}

func (q *Queue[T]) Contains(v T) bool {
	_, ok := q.index[v]
	return ok
}

func (q *Queue[T]) Len() int {
	return len(q.index)
}

// Drain empties the queue and returns its values in order. Values pushed
// while the caller works through the result land in the next drain.
func (q *Queue[T]) Drain() []T {
	out := make([]T, 0, len(q.index))
	for node := q.list.PopFirst(); node != nil; node = q.list.PopFirst() {
		out = append(out, node.Data)
		delete(q.index, node.Data)
	}
	return out
}

func (q *Queue[T]) Clear() {
	q.Drain()
}
