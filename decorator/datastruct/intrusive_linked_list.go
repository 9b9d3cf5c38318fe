package datastruct

import "iter"

// An intrusive linked list is a data structure where the nodes are
// self-contained and manage their own links to other nodes.
type IntrusiveLinkedList[T comparable] struct {
	First *Node[T] // Pointer to the first node
	Last  *Node[T] // Pointer to the last node
}

type Node[T any] struct {
	Next *Node[T] // Pointer to the next node in the list
	Prev *Node[T] // Pointer to the previous node in the list
	Data T        // The data contained in the node
}

func NewIntrusiveLinkedList[T comparable]() *IntrusiveLinkedList[T] {
	return &IntrusiveLinkedList[T]{}
}

// Insert a new node after an existing node.
func (l *IntrusiveLinkedList[T]) InsertAfter(node *Node[T], newNode *Node[T]) {
	newNode.Prev = node
	if nextNode := node.Next; nextNode != nil {
		// Intermediate node.
		newNode.Next = nextNode
		nextNode.Prev = newNode
	} else {
		// Last element of the list.
		newNode.Next = nil
		l.Last = newNode
	}
	node.Next = newNode
}

// Insert a new node before an existing node.
func (l *IntrusiveLinkedList[T]) InsertBefore(node *Node[T], newNode *Node[T]) {
	newNode.Next = node
	if prevNode := node.Prev; prevNode != nil {
		// Intermediate node.
		newNode.Prev = prevNode
		prevNode.Next = newNode
	} else {
		// First element of the list.
		newNode.Prev = nil
		l.First = newNode
	}
	node.Prev = newNode
}

// Insert a new node at the end of the list.
func (l *IntrusiveLinkedList[T]) Append(newNode *Node[T]) {
	if lastNode := l.Last; lastNode != nil {
		l.InsertAfter(lastNode, newNode)
	} else {
		l.Prepend(newNode)
	}
}

// Insert a new node at the beginning of the list.
func (l *IntrusiveLinkedList[T]) Prepend(newNode *Node[T]) {
	if firstNode := l.First; firstNode != nil {
		l.InsertBefore(firstNode, newNode)
	} else {
		// Empty list
		l.First = newNode
		l.Last = newNode
		newNode.Prev = nil
		newNode.Next = nil
	}
}

// Remove a node from the list.
func (l *IntrusiveLinkedList[T]) Remove(node *Node[T]) {
	if prevNode := node.Prev; prevNode != nil {
		prevNode.Next = node.Next
	} else {
		l.First = node.Next
	}

	if nextNode := node.Next; nextNode != nil {
		nextNode.Prev = node.Prev
	} else {
		l.Last = node.Prev
	}
	node.Prev, node.Next = nil, nil
}

// Remove and return the first node in the list.
func (l *IntrusiveLinkedList[T]) PopFirst() *Node[T] {
	firstNode := l.First
	if firstNode == nil {
		return nil
	}
	l.Remove(firstNode)
	return firstNode
}

// All yields the values front to back.
func (l *IntrusiveLinkedList[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for node := l.First; node != nil; node = node.Next {
			if !yield(node.Data) {
				return
			}
		}
	}
}
