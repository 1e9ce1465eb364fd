// This file defines the bounded candidate heap used by TopConnections to
// select the k strongest neighbors of a node. It is built on Go's standard
// container/heap package and keeps at most k candidates at a time, so a full
// sort of the neighbor list is never needed.
package graph

import "container/heap"

// connCandidate is one neighbor under consideration, with the weight of the
// edge that connects it to the queried node.
type connCandidate struct {
	id     string
	weight int
}

// worstFirstHeap is a min-heap of candidates ordered so that the weakest
// candidate is always at the top. The root element is the "worst" of the
// best k found so far, making it cheap to replace when a stronger neighbor
// is discovered. Among equal weights the lexicographically larger identifier
// is weaker, which implements the ascending-identifier tie-break.
type worstFirstHeap []connCandidate

// Len returns the size of the heap.
func (h worstFirstHeap) Len() int { return len(h) }

// Less returns true if the candidate at index i ranks below the one at
// index j: lower weight first, then larger identifier.
func (h worstFirstHeap) Less(i, j int) bool {
	if h[i].weight != h[j].weight {
		return h[i].weight < h[j].weight
	}
	return h[i].id > h[j].id
}

// Swap swaps the elements at indices i and j.
func (h worstFirstHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

// Push adds an element to the heap. It uses a pointer receiver to modify the
// underlying slice.
func (h *worstFirstHeap) Push(x any) { *h = append(*h, x.(connCandidate)) }

// Pop removes and returns the weakest candidate from the heap.
func (h *worstFirstHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}

// newWorstFirstHeap creates a heap with capacity for k+1 candidates, one
// slot beyond the bound so a push can momentarily overflow before the
// weakest element is evicted.
func newWorstFirstHeap(k int) *worstFirstHeap {
	h := make(worstFirstHeap, 0, k+1)
	heap.Init(&h)
	return &h
}
