// Package queue implements the in-memory pending set: a capacity-bounded
// priority queue with lowest-priority eviction and FIFO order within a
// priority band.
package queue

import (
	"container/heap"
	"sync"

	"github.com/mediakit/mediasched/job"
)

type item struct {
	job   *job.Job
	seq   uint64
	index int
}

// pendingHeap orders by priority descending, then enqueue order ascending.
// CreatedAt alone is not a safe tie-break at nanosecond resolution, so the
// sequence number carries the FIFO guarantee.
type pendingHeap []*item

func (h pendingHeap) Len() int { return len(h) }

func (h pendingHeap) Less(i, j int) bool {
	if h[i].job.Priority != h[j].job.Priority {
		return h[i].job.Priority > h[j].job.Priority
	}
	return h[i].seq < h[j].seq
}

func (h pendingHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *pendingHeap) Push(x any) {
	it := x.(*item)
	it.index = len(*h)
	*h = append(*h, it)
}

func (h *pendingHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*h = old[:n-1]
	return it
}

// Queue is the pending set. All methods are safe for concurrent use; a
// single mutex guards the heap and the id index.
type Queue struct {
	mu       sync.Mutex
	capacity int
	heap     pendingHeap
	byID     map[string]*item
	seq      uint64
}

// New creates a queue admitting at most capacity pending jobs.
func New(capacity int) *Queue {
	return &Queue{
		capacity: capacity,
		byID:     make(map[string]*item),
	}
}

// Push admits a job to the pending set. If the set is full, the single
// lowest-priority job (ties: oldest) is evicted first and returned so the
// caller can notify its listeners. Push never blocks.
func (q *Queue) Push(j *job.Job) (evicted *job.Job) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.capacity > 0 && len(q.heap) >= q.capacity {
		evicted = q.removeLocked(q.lowestLocked())
	}

	q.seq++
	it := &item{job: j, seq: q.seq}
	heap.Push(&q.heap, it)
	q.byID[j.ID] = it
	return evicted
}

// Pop removes and returns the highest-priority pending job, FIFO within a
// band. Returns nil if the set is empty.
func (q *Queue) Pop() *job.Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.heap) == 0 {
		return nil
	}

	it := heap.Pop(&q.heap).(*item)
	delete(q.byID, it.job.ID)
	return it.job
}

// Remove takes a specific job out of the pending set, returning false if
// it is not pending.
func (q *Queue) Remove(id string) (*job.Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	it, ok := q.byID[id]
	if !ok {
		return nil, false
	}
	return q.removeLocked(it), true
}

// Get returns the pending job with the given id, if present.
func (q *Queue) Get(id string) (*job.Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	it, ok := q.byID[id]
	if !ok {
		return nil, false
	}
	return it.job, true
}

// Len returns the number of pending jobs.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.heap)
}

// Capacity returns the admission bound.
func (q *Queue) Capacity() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.capacity
}

// SetCapacity changes the admission bound. Jobs already pending are not
// evicted; the new bound applies to subsequent admissions only.
func (q *Queue) SetCapacity(n int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.capacity = n
}

// DrainBelow removes every pending job with priority at or below max and
// returns them. Used for pressure eviction and background idle shedding.
func (q *Queue) DrainBelow(max job.Priority) []*job.Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []*job.Job
	// Collect first; removing while ranging over the heap slice would skip
	// entries as indices shift.
	var victims []*item
	for _, it := range q.heap {
		if it.job.Priority <= max {
			victims = append(victims, it)
		}
	}
	for _, it := range victims {
		out = append(out, q.removeLocked(it))
	}
	return out
}

// DrainAll empties the pending set and returns everything that was in it.
func (q *Queue) DrainAll() []*job.Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]*job.Job, 0, len(q.heap))
	for len(q.heap) > 0 {
		it := heap.Pop(&q.heap).(*item)
		delete(q.byID, it.job.ID)
		out = append(out, it.job)
	}
	return out
}

// CountByType returns pending counts keyed by job type.
func (q *Queue) CountByType() map[job.Type]int {
	q.mu.Lock()
	defer q.mu.Unlock()

	counts := make(map[job.Type]int)
	for _, it := range q.heap {
		counts[it.job.Type]++
	}
	return counts
}

// lowestLocked finds the eviction victim: minimum priority, oldest within
// that priority. Linear scan; the set is capacity-bounded and small.
func (q *Queue) lowestLocked() *item {
	var victim *item
	for _, it := range q.heap {
		if victim == nil {
			victim = it
			continue
		}
		if it.job.Priority < victim.job.Priority ||
			(it.job.Priority == victim.job.Priority && it.seq < victim.seq) {
			victim = it
		}
	}
	return victim
}

func (q *Queue) removeLocked(it *item) *job.Job {
	heap.Remove(&q.heap, it.index)
	delete(q.byID, it.job.ID)
	return it.job
}
