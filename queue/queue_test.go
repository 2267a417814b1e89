package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediakit/mediasched/job"
)

func newJob(priority job.Priority) *job.Job {
	return job.New(job.TypeThumbnail, nil, priority, 3)
}

func TestQueue_PriorityOrdering(t *testing.T) {
	q := New(10)

	low := newJob(job.PriorityLow)
	critical := newJob(job.PriorityCritical)
	normal := newJob(job.PriorityNormal)

	q.Push(low)
	q.Push(critical)
	q.Push(normal)

	assert.Equal(t, critical.ID, q.Pop().ID)
	assert.Equal(t, normal.ID, q.Pop().ID)
	assert.Equal(t, low.ID, q.Pop().ID)
	assert.Nil(t, q.Pop())
}

func TestQueue_FIFOWithinPriority(t *testing.T) {
	q := New(10)

	var ids []string
	for i := 0; i < 5; i++ {
		j := newJob(job.PriorityNormal)
		ids = append(ids, j.ID)
		q.Push(j)
	}

	for _, id := range ids {
		popped := q.Pop()
		require.NotNil(t, popped)
		assert.Equal(t, id, popped.ID)
	}
}

func TestQueue_CapacityEvictsLowestPriority(t *testing.T) {
	q := New(3)

	idle := newJob(job.PriorityIdle)
	high := newJob(job.PriorityHigh)
	normal := newJob(job.PriorityNormal)

	assert.Nil(t, q.Push(idle))
	assert.Nil(t, q.Push(high))
	assert.Nil(t, q.Push(normal))

	evicted := q.Push(newJob(job.PriorityCritical))
	require.NotNil(t, evicted)
	assert.Equal(t, idle.ID, evicted.ID)
	assert.Equal(t, 3, q.Len())
}

func TestQueue_CapacityEvictsOldestOnTie(t *testing.T) {
	// Scenario: 10 same-priority jobs into capacity 5 leaves only the 5
	// most recent.
	q := New(5)

	var ids []string
	var evicted []string
	for i := 0; i < 10; i++ {
		j := newJob(job.PriorityNormal)
		ids = append(ids, j.ID)
		if v := q.Push(j); v != nil {
			evicted = append(evicted, v.ID)
		}
	}

	assert.Equal(t, 5, q.Len())
	assert.Equal(t, ids[:5], evicted)

	var remaining []string
	for j := q.Pop(); j != nil; j = q.Pop() {
		remaining = append(remaining, j.ID)
	}
	assert.Equal(t, ids[5:], remaining)
}

func TestQueue_NeverExceedsCapacity(t *testing.T) {
	q := New(5)

	for i := 0; i < 50; i++ {
		q.Push(newJob(job.Priority(1 + i%5)))
		assert.LessOrEqual(t, q.Len(), 5)
	}
}

func TestQueue_Remove(t *testing.T) {
	q := New(10)

	j := newJob(job.PriorityNormal)
	q.Push(j)

	removed, ok := q.Remove(j.ID)
	require.True(t, ok)
	assert.Equal(t, j.ID, removed.ID)
	assert.Equal(t, 0, q.Len())

	_, ok = q.Remove(j.ID)
	assert.False(t, ok)

	// Removed jobs never dequeue
	assert.Nil(t, q.Pop())
}

func TestQueue_RemoveKeepsOrdering(t *testing.T) {
	q := New(10)

	jobs := make([]*job.Job, 6)
	for i := range jobs {
		jobs[i] = newJob(job.Priority(1 + i%3))
		q.Push(jobs[i])
	}

	_, ok := q.Remove(jobs[2].ID)
	require.True(t, ok)

	var last job.Priority = job.PriorityCritical
	for j := q.Pop(); j != nil; j = q.Pop() {
		assert.LessOrEqual(t, j.Priority, last)
		last = j.Priority
	}
}

func TestQueue_Get(t *testing.T) {
	q := New(10)

	j := newJob(job.PriorityNormal)
	q.Push(j)

	got, ok := q.Get(j.ID)
	require.True(t, ok)
	assert.Equal(t, j.ID, got.ID)

	_, ok = q.Get("missing")
	assert.False(t, ok)
}

func TestQueue_DrainBelow(t *testing.T) {
	q := New(20)

	var sacrificial int
	for i := 0; i < 12; i++ {
		p := job.Priority(1 + i%4) // idle..high
		if p <= job.PriorityLow {
			sacrificial++
		}
		q.Push(newJob(p))
	}

	drained := q.DrainBelow(job.PriorityLow)
	assert.Len(t, drained, sacrificial)
	for _, j := range drained {
		assert.LessOrEqual(t, j.Priority, job.PriorityLow)
	}

	for j := q.Pop(); j != nil; j = q.Pop() {
		assert.Greater(t, j.Priority, job.PriorityLow)
	}
}

func TestQueue_DrainAll(t *testing.T) {
	q := New(10)

	for i := 0; i < 4; i++ {
		q.Push(newJob(job.PriorityNormal))
	}

	drained := q.DrainAll()
	assert.Len(t, drained, 4)
	assert.Equal(t, 0, q.Len())
}

func TestQueue_CountByType(t *testing.T) {
	q := New(10)

	q.Push(job.New(job.TypeThumbnail, nil, job.PriorityNormal, 3))
	q.Push(job.New(job.TypeThumbnail, nil, job.PriorityLow, 3))
	q.Push(job.New(job.TypeTranscode, nil, job.PriorityHigh, 3))

	counts := q.CountByType()
	assert.Equal(t, 2, counts[job.TypeThumbnail])
	assert.Equal(t, 1, counts[job.TypeTranscode])
}

func TestQueue_SetCapacityAffectsAdmissionOnly(t *testing.T) {
	q := New(10)

	for i := 0; i < 6; i++ {
		q.Push(newJob(job.PriorityNormal))
	}

	q.SetCapacity(3)
	// Shrinking never drops jobs already admitted
	assert.Equal(t, 6, q.Len())

	// But the next admission triggers eviction
	evicted := q.Push(newJob(job.PriorityHigh))
	assert.NotNil(t, evicted)
}

func TestQueue_MixedPriorityInterleaving(t *testing.T) {
	q := New(100)

	for band := 1; band <= 5; band++ {
		for i := 0; i < 3; i++ {
			q.Push(job.New(job.TypeCleanup, nil, job.Priority(band), 3))
		}
	}

	var order []string
	for j := q.Pop(); j != nil; j = q.Pop() {
		order = append(order, j.Priority.String())
	}

	want := []string{
		"critical", "critical", "critical",
		"high", "high", "high",
		"normal", "normal", "normal",
		"low", "low", "low",
		"idle", "idle", "idle",
	}
	assert.Equal(t, want, order)
}
