package list

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func checkListLen(t *testing.T, l *List, n int) bool {
	if n != l.Len() {
		t.Errorf("l.Len() = %d, want %d", l.Len(), n)
		return false
	}
	return true
}

func TestPushFrontBack(t *testing.T) {
	l := New()
	checkListLen(t, l, 0)

	e1 := l.PushFront(&Element{Value: 1})
	e2 := l.PushBack(&Element{Value: 2})
	checkListLen(t, l, 2)
	require.Equal(t, e1, l.Front())
	require.Equal(t, e2, l.Back())
}

func TestRemoveIsIdempotentViaContains(t *testing.T) {
	l := New()
	e := l.PushBack(&Element{Value: "x"})
	require.True(t, l.Contains(e))
	l.Remove(e)
	require.False(t, l.Contains(e))
	// Removing again (e.g. a timeout racing an event) must not corrupt l.
	l.Remove(e)
	checkListLen(t, l, 0)
}

func TestMoveToBackRotatesRoundRobin(t *testing.T) {
	l := New()
	a := l.PushBack(&Element{Value: "a"})
	_ = l.PushBack(&Element{Value: "b"})
	_ = l.PushBack(&Element{Value: "c"})

	require.Equal(t, a, l.Front())
	l.MoveToBack(a)
	require.Equal(t, "b", l.Front().Value)
	require.Equal(t, "a", l.Back().Value)
}

func TestInsertSortedOrdersByDeadline(t *testing.T) {
	l := New()
	l.InsertSorted(&Element{Value: "c", Deadline: 300})
	l.InsertSorted(&Element{Value: "a", Deadline: 100})
	l.InsertSorted(&Element{Value: "b", Deadline: 200})

	var got []string
	for e := l.Front(); e != nil; e = e.Next() {
		got = append(got, e.Value.(string))
	}
	require.Equal(t, []string{"a", "b", "c"}, got)
}

func TestInsertSortedMixedTags(t *testing.T) {
	l := New()
	l.InsertSorted(&Element{Tag: TagTimer, Deadline: 50})
	l.InsertSorted(&Element{Tag: TagThread, Deadline: 10})
	l.InsertSorted(&Element{Tag: TagTimer, Deadline: 30})

	e := l.Front()
	require.Equal(t, TagThread, e.Tag)
	e = e.Next()
	require.Equal(t, TagTimer, e.Tag)
	require.EqualValues(t, 30, e.Deadline)
}
