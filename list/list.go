// Package list implements the intrusive, doubly linked circular lists used
// throughout the kernel for run queues, pend queues, and the timer wheel.
//
// It is adapted from the standard library's container/list: a sentinel root
// element turns the list into a ring so Front/Back/PushFront/PushBack never
// need a nil special case. The additions over container/list are the
// Element.Tag and Element.Deadline fields and InsertSorted, which let a
// single list hold two different kinds of entry (threads-with-timeout and
// software timers) distinguished by a byte tag and kept in deadline order,
// as the timer wheel in package kernel requires.
package list

// Element is one node of a List.
type Element struct {
	next, prev *Element
	list       *List

	// Value is the payload carried by this element. Kernel code stores a
	// *kernel.Thread, a timer entry, a heap block ref, or similar here.
	Value interface{}

	// Tag and Deadline exist for the merged timer/thread-timeout list
	// (package kernel's timer wheel). They are ignored by the plain List
	// operations; InsertSorted reads Deadline and the kernel reads Tag.
	Tag      Tag
	Deadline uint64
}

// Tag distinguishes the two kinds of entry the shared timer list carries.
type Tag uint8

const (
	// TagNone marks an element not used by the timer wheel.
	TagNone Tag = iota
	// TagTimer marks an element carrying a software timer.
	TagTimer
	// TagThread marks an element embedded in a thread waiting with a timeout.
	TagThread
)

// Next returns the next list element or nil if e is the last element.
func (e *Element) Next() *Element {
	if p := e.next; e.list != nil && p != &e.list.root {
		return p
	}
	return nil
}

// Prev returns the previous list element or nil if e is the first element.
func (e *Element) Prev() *Element {
	if p := e.prev; e.list != nil && p != &e.list.root {
		return p
	}
	return nil
}

// List is a doubly linked circular list. The zero value is an empty list
// ready to use after a call to Init.
type List struct {
	root Element
	len  int
}

// Init initializes or clears the list.
func (l *List) Init() *List {
	l.root.next = &l.root
	l.root.prev = &l.root
	l.len = 0
	return l
}

// New returns an initialized list.
func New() *List { return new(List).Init() }

// Len returns the number of elements, not counting the sentinel.
func (l *List) Len() int { return l.len }

// Front returns the first element, or nil if the list is empty.
func (l *List) Front() *Element {
	if l.len == 0 {
		return nil
	}
	return l.root.next
}

// Back returns the last element, or nil if the list is empty.
func (l *List) Back() *Element {
	if l.len == 0 {
		return nil
	}
	return l.root.prev
}

func (l *List) lazyInit() {
	if l.root.next == nil {
		l.Init()
	}
}

func (l *List) insert(e, at *Element) *Element {
	n := at.next
	at.next = e
	e.prev = at
	e.next = n
	n.prev = e
	e.list = l
	l.len++
	return e
}

func (l *List) remove(e *Element) {
	e.prev.next = e.next
	e.next.prev = e.prev
	e.next = nil
	e.prev = nil
	e.list = nil
	l.len--
}

// Remove removes e from l, if e belongs to l, and returns e.Value.
func (l *List) Remove(e *Element) interface{} {
	if e.list == l {
		l.remove(e)
	}
	return e.Value
}

// Contains reports whether e is currently linked into l. Remove is already
// a no-op for an element not in l, so a repeated removal (e.g. a thread
// whose timeout fires after an event already pulled it off the pend queue)
// is safe with or without this check.
func (l *List) Contains(e *Element) bool {
	return e.list == l
}

// PushFront inserts e at the front of l.
func (l *List) PushFront(e *Element) *Element {
	l.lazyInit()
	return l.insert(e, &l.root)
}

// PushBack inserts e at the back of l.
func (l *List) PushBack(e *Element) *Element {
	l.lazyInit()
	return l.insert(e, l.root.prev)
}

// InsertBefore inserts e immediately before mark, which must belong to l.
func (l *List) InsertBefore(e, mark *Element) *Element {
	if mark.list != l {
		return nil
	}
	return l.insert(e, mark.prev)
}

// InsertAfter inserts e immediately after mark, which must belong to l.
func (l *List) InsertAfter(e, mark *Element) *Element {
	if mark.list != l {
		return nil
	}
	return l.insert(e, mark)
}

// MoveToBack moves e, already an element of l, to the back of l.
func (l *List) MoveToBack(e *Element) {
	if e.list != l || l.root.prev == e {
		return
	}
	l.remove(e)
	l.insert(e, l.root.prev)
}

// MoveToFront moves e, already an element of l, to the front of l.
func (l *List) MoveToFront(e *Element) {
	if e.list != l || l.root.next == e {
		return
	}
	l.remove(e)
	l.insert(e, &l.root)
}

// InsertSorted inserts e into l, keeping ascending order by e.Deadline. Used
// by the timer wheel, where the head of the list is always the earliest
// wake tick. Linear in list length, acceptable for the small number of
// concurrent timers/timeouts this kernel targets (spec.md §4.T).
func (l *List) InsertSorted(e *Element) *Element {
	l.lazyInit()
	for mark := l.root.next; mark != &l.root; mark = mark.next {
		if e.Deadline < mark.Deadline {
			return l.insert(e, mark.prev)
		}
	}
	return l.insert(e, l.root.prev)
}
