package container_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/agentsociety-driver/utils/container"
)

func TestOrderedSet(t *testing.T) {
	s := container.NewOrderedSet(3, 1, 3, 2)
	assert.Equal(t, []int{3, 1, 2}, s.Items())
	assert.False(t, s.Add(1))
	assert.True(t, s.Add(7))
	assert.True(t, s.Contains(7))
	assert.False(t, s.Contains(8))

	other := container.NewOrderedSet(9, 2)
	assert.True(t, s.Intersects(other))
	assert.True(t, other.Intersects(s))
	assert.False(t, s.Intersects(container.NewOrderedSet(10)))
	assert.False(t, s.Intersects(container.NewOrderedSet[int]()))

	s.AddAll(other)
	assert.Equal(t, []int{3, 1, 2, 7, 9}, s.Items())

	var empty *container.OrderedSet[int]
	assert.Equal(t, 0, empty.Len())
	assert.False(t, empty.Contains(1))
}

func TestPriorityQueue(t *testing.T) {
	q := container.NewPriorityQueue[string]()
	q.HeapPush("c", 3)
	q.HeapPush("a", 1)
	q.HeapPush("b1", 2)
	q.HeapPush("b2", 2)
	assert.Equal(t, 4, q.Len())
	v, p := q.First()
	assert.Equal(t, "a", v)
	assert.Equal(t, 1., p)

	got := make([]string, 0)
	for q.Len() > 0 {
		v, _ := q.HeapPop()
		got = append(got, v)
	}
	assert.Equal(t, []string{"a", "b1", "b2", "c"}, got)
}

type arrayItem struct {
	container.IncrementalItemBase
	name string
}

func names(a *container.IncrementalArray[*arrayItem]) []string {
	out := make([]string, 0, a.Len())
	for i, x := range a.Data() {
		if x.Index() != i {
			return nil
		}
		out = append(out, x.name)
	}
	return out
}

func TestIncrementalArray(t *testing.T) {
	a := container.NewIncrementalArray[*arrayItem]()
	items := make([]*arrayItem, 5)
	for i, n := range []string{"a", "b", "c", "d", "e"} {
		items[i] = &arrayItem{name: n}
		a.Add(items[i])
	}
	assert.Equal(t, 0, a.Len())
	a.Prepare()
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, names(a))

	// 删多于增
	f := &arrayItem{name: "f"}
	a.Add(f)
	a.Remove(items[0])
	a.Remove(items[1])
	a.Remove(items[4])
	a.Prepare()
	assert.Equal(t, []string{"f", "d", "c"}, names(a))

	// 增多于删
	g, h := &arrayItem{name: "g"}, &arrayItem{name: "h"}
	a.Add(g)
	a.Add(h)
	a.Remove(items[3])
	a.Prepare()
	assert.Equal(t, []string{"f", "g", "c", "h"}, names(a))
}
