package container

import "container/heap"

// item 堆中的元素
type item[T any] struct {
	Value    T       // 元素值
	Priority float64 // 优先级（越小越先出队）
	seq      int     // 入队序号，优先级相同时先入先出
	index    int     // 在堆中的位置，由heap.Interface维护
}

// minHeap 实现heap.Interface的最小堆
type minHeap[T any] []*item[T]

func (h minHeap[T]) Len() int { return len(h) }

// Less 优先级小者在前；优先级相同时按入队顺序，保证出队顺序可复现
func (h minHeap[T]) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority < h[j].Priority
	}
	return h[i].seq < h[j].seq
}

func (h minHeap[T]) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *minHeap[T]) Push(x any) {
	it := x.(*item[T])
	it.index = len(*h)
	*h = append(*h, it)
}

func (h *minHeap[T]) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil // 避免内存泄漏
	it.index = -1
	*h = old[:n-1]
	return it
}

// PriorityQueue 优先队列
// 功能：按优先级从小到大出队的工作队列，优先级相同的元素先入先出
// 说明：用于路网上游遍历等需要按累计距离由近及远扩展的场景
type PriorityQueue[T any] struct {
	queue minHeap[T]
	seq   int
}

// NewPriorityQueue 创建空的优先队列
func NewPriorityQueue[T any]() *PriorityQueue[T] {
	return &PriorityQueue[T]{queue: make(minHeap[T], 0)}
}

// Len 队列长度
func (q *PriorityQueue[T]) Len() int {
	return len(q.queue)
}

// First 查看队首元素（不出队）
func (q *PriorityQueue[T]) First() (T, float64) {
	return q.queue[0].Value, q.queue[0].Priority
}

// HeapPush 入队
// 参数：value-元素值，priority-优先级
func (q *PriorityQueue[T]) HeapPush(value T, priority float64) {
	heap.Push(&q.queue, &item[T]{
		Value:    value,
		Priority: priority,
		seq:      q.seq,
	})
	q.seq++
}

// HeapPop 出队
// 返回：优先级最小的元素及其优先级
func (q *PriorityQueue[T]) HeapPop() (value T, priority float64) {
	it := heap.Pop(&q.queue).(*item[T])
	return it.Value, it.Priority
}
