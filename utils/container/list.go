package container

import (
	"fmt"
	"log"
	"sort"
)

// IHasVAndLength 具有速度和长度属性的对象
// 说明：链表中的车辆需要提供速度与车长，以便沿链表计算车头间距
type IHasVAndLength interface {
	V() float64      // 速度（米/秒）
	Length() float64 // 车长（米）
}

// ListNode 按位置排序的双向链表节点
type ListNode[T IHasVAndLength] struct {
	parent     *List[T]
	prev, next *ListNode[T]
	S          float64 // 排序键：车辆前端在路段上的位置
	Value      T
}

func (n *ListNode[T]) String() string {
	return fmt.Sprintf("Node{S:%v, Value:%+v}", n.S, n.Value)
}

// Prev 上游相邻节点（S更小），不存在时为nil
func (n *ListNode[T]) Prev() *ListNode[T] {
	return n.prev
}

// Next 下游相邻节点（S更大），不存在时为nil
func (n *ListNode[T]) Next() *ListNode[T] {
	return n.next
}

// Parent 节点所在链表
func (n *ListNode[T]) Parent() *List[T] {
	return n.parent
}

func (n *ListNode[T]) V() float64 {
	return n.Value.V()
}

func (n *ListNode[T]) L() float64 {
	return n.Value.Length()
}

// InsertBefore 在本节点之前插入
func (n *ListNode[T]) InsertBefore(add *ListNode[T]) {
	if add.parent != nil {
		log.Panic("insert node who already in list")
	}
	add.parent = n.parent
	add.next = n
	add.prev = n.prev
	n.prev = add
	if add.prev != nil {
		add.prev.next = add
	} else {
		add.parent.head = add
	}
	n.parent.length++
}

// InsertAfter 在本节点之后插入
func (n *ListNode[T]) InsertAfter(add *ListNode[T]) {
	if add.parent != nil {
		log.Panic("insert node who already in list")
	}
	add.parent = n.parent
	add.prev = n
	add.next = n.next
	n.next = add
	if add.next != nil {
		add.next.prev = add
	} else {
		add.parent.tail = add
	}
	n.parent.length++
}

// List 按S升序排列的双向链表
// 功能：保存一条路段上的车辆，头部为最上游车辆，尾部为最下游车辆
// 说明：位置更新后顺序可能被打乱，由PopUnsorted与Merge在步间恢复
type List[T IHasVAndLength] struct {
	ID         string
	head, tail *ListNode[T]
	length     int
}

func (l *List[T]) String() string {
	return fmt.Sprintf("List{ID:%v}", l.ID)
}

// Keys 全部节点的S
func (l *List[T]) Keys() []float64 {
	keys := make([]float64, 0, l.length)
	for node := l.head; node != nil; node = node.next {
		keys = append(keys, node.S)
	}
	return keys
}

// Values 全部节点的值，从上游到下游
func (l *List[T]) Values() []T {
	values := make([]T, 0, l.length)
	for node := l.head; node != nil; node = node.next {
		values = append(values, node.Value)
	}
	return values
}

func (l *List[T]) Len() int {
	return l.length
}

// First 最上游节点
func (l *List[T]) First() *ListNode[T] {
	return l.head
}

// Last 最下游节点
func (l *List[T]) Last() *ListNode[T] {
	return l.tail
}

// PushBack 追加到尾部（调用方保证顺序）
func (l *List[T]) PushBack(add *ListNode[T]) {
	if add.parent != nil {
		log.Panic("push back node who already in list")
	}
	add.next = nil
	add.prev = nil
	if l.tail == nil {
		add.parent = l
		l.head = add
		l.tail = add
		l.length++
	} else {
		l.tail.InsertAfter(add)
	}
}

// Remove 移除节点
func (l *List[T]) Remove(node *ListNode[T]) {
	if node.parent != l {
		log.Panic("remove node from wrong list")
	}
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		l.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		l.tail = node.prev
	}
	node.prev = nil
	node.next = nil
	node.parent = nil
	l.length--
}

// PopUnsorted 移除所有比前驱更靠上游的节点
// 返回：被移除的节点，可交给Merge重新插入
func (l *List[T]) PopUnsorted() (unsorted []*ListNode[T]) {
	for node := l.head; node != nil; {
		next := node.next
		if node.prev != nil && node.prev.S > node.S {
			l.Remove(node)
			unsorted = append(unsorted, node)
		}
		node = next
	}
	return unsorted
}

// Merge 批量有序插入
// 算法说明：先对待插入节点排序，再与链表做一次归并
func (l *List[T]) Merge(adds []*ListNode[T]) {
	sort.SliceStable(adds, func(i, j int) bool { return adds[i].S < adds[j].S })
	node := l.head
	for _, add := range adds {
		for node != nil && node.S < add.S {
			node = node.next
		}
		if node != nil {
			node.InsertBefore(add)
		} else {
			l.PushBack(add)
		}
	}
}
