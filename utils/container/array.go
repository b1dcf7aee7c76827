package container

import (
	"sort"
	"sync"
)

// IIncrementalItem 可放入增量数组的元素
// 说明：元素需要记住自己在数组中的位置，以便O(1)删除
type IIncrementalItem interface {
	Index() int
	SetIndex(index int)
}

// IncrementalItemBase 嵌入即可实现IIncrementalItem
type IncrementalItemBase struct {
	index int
}

func (b *IncrementalItemBase) Index() int {
	return b.index
}

func (b *IncrementalItemBase) SetIndex(index int) {
	b.index = index
}

// IncrementalArray 增量数组
// 功能：在并发阶段收集新增与删除请求，在串行的Prepare阶段统一生效
// 说明：Prepare之外Data()的内容保持不变，适合“一步内只读、步间增删”的驾驶员集合
type IncrementalArray[T IIncrementalItem] struct {
	data   []T
	add    []T
	remove []T
	mtx    sync.Mutex
}

// NewIncrementalArray 创建增量数组
func NewIncrementalArray[T IIncrementalItem]() *IncrementalArray[T] {
	return &IncrementalArray[T]{
		data:   make([]T, 0),
		add:    make([]T, 0),
		remove: make([]T, 0),
	}
}

// Len 当前已生效的元素数量
func (a *IncrementalArray[T]) Len() int {
	return len(a.data)
}

// Data 当前已生效的元素
// 说明：返回内部切片，调用方不得修改
func (a *IncrementalArray[T]) Data() []T {
	return a.data
}

// Add 登记新增（Prepare时生效，线程安全）
func (a *IncrementalArray[T]) Add(value T) {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	a.add = append(a.add, value)
}

// Remove 登记删除（Prepare时生效，线程安全）
func (a *IncrementalArray[T]) Remove(value T) {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	a.remove = append(a.remove, value)
}

// Prepare 使登记的增删生效
// 算法说明：
// 1. 先用新增元素填补被删除元素的空位
// 2. 新增元素有剩余则追加到末尾
// 3. 删除位置有剩余则用末尾元素填补（从后往前处理，避免填补物本身待删除）
func (a *IncrementalArray[T]) Prepare() {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	n := min(len(a.add), len(a.remove))
	for i := 0; i < n; i++ {
		ind := a.remove[i].Index()
		a.data[ind] = a.add[i]
		a.data[ind].SetIndex(ind)
	}
	for _, x := range a.add[n:] {
		x.SetIndex(len(a.data))
		a.data = append(a.data, x)
	}
	if rest := a.remove[n:]; len(rest) > 0 {
		dead := make(map[int]struct{}, len(rest))
		for _, x := range rest {
			dead[x.Index()] = struct{}{}
		}
		cut := len(a.data) - len(dead)
		holes := make([]int, 0, len(dead))
		for ind := range dead {
			if ind < cut {
				holes = append(holes, ind)
			}
		}
		sort.Ints(holes)
		donor := len(a.data) - 1
		for _, ind := range holes {
			// 从末尾找一个不待删除的元素填过来
			for {
				if _, ok := dead[donor]; !ok {
					break
				}
				donor--
			}
			a.data[ind] = a.data[donor]
			a.data[ind].SetIndex(ind)
			donor--
		}
		a.data = a.data[:cut]
	}
	a.add = a.add[:0]
	a.remove = a.remove[:0]
}
