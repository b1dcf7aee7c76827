package container

// OrderedSet 保持插入顺序的集合
// 功能：提供确定性遍历顺序的集合，用于节点集合、冲突分组等需要可复现结果的场景
// 说明：内部使用map做成员判断，使用切片记录插入顺序，元素只能增加不能删除
type OrderedSet[K comparable] struct {
	index map[K]int // 元素到插入位置的映射
	items []K       // 按插入顺序排列的元素
}

// NewOrderedSet 创建有序集合
// 功能：初始化集合并按顺序加入给定元素（重复元素只保留第一次出现）
// 参数：items-初始元素
// 返回：有序集合指针
func NewOrderedSet[K comparable](items ...K) *OrderedSet[K] {
	s := &OrderedSet[K]{index: make(map[K]int, len(items))}
	for _, item := range items {
		s.Add(item)
	}
	return s
}

// Add 加入元素
// 功能：元素不存在时追加到末尾
// 返回：true表示新加入，false表示已存在
func (s *OrderedSet[K]) Add(item K) bool {
	if _, ok := s.index[item]; ok {
		return false
	}
	s.index[item] = len(s.items)
	s.items = append(s.items, item)
	return true
}

// AddAll 合并另一个集合，保持对方的相对顺序
func (s *OrderedSet[K]) AddAll(other *OrderedSet[K]) {
	if other == nil {
		return
	}
	for _, item := range other.items {
		s.Add(item)
	}
}

// Contains 判断元素是否在集合中
func (s *OrderedSet[K]) Contains(item K) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[item]
	return ok
}

// Intersects 判断两个集合是否有公共元素
// 功能：遍历较小的集合，在较大的集合中查找
func (s *OrderedSet[K]) Intersects(other *OrderedSet[K]) bool {
	if s.Len() == 0 || other.Len() == 0 {
		return false
	}
	small, large := s, other
	if small.Len() > large.Len() {
		small, large = large, small
	}
	for _, item := range small.items {
		if large.Contains(item) {
			return true
		}
	}
	return false
}

// Len 集合元素数量
func (s *OrderedSet[K]) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Items 按插入顺序返回全部元素
// 说明：返回内部切片，调用方不得修改
func (s *OrderedSet[K]) Items() []K {
	if s == nil {
		return nil
	}
	return s.items
}
