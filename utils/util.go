package utils

// Find 按ID顺序找出对应的数据
// 返回：找到的数据（与ids顺序一致），以及不存在的ID
func Find[K comparable, T any](dataMap map[K]T, ids []K) (okData []T, failedIDs []K) {
	okData = make([]T, 0, len(ids))
	for _, id := range ids {
		if d, ok := dataMap[id]; ok {
			okData = append(okData, d)
		} else {
			failedIDs = append(failedIDs, id)
		}
	}
	return
}
