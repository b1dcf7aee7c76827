// 二维几何工具：折线反转、点在多边形内判断、射线与线段求交
package geomutil

import (
	"math"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/samber/lo"
)

// eps 几何计算的数值容差
const eps = 1e-9

// Reverse 返回折线的反向副本
func Reverse(line []geometry.Point) []geometry.Point {
	out := make([]geometry.Point, len(line))
	for i, p := range line {
		out[len(line)-1-i] = p
	}
	return out
}

// Concat 首尾拼接多条折线，形成闭合多边形的顶点序列
func Concat(lines ...[]geometry.Point) []geometry.Point {
	n := 0
	for _, l := range lines {
		n += len(l)
	}
	out := make([]geometry.Point, 0, n)
	for _, l := range lines {
		out = append(out, l...)
	}
	return out
}

// Contains 判断点是否严格位于多边形内部（射线法，仅使用XY）
// 参数：polygon-多边形顶点（首尾不必重复），p-待判断的点
// 说明：落在边上的点视为不在内部
func Contains(polygon []geometry.Point, p geometry.Point) bool {
	if len(polygon) < 3 {
		return false
	}
	inside := false
	for i, j := 0, len(polygon)-1; i < len(polygon); j, i = i, i+1 {
		a, b := polygon[i], polygon[j]
		if onSegment(a, b, p) {
			return false
		}
		if (a.Y > p.Y) != (b.Y > p.Y) {
			x := (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y) + a.X
			if p.X < x {
				inside = !inside
			}
		}
	}
	return inside
}

func onSegment(a, b, p geometry.Point) bool {
	cross := (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
	if math.Abs(cross) > eps*math.Max(1, math.Hypot(b.X-a.X, b.Y-a.Y)) {
		return false
	}
	return p.X >= math.Min(a.X, b.X)-eps && p.X <= math.Max(a.X, b.X)+eps &&
		p.Y >= math.Min(a.Y, b.Y)-eps && p.Y <= math.Max(a.Y, b.Y)+eps
}

// RaySegmentIntersection 计算射线与线段的交点
// 功能：射线从origin出发、经过through并向远处无限延伸；线段为[a, b]
// 返回：交点在线段上的比例位置（0为a，1为b）以及是否相交
// 说明：平行（含共线）视为不相交
func RaySegmentIntersection(origin, through, a, b geometry.Point) (float64, bool) {
	dx, dy := through.X-origin.X, through.Y-origin.Y
	ex, ey := b.X-a.X, b.Y-a.Y
	den := dx*ey - dy*ex
	if math.Abs(den) < eps {
		return 0, false
	}
	wx, wy := a.X-origin.X, a.Y-origin.Y
	t := (wx*ey - wy*ex) / den // 射线参数
	u := (wx*dy - wy*dx) / den // 线段参数
	if t < 0 || u < -eps || u > 1+eps {
		return 0, false
	}
	return math.Min(math.Max(u, 0), 1), true
}

// SegmentIntersection 计算两条线段的交点
// 返回：交点在两条线段上的比例位置（0为起点，1为终点）以及是否相交
// 说明：平行（含共线）视为不相交
func SegmentIntersection(a1, a2, b1, b2 geometry.Point) (float64, float64, bool) {
	dx, dy := a2.X-a1.X, a2.Y-a1.Y
	ex, ey := b2.X-b1.X, b2.Y-b1.Y
	den := dx*ey - dy*ex
	if math.Abs(den) < eps {
		return 0, 0, false
	}
	wx, wy := b1.X-a1.X, b1.Y-a1.Y
	t := (wx*ey - wy*ex) / den
	u := (wx*dy - wy*dx) / den
	if t < -eps || t > 1+eps || u < -eps || u > 1+eps {
		return 0, 0, false
	}
	return lo.Clamp(t, 0, 1), lo.Clamp(u, 0, 1), true
}
