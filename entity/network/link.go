package network

import (
	"fmt"
	"sort"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/samber/lo"
)

// Link 路段
// 功能：连接两个节点的有向路段，带设计线（中心线）几何与限速
type Link struct {
	id    int32
	start *Node
	end   *Node

	line        []geometry.Point // 设计线
	lineLengths []float64        // 设计线各点的累计长度，首项为0
	length      float64          // 设计线总长度
	maxV        float64          // 限速（米/秒）
}

func newLink(id int32, start, end *Node, line []geometry.Point, maxV float64) (*Link, error) {
	if len(line) < 2 {
		return nil, fmt.Errorf("%w: link %d", ErrBadLine, id)
	}
	l := &Link{
		id:    id,
		start: start,
		end:   end,
		line:  line,
		maxV:  maxV,
	}
	l.lineLengths = geometry.GetPolylineLengths2D(l.line)
	l.length = l.lineLengths[len(l.lineLengths)-1]
	return l, nil
}

func (l *Link) String() string {
	return fmt.Sprintf("Link %d", l.id)
}

func (l *Link) ID() int32 {
	return l.id
}

// Start 起点节点
func (l *Link) Start() *Node {
	return l.start
}

// End 终点节点
func (l *Link) End() *Node {
	return l.end
}

// Line 设计线
func (l *Link) Line() []geometry.Point {
	return l.line
}

// LineLengths 设计线各点的累计长度
func (l *Link) LineLengths() []float64 {
	return l.lineLengths
}

// Length 路段长度
func (l *Link) Length() float64 {
	return l.length
}

// MaxV 限速
func (l *Link) MaxV() float64 {
	return l.maxV
}

// Upstream 上游路段（进入起点节点的路段）
func (l *Link) Upstream() []*Link {
	return l.start.incoming
}

// Downstream 下游路段（离开终点节点的路段）
func (l *Link) Downstream() []*Link {
	return l.end.outgoing
}

// PositionByS 将路段s坐标转换为xy坐标
// 说明：s超出[0, length]时截断到端点
func (l *Link) PositionByS(s float64) geometry.Point {
	s = lo.Clamp(s, 0, l.length)
	i := sort.SearchFloat64s(l.lineLengths, s)
	if i == 0 {
		return l.line[0]
	}
	sHigh, sLow := l.lineLengths[i], l.lineLengths[i-1]
	if sHigh == sLow {
		return l.line[i]
	}
	return geometry.Blend(l.line[i-1], l.line[i], (s-sLow)/(sHigh-sLow))
}

// ProjectToLink 将xy坐标投影到设计线上，得到s坐标
func (l *Link) ProjectToLink(pos geometry.Point) float64 {
	s := geometry.GetClosestPolylineSToPoint2D(l.line, l.lineLengths, pos)
	return lo.Clamp(s, 0, l.length)
}
