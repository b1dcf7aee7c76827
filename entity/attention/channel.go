package attention

import "fmt"

// ChannelKind 感知通道的类别
type ChannelKind int

const (
	KindDirection ChannelKind = iota // 固定方向
	KindConflict                     // 冲突（组）
	KindObject                       // 被跟踪的其他对象
)

// Direction 固定方向通道
type Direction int

const (
	Front Direction = iota
	Left
	Right
	Rear
)

func (d Direction) String() string {
	switch d {
	case Front:
		return "FRONT"
	case Left:
		return "LEFT"
	case Right:
		return "RIGHT"
	case Rear:
		return "REAR"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// Channel 感知通道
// 功能：注意力投向的对象，可以是四个固定方向之一，也可以是某个冲突（组）或对象
// 说明：按“类别+方向/ID”比较，可直接作为map的键
type Channel struct {
	Kind      ChannelKind
	Direction Direction // Kind为KindDirection时有效
	ID        int32     // Kind为KindConflict/KindObject时有效
}

// 固定方向通道，总是存在
var (
	FRONT = Channel{Kind: KindDirection, Direction: Front}
	LEFT  = Channel{Kind: KindDirection, Direction: Left}
	RIGHT = Channel{Kind: KindDirection, Direction: Right}
	REAR  = Channel{Kind: KindDirection, Direction: Rear}

	directions = []Channel{FRONT, LEFT, RIGHT, REAR}
)

// ConflictChannel 冲突通道
func ConflictChannel(id int32) Channel {
	return Channel{Kind: KindConflict, ID: id}
}

// ObjectChannel 对象通道
func ObjectChannel(id int32) Channel {
	return Channel{Kind: KindObject, ID: id}
}

// IsDirection 是否是固定方向通道
func (c Channel) IsDirection() bool {
	return c.Kind == KindDirection
}

func (c Channel) String() string {
	switch c.Kind {
	case KindDirection:
		return c.Direction.String()
	case KindConflict:
		return fmt.Sprintf("Conflict(%d)", c.ID)
	case KindObject:
		return fmt.Sprintf("Object(%d)", c.ID)
	default:
		return fmt.Sprintf("Channel(%d, %d)", int(c.Kind), c.ID)
	}
}

// Task 某一感知周期内某一通道上的任务
// 说明：每个周期重新生成，不跨周期保存
type Task struct {
	ID      string
	Channel Channel
	Demand  float64 // 任务需求，非负
}

func (t Task) String() string {
	return fmt.Sprintf("Task{%s, %v, %.4f}", t.ID, t.Channel, t.Demand)
}

// Mapper 对象到代表通道的映射
// 说明：分组中的单个冲突需要能通过组的代表通道查询注意力
type Mapper interface {
	MapToChannel(object, channel Channel)
}
