package task

import (
	"fmt"

	"git.fiblab.net/general/common/v2/geometry"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/tsinghua-fib-lab/agentsociety-driver/clock"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/attention"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/driver"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/network"
	"github.com/tsinghua-fib-lab/agentsociety-driver/entity/visibility"
	"github.com/tsinghua-fib-lab/agentsociety-driver/utils/config"
	"github.com/tsinghua-fib-lab/agentsociety-driver/utils/container"
	"github.com/tsinghua-fib-lab/agentsociety-driver/utils/input"
	"github.com/tsinghua-fib-lab/agentsociety-driver/utils/randengine"
)

// source 车流的发车点
type source struct {
	stream *stream
	next   float64 // 下一辆车的发车时间
}

// Context 仿真任务上下文
// 功能：包含一次路口仿真的所有变量和状态
// 说明：路网、遮挡索引与冲突区在创建时构建，之后只读；车辆状态在每步的串行阶段修改
type Context struct {
	// 时钟
	clock *clock.Clock
	// 运行时配置
	runtimeConfig *config.RuntimeConfig
	// 随机数
	rng *randengine.Engine

	// 路网
	net *network.Network
	// 遮挡索引
	vis *visibility.Visibility
	// 主路与次路车流
	streams []*stream
	sources []*source

	// 驾驶员管理器
	manager *driver.Manager
	// 各路段上的车辆，从上游到下游
	lists map[*network.Link]*container.List[*vehicle]
	// 驾驶员ID到车辆
	vehicles map[int32]*vehicle
	nextID   int32

	summary Summary
}

// NewContext 创建仿真任务上下文
// 功能：加载或生成路网，解析两股车流的路径，登记遮挡点并找出冲突区
// 参数：rc-运行时配置
// 返回：上下文；地图无法加载、路径不连通、冲突任务模型未知时返回错误
func NewContext(rc *config.RuntimeConfig) (*Context, error) {
	sc := rc.All.Scenario
	if _, err := attention.Providers(rc.All.Driver.TaskModel); err != nil {
		return nil, err
	}
	var lanes []*mapv2.Lane
	majorIDs, minorIDs := sc.MajorRoute, sc.MinorRoute
	if sc.Map != "" {
		m, err := input.LoadMap(sc.Map)
		if err != nil {
			return nil, err
		}
		lanes = m.Lanes
	} else {
		var err error
		if lanes, majorIDs, minorIDs, err = builtinLanes(sc.Layout); err != nil {
			return nil, err
		}
	}
	net, err := network.FromLanes(lanes)
	if err != nil {
		return nil, err
	}
	majorLinks, err := resolveRoute(net, majorIDs)
	if err != nil {
		return nil, fmt.Errorf("major route: %w", err)
	}
	minorLinks, err := resolveRoute(net, minorIDs)
	if err != nil {
		return nil, fmt.Errorf("minor route: %w", err)
	}
	major := newStream("major", majorLinks, sc.MajorFlow)
	minor := newStream("minor", minorLinks, sc.MinorFlow)
	pairs := detectAreas(major, minor, rc.MajorRule, rc.MinorRule)

	vis := visibility.New()
	for _, p := range sc.Anchors {
		n := vis.AddAnchor(net, geometry.Point{X: p[0], Y: p[1]})
		log.Infof("anchor %v hides %d link pairs", p, n)
	}

	ctx := &Context{
		clock:         clock.New(rc.C.Step),
		runtimeConfig: rc,
		rng:           randengine.New(sc.Seed),
		net:           net,
		vis:           vis,
		streams:       []*stream{major, minor},
		manager:       driver.NewManager(rc.C.Workers),
		lists:         make(map[*network.Link]*container.List[*vehicle], len(net.Links())),
		vehicles:      make(map[int32]*vehicle),
	}
	for _, l := range net.Links() {
		ctx.lists[l] = &container.List[*vehicle]{ID: l.String()}
	}
	for _, s := range ctx.streams {
		ctx.sources = append(ctx.sources, &source{stream: s})
	}
	log.Infof("Link: %v, conflict pairs: %v, rule: %v/%v", len(net.Links()), pairs, rc.MajorRule, rc.MinorRule)
	return ctx, nil
}

func (ctx *Context) Clock() *clock.Clock {
	return ctx.clock
}

func (ctx *Context) RuntimeConfig() *config.RuntimeConfig {
	return ctx.runtimeConfig
}

func (ctx *Context) Network() *network.Network {
	return ctx.net
}

func (ctx *Context) Visibility() *visibility.Visibility {
	return ctx.vis
}

func (ctx *Context) Manager() *driver.Manager {
	return ctx.manager
}

// Init 初始化时钟与发车时间
func (ctx *Context) Init() {
	ctx.clock.Init()
	for _, src := range ctx.sources {
		src.next = ctx.clock.T + ctx.rng.Headway(src.stream.flow)
	}
}
