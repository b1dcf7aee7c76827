package driver

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/agentsociety-driver/utils/container"
	"golang.org/x/sync/errgroup"
)

var (
	ErrDuplicateDriver = errors.New("duplicate driver id")
)

// Manager 驾驶员管理器
// 功能：管理全部驾驶员，步间增删，步内并发决策
type Manager struct {
	data    map[int32]*Driver
	drivers *container.IncrementalArray[*Driver]

	inserted    []*Driver // 新加入的驾驶员
	removed     []*Driver // 待移除的驾驶员
	insertedMtx sync.Mutex

	workers int // 并发数
}

// NewManager 创建驾驶员管理器
// 参数：workers-并发决策的最大协程数，不大于0时使用CPU数
func NewManager(workers int) *Manager {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Manager{
		data:    make(map[int32]*Driver),
		drivers: container.NewIncrementalArray[*Driver](),
		workers: workers,
	}
}

// Add 登记新驾驶员，下一次Prepare时生效（线程安全）
func (m *Manager) Add(d *Driver) {
	m.insertedMtx.Lock()
	defer m.insertedMtx.Unlock()
	m.inserted = append(m.inserted, d)
}

// Remove 登记移除驾驶员，下一次Prepare时生效（线程安全）
func (m *Manager) Remove(d *Driver) {
	m.insertedMtx.Lock()
	defer m.insertedMtx.Unlock()
	m.removed = append(m.removed, d)
}

// Get 根据ID获取驾驶员
func (m *Manager) Get(id int32) (*Driver, bool) {
	d, ok := m.data[id]
	return d, ok
}

// Drivers 当前生效的全部驾驶员
// 说明：返回内部切片，调用方不得修改
func (m *Manager) Drivers() []*Driver {
	return m.drivers.Data()
}

// Len 当前生效的驾驶员数量
func (m *Manager) Len() int {
	return m.drivers.Len()
}

// Prepare 准备阶段：使登记的增删生效
// 返回：新驾驶员ID重复时返回错误，该驾驶员不会加入
func (m *Manager) Prepare() error {
	m.insertedMtx.Lock()
	inserted, removed := m.inserted, m.removed
	m.inserted, m.removed = nil, nil
	m.insertedMtx.Unlock()

	var errs []error
	for _, d := range removed {
		if _, ok := m.data[d.id]; !ok {
			continue
		}
		delete(m.data, d.id)
		m.drivers.Remove(d)
	}
	for _, d := range inserted {
		if _, ok := m.data[d.id]; ok {
			errs = append(errs, fmt.Errorf("%w: %d", ErrDuplicateDriver, d.id))
			continue
		}
		m.data[d.id] = d
		m.drivers.Add(d)
	}
	m.drivers.Prepare()
	log.Debugf("prepare done: %d drivers", m.drivers.Len())
	return errors.Join(errs...)
}

// Update 更新阶段：全部驾驶员并发决策
// 参数：perceive-构造驾驶员本周期的感知结果，会被并发调用，只能读取共享数据
// 返回：与Drivers()顺序一致的决策结果；任一驾驶员出错时取消其余决策并返回第一个错误
// 说明：每个驾驶员只修改自己的状态，步内不得调用Prepare
func (m *Manager) Update(ctx context.Context, perceive func(d *Driver) Perception) ([]Action, error) {
	drivers := m.drivers.Data()
	actions := make([]Action, len(drivers))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)
	for i, d := range drivers {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			a, err := d.Update(perceive(d))
			if err != nil {
				return err
			}
			actions[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if n := lo.CountBy(actions, func(a Action) bool { return a.Anomaly }); n > 0 {
		log.Warnf("%d of %d drivers discarded an anomalous conflict deceleration", n, len(actions))
	}
	return actions, nil
}
