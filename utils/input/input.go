package input

import (
	"errors"
	"fmt"

	"git.fiblab.net/general/common/v2/protoutil"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/samber/lo"
)

// ErrEmptyMap 地图中没有可用于构建路网的行车道
var ErrEmptyMap = errors.New("map has no driving lanes")

// LoadMap 从文件加载地图
// 功能：读取mapv2.Map的protobuf二进制文件，并检查其中是否有行车道
// 参数：path-地图文件路径
// 返回：地图数据与错误
func LoadMap(path string) (*mapv2.Map, error) {
	var m mapv2.Map
	if err := protoutil.UnmarshalFromFile(&m, path); err != nil {
		return nil, fmt.Errorf("load map from %s: %w", path, err)
	}
	driving := lo.CountBy(m.Lanes, func(l *mapv2.Lane) bool {
		return l.Type == mapv2.LaneType_LANE_TYPE_DRIVING
	})
	if driving == 0 {
		return nil, fmt.Errorf("load map from %s: %w", path, ErrEmptyMap)
	}
	log.Infof("Lane: %v (driving: %v)", len(m.Lanes), driving)
	log.Infof("Junction: %v", len(m.Junctions))
	return &m, nil
}
