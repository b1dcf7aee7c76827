package attention

import "github.com/sirupsen/logrus"

// log 注意力模块的日志记录器
var log = logrus.WithField("module", "attention")
