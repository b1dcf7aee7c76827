package conflict

import "github.com/sirupsen/logrus"

// log 冲突通行模块的日志记录器
var log = logrus.WithField("module", "conflict")
