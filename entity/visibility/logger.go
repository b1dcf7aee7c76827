package visibility

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "visibility")
