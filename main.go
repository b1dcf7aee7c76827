package main

import (
	"context"
	"encoding/base64"
	"flag"
	"os"
	"os/signal"
	"syscall"

	easy "git.fiblab.net/utils/logrus-easy-formatter"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/agentsociety-driver/task"
	"github.com/tsinghua-fib-lab/agentsociety-driver/utils/config"
)

var (
	// 配置文件路径
	configPath = flag.String("config", "", "config file path")
	// 配置文件Base64编码后的数据
	configData = flag.String("config-data", "", "config file base64 encoded data")

	// log
	logLevels = map[string]logrus.Level{
		"trace":    logrus.TraceLevel,
		"debug":    logrus.DebugLevel,
		"info":     logrus.InfoLevel,
		"warn":     logrus.WarnLevel,
		"error":    logrus.ErrorLevel,
		"critical": logrus.FatalLevel,
		"off":      logrus.PanicLevel,
	}
	logLevel = flag.String("log.level", "info", "日志级别（可选项：trace debug info warn error critical off）")

	log = logrus.WithField("module", "driver-sim")
)

func main() {
	flag.Parse()
	logrus.SetFormatter(&easy.Formatter{
		TimestampFormat: "2006-01-02 15:04:05.0000",
		LogFormat:       "[%module%] [%time%] [%lvl%] %msg%\n",
	})
	// log: 运行时才修改
	if level, ok := logLevels[*logLevel]; ok {
		logrus.SetLevel(level)
	} else {
		log.Panicf("log.level must be one of %v", logLevels)
	}
	// 获取配置
	var file []byte
	var err error
	if *configPath != "" {
		file, err = os.ReadFile(*configPath)
		if err != nil {
			log.Panicf("config file load err: %v", err)
		}
	} else if *configData != "" {
		file, err = base64.StdEncoding.DecodeString(*configData)
		if err != nil {
			log.Panicf("config data load err: %v", err)
		}
	} else {
		log.Panic("config file or config data must be specified")
	}
	c, err := config.Parse(file)
	if err != nil {
		log.Panicf("config file load err: %v", err)
	}
	log.Infof("%+v", c)
	rc, err := config.NewRuntimeConfig(c)
	if err != nil {
		log.Panicf("config err: %v", err)
	}

	t, err := task.NewContext(rc)
	if err != nil {
		log.Panicf("init err: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	summary, err := t.Run(ctx)
	if err != nil {
		log.Errorf("simulation stopped: %v (%v)", err, summary)
		return
	}
	log.Infof("%v", summary)
}
