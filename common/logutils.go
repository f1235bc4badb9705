package common

import (
	"os"

	"github.com/sirupsen/logrus"
)

var (
	serviceName     = "changeportal"
	serviceInstance = ""
)

func init() {
	logger := logrus.StandardLogger()
	logger.Out = os.Stdout
	logger.Formatter = &logrus.TextFormatter{}
	logger.AddHook(&DefaultFieldsHook{})

	if host, err := os.Hostname(); err == nil {
		serviceInstance = host
	}
}

// ConfigureLogging applies service name, level and output format to the standard logger.
// Unknown levels fall back to info.
func ConfigureLogging(name, level, format string) {
	if name != "" {
		serviceName = name
	}

	logger := logrus.StandardLogger()
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	if format == "json" {
		logger.Formatter = &logrus.JSONFormatter{}
	} else {
		logger.Formatter = &logrus.TextFormatter{}
	}
}

func GetServiceName() string {
	return serviceName
}

func GetServiceInstance() string {
	return serviceInstance
}

type DefaultFieldsHook struct {
}

func (hook *DefaultFieldsHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (hook *DefaultFieldsHook) Fire(e *logrus.Entry) error {
	e.Data["serviceName"] = GetServiceName()
	e.Data["serviceInstance"] = GetServiceInstance()
	return nil
}
