package tools

import (
	"flag"
	"fmt"
	"strconv"

	"github.com/golang/glog"
)

var isEnabled = true

func EnableLogger() {
	isEnabled = true
}

func DisableLogger() {
	isEnabled = false
}

// SetupLogger sends glog output to stderr at the given verbosity.
func SetupLogger(verbosity int) error {
	if err := flag.Set("logtostderr", "true"); err != nil {
		return err
	}
	return flag.Set("v", strconv.Itoa(verbosity))
}

func LogOutput(val ...interface{}) {
	if isEnabled {
		glog.InfoDepth(1, fmt.Sprintln(val...))
	}
}
