package annotate

import (
	"fmt"

	"github.com/golang/glog"
)

// Logging convention in the `annotate` package:
// glog.Error:
//     unrecoverable crash details and unexpected panics,
//     even if handled and suppressed for partial operation
// glog.Info (V(0)):
//     essential events for abnormal behavior. This level should be silent
//     on normal operation. this includes:
//     - collection loads resolving to the fallback after a gateway failure
//     - in-flight results discarded by invalidation
// glog.V(1):
//     one time (infrequent) initialization data useful for monitoring
// glog.V(2):
//     key events for trace debugging - loads, mirror patches, revert
//     instructions - with short bracketed kind tags that can be used to
//     filter, e.g. [repo]station

type LogFunction func(string, ...any)

// LogFn returns a tagged logger at the given glog verbosity.
// repositories use one per entity kind so traces can be filtered by kind.
func LogFn(v glog.Level, tag string) LogFunction {
	return func(format string, a ...any) {
		if glog.V(v) {
			m := fmt.Sprintf(format, a...)
			glog.InfoDepth(1, fmt.Sprintf("%s: %s", tag, m))
		}
	}
}

func SubLogFn(v glog.Level, log LogFunction, tag string) LogFunction {
	return func(format string, a ...any) {
		if glog.V(v) {
			m := fmt.Sprintf(format, a...)
			log("%s: %s", tag, m)
		}
	}
}
