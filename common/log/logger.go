package log

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/ngageoint/scale/common/log/hooks"
)

// Environment variable read by ConfigureFromEnv.
const LevelEnv = "SCALE_LOGLEVEL"

// ConfigureFromEnv sets the logrus level from SCALE_LOGLEVEL and adds the file:line hook.
// Without the variable the level is left at fallback, which lets tests stay quiet.
func ConfigureFromEnv(fallback logrus.Level) {
	if loglevel := os.Getenv(LevelEnv); loglevel != "" {
		level, err := logrus.ParseLevel(loglevel)
		if err != nil {
			logrus.Error(err)
			return
		}
		logrus.SetLevel(level)
		logrus.AddHook(hooks.NewContextHook())
		return
	}
	logrus.SetLevel(fallback)
}
