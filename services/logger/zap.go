package logsvc

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/trezcool/gradebook/core"
)

// ZapLogger writes structured logs with zap. It is the CLI logger and the server logger when no rollbar token is set.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

var _ core.Logger = (*ZapLogger)(nil)

// NewZapLogger builds a console logger in debug mode and a JSON one otherwise.
func NewZapLogger(conf *core.Config) (*ZapLogger, error) {
	var (
		zl  *zap.Logger
		err error
	)
	if conf.Debug {
		zl, err = zap.NewDevelopment()
	} else {
		zl, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return WrapZap(zl.With(zap.String("app", conf.AppName), zap.String("env", conf.Env))), nil
}

func WrapZap(zl *zap.Logger) *ZapLogger {
	return &ZapLogger{sugar: zl.Sugar()}
}

func (l ZapLogger) Sync() error {
	return l.sugar.Sync()
}

// keysAndValues flattens errors and extras maps into zap's alternating key/value form.
func keysAndValues(args []interface{}) []interface{} {
	kv := make([]interface{}, 0, 2*len(args))
	for i, arg := range args {
		switch v := arg.(type) {
		case error:
			kv = append(kv, zap.Error(v))
		case map[string]interface{}:
			keys := make([]string, 0, len(v))
			for k := range v {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				kv = append(kv, k, v[k])
			}
		default:
			kv = append(kv, fmt.Sprintf("arg%d", i), v)
		}
	}
	return kv
}

func (l ZapLogger) Debug(msg string, args ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues(args)...)
}

func (l ZapLogger) Info(msg string, args ...interface{}) {
	l.sugar.Infow(msg, keysAndValues(args)...)
}

func (l ZapLogger) Warn(msg string, args ...interface{}) {
	l.sugar.Warnw(msg, keysAndValues(args)...)
}

func (l ZapLogger) Error(msg string, args ...interface{}) {
	l.sugar.Errorw(msg, keysAndValues(args)...)
}

func (l ZapLogger) Fatal(msg string, args ...interface{}) {
	l.sugar.Fatalw(msg, keysAndValues(args)...)
}
