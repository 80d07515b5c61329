// Package logging installs the context logger used by the command line
// tools.
package logging

import (
	"context"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
)

// DefaultLevel is the level used when no --log-level is given.
const DefaultLevel = logger.LevelInfo

// WithLogger returns ctx carrying a logrus backed logger at level. The same
// logger becomes the default for code that logs without a context logger.
func WithLogger(ctx context.Context, level logger.Level) context.Context {
	l := logrus.Default().WithLevel(level)
	logger.Default = func() logger.Logger {
		return l
	}
	return logger.CtxWithLogger(ctx, l)
}
