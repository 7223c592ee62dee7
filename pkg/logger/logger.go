// pkg/logger/logger.go
package logger

import (
	"go.uber.org/zap"
)

type Sugared = *zap.SugaredLogger

// New returns a JSON production logger for env "prod" and a console
// development logger otherwise. It never returns nil.
func New(env string) Sugared {
	var (
		z   *zap.Logger
		err error
	)
	if env == "prod" {
		z, err = zap.NewProduction()
	} else {
		z, err = zap.NewDevelopment()
	}
	if err != nil {
		z = zap.NewNop()
	}
	return z.Sugar().With("service", "chatkit-lab")
}

// Nop is a discarding logger for callers that were not given one.
func Nop() Sugared { return zap.NewNop().Sugar() }
