// Package infrastructure provides logging helpers shared by the daemon's
// modules.
package infrastructure

import (
	"fmt"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerConfig returns the zap configuration for a log level name. "debug"
// selects the development configuration; anything else is a production
// configuration at that level, falling back to info for unknown names.
func LoggerConfig(level string) zap.Config {
	if strings.EqualFold(level, "debug") {
		return zap.NewDevelopmentConfig()
	}

	cfg := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil || lvl < zapcore.InfoLevel {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	return cfg
}

// FxLoggerAdapter routes Fx lifecycle events and prints into zap with
// structured fields.
type FxLoggerAdapter struct {
	logger *zap.Logger
}

// NewFxLoggerAdapter creates an fxevent.Logger writing to logger.
func NewFxLoggerAdapter(logger *zap.Logger) fxevent.Logger {
	return &FxLoggerAdapter{logger: logger.Named("fx")}
}

// NewFxPrinter creates an fx.Printer writing to logger.
func NewFxPrinter(logger *zap.Logger) fx.Printer {
	return &FxLoggerAdapter{logger: logger.Named("fx")}
}

// LogEvent implements fxevent.Logger.
func (p *FxLoggerAdapter) LogEvent(event fxevent.Event) {
	switch e := event.(type) {
	case *fxevent.OnStartExecuting:
		p.logger.Debug("OnStart hook executing",
			zap.String("callee", e.FunctionName),
			zap.String("caller", e.CallerName))
	case *fxevent.OnStartExecuted:
		p.logHook("OnStart", e.FunctionName, e.CallerName, e.Runtime.String(), e.Err)
	case *fxevent.OnStopExecuting:
		p.logger.Debug("OnStop hook executing",
			zap.String("callee", e.FunctionName),
			zap.String("caller", e.CallerName))
	case *fxevent.OnStopExecuted:
		p.logHook("OnStop", e.FunctionName, e.CallerName, e.Runtime.String(), e.Err)
	case *fxevent.Supplied:
		p.logResult("supplied", e.Err, zap.String("type", e.TypeName), zap.String("module", e.ModuleName))
	case *fxevent.Provided:
		p.logResult("provided", e.Err,
			zap.String("constructor", e.ConstructorName),
			zap.Strings("types", e.OutputTypeNames),
			zap.String("module", e.ModuleName))
	case *fxevent.Invoking:
		p.logger.Debug("invoking", zap.String("function", e.FunctionName), zap.String("module", e.ModuleName))
	case *fxevent.Invoked:
		p.logResult("invoked", e.Err, zap.String("function", e.FunctionName), zap.String("module", e.ModuleName))
	case *fxevent.Stopping:
		p.logger.Info("received signal", zap.String("signal", strings.ToUpper(e.Signal.String())))
	case *fxevent.Stopped:
		p.logLifecycle("stopped", e.Err)
	case *fxevent.RollingBack:
		p.logger.Error("start failed, rolling back", zap.Error(e.StartErr))
	case *fxevent.RolledBack:
		p.logLifecycle("rolled back", e.Err)
	case *fxevent.Started:
		p.logLifecycle("started", e.Err)
	case *fxevent.LoggerInitialized:
		p.logResult("custom logger initialized", e.Err, zap.String("constructor", e.ConstructorName))
	default:
		p.logger.Debug("unhandled Fx event", zap.String("event", fmt.Sprintf("%T", event)))
	}
}

// Printf implements fx.Printer.
func (p *FxLoggerAdapter) Printf(format string, args ...any) {
	p.logger.Sugar().Infof(format, args...)
}

func (p *FxLoggerAdapter) logHook(hook, callee, caller, runtime string, err error) {
	fields := []zap.Field{
		zap.String("hook", hook),
		zap.String("callee", callee),
		zap.String("caller", caller),
	}
	if err != nil {
		p.logger.Error("hook failed", append(fields, zap.Error(err))...)
		return
	}
	p.logger.Debug("hook executed", append(fields, zap.String("runtime", runtime))...)
}

// logResult logs a debug line on success and an error line otherwise.
func (p *FxLoggerAdapter) logResult(msg string, err error, fields ...zap.Field) {
	if err != nil {
		p.logger.Error(msg+" with error", append(fields, zap.Error(err))...)
		return
	}
	p.logger.Debug(msg, fields...)
}

func (p *FxLoggerAdapter) logLifecycle(msg string, err error) {
	if err != nil {
		p.logger.Error(msg+" with error", zap.Error(err))
		return
	}
	p.logger.Info(msg)
}
