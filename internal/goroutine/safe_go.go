package goroutine

import (
	"context"
	"runtime/debug"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/easytransact-backend/internal/logger"
	"github.com/ignatzorin/easytransact-backend/internal/metrics"
)

// Go запускает фоновую горутину name. Panic перехватывается, логируется со стеком
// и учитывается в метриках, процесс продолжает работу.
func Go(name string, fn func()) {
	go func() {
		defer recoverPanic(name)
		fn()
	}()
}

// GoWithContext запускает fn с контекстом так же, как Go.
func GoWithContext(ctx context.Context, name string, fn func(context.Context)) {
	go func() {
		defer recoverPanic(name)
		fn(ctx)
	}()
}

// Run выполняет fn в текущей горутине и превращает panic в лог.
// Возвращает true, если fn завершилась без panic.
func Run(name string, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logPanic(name, r)
			ok = false
		}
	}()
	fn()
	return true
}

func recoverPanic(name string) {
	if r := recover(); r != nil {
		logPanic(name, r)
	}
}

func logPanic(name string, r any) {
	metrics.GoroutinePanicsTotal.WithLabelValues(name).Inc()
	logger.Get().WithFields(logrus.Fields{
		"goroutine": name,
		"panic":     r,
		"stack":     string(debug.Stack()),
	}).Error("panic в горутине")
}
