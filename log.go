package retrocell

import "go.uber.org/zap"

// defaultLogger is the package-wide diagnostic sink, a no-op, so
// importing retrocell never forces logging output on a caller. The
// Ref finalizer's leak warning always goes here; WithLogger does not
// replace it.
//
// This mirrors the "inject a *zap.Logger, default to zap.NewNop()"
// idiom used throughout the wider example pack's production services.
var defaultLogger = zap.NewNop().Sugar()

func namedLogger(l *zap.Logger) *zap.SugaredLogger {
	if l == nil {
		return defaultLogger
	}
	return l.Sugar().Named("retrocell")
}
