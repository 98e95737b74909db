// Package logger, uygulama genelinde kullanılan zap tabanlı logger'ı barındırır.
//
// Kullanım:
//
//	logger.Infof("[ws] client connected: user=%s", userID)
//
// Mesajlar köşeli parantez içinde bileşen etiketi taşır ([ws], [fanout], [main] ...).
// Böylece console çıktısında hangi katmanın log yazdığı tek bakışta görülür.
package logger

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu    sync.RWMutex
	base  *zap.Logger
	sugar *zap.SugaredLogger
)

func init() {
	Init("info")
}

// Init, global logger'ı verilen seviyeyle yeniden kurar.
// Geçersiz seviye gelirse "info" kullanılır. main.go config yüklendikten sonra çağırır.
func Init(level string) {
	encCfg := zapcore.EncoderConfig{
		TimeKey:      "ts",
		LevelKey:     "level",
		NameKey:      "logger",
		CallerKey:    "caller",
		MessageKey:   "msg",
		LineEnding:   zapcore.DefaultLineEnding,
		EncodeTime:   zapcore.ISO8601TimeEncoder,
		EncodeLevel:  zapcore.CapitalLevelEncoder,
		EncodeCaller: zapcore.ShortCallerEncoder,
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.AddSync(os.Stdout),
		parseLevel(level),
	)

	// AddCallerSkip(1): caller alanı bu paketteki wrapper'ı değil, çağıran satırı göstersin.
	l := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))

	mu.Lock()
	base = l
	sugar = l.Sugar()
	mu.Unlock()
}

// L, alttaki *zap.Logger'ı döner (client SDK adapter'ı gibi yapılandırılmış log isteyenler için).
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base.WithOptions(zap.AddCallerSkip(-1))
}

// Sync, buffer'daki logları yazar. Shutdown sırasında çağrılır.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = base.Sync()
}

func Debugf(format string, args ...any) { s().Debugf(format, args...) }
func Infof(format string, args ...any)  { s().Infof(format, args...) }
func Warnf(format string, args ...any)  { s().Warnf(format, args...) }
func Errorf(format string, args ...any) { s().Errorf(format, args...) }

// Fatalf, logu yazar ve os.Exit(1) ile çıkar. Sadece main paketinde kullanılmalı.
func Fatalf(format string, args ...any) { s().Fatalf(format, args...) }

func s() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

func parseLevel(level string) zapcore.Level {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level)))); err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}
