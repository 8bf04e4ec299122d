// Package slogx has slog attribute constructors shared by the library packages.
package slogx

import (
	"fmt"
	"log/slog"
)

// KeyLoggerName names the component that emitted a record.
const KeyLoggerName = "logger"

// Error logs err under the "error" key.
func Error(err error) slog.Attr {
	return slog.String("error", err.Error())
}

func ByteString(key string, value []byte) slog.Attr {
	return slog.String(key, string(value))
}

func Stringer(key string, value fmt.Stringer) slog.Attr {
	return slog.String(key, value.String())
}

func LoggerName(name string) slog.Attr {
	return slog.String(KeyLoggerName, name)
}
