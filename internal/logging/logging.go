// Package logging は charmbracelet/log のロガーを設定します。
package logging

import (
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"theone-todo/internal/config"
)

// ParseLevel は文字列のログレベルを log.Level に変換します。
// 不明な値は InfoLevel になります。
func ParseLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	case "fatal":
		return log.FatalLevel
	default:
		return log.InfoLevel
	}
}

// ParseFormatter は "text" / "json" / "logfmt" を log.Formatter に変換します。
func ParseFormatter(format string) log.Formatter {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		return log.JSONFormatter
	case "logfmt":
		return log.LogfmtFormatter
	default:
		return log.TextFormatter
	}
}

// Setup は設定に従ってロガーを作成し、デフォルトロガーとして登録します。
func Setup(cfg config.LogConfig, w io.Writer, prefix string) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		Level:           ParseLevel(cfg.Level),
		Formatter:       ParseFormatter(cfg.Format),
		ReportTimestamp: true,
		Prefix:          prefix,
	})
	log.SetDefault(logger)
	return logger
}
