package cli

import (
	"errors"
	"fmt"
)

// 終了コード
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // ストアや通信の失敗
	ExitCommandError = 2 // 引数や状態が不正
)

// ExitError は終了コード付きのエラーです。
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError は ExitError を作成します。
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError は err を包んだ ExitError を作成します。
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode は err に対応する終了コードを返します。
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}
