package task

import (
	"context"

	xerrors "ChainForge/internal/errors"
	"ChainForge/internal/runtime"
)

// Action 是任务的执行体，args 为任务名之后的位置参数。
type Action func(ctx context.Context, env *runtime.Env, args []string) error

// Definition 描述一个可通过命令行调用的任务。
type Definition struct {
	Name        string
	Description string
	// Usage 展示位置参数，例如 "[network...]"。
	Usage  string
	Action Action
	// Source 记录任务来源：builtin 或插件 ID。
	Source string
}

const (
	CodeTaskNotFound xerrors.Code = "TASK_NOT_FOUND"
	CodeTaskConflict xerrors.Code = "TASK_CONFLICT"
	CodeTaskInvalid  xerrors.Code = "TASK_INVALID"
	CodeTaskFailed   xerrors.Code = "TASK_FAILED"
)

func init() {
	xerrors.Register(CodeTaskNotFound, xerrors.Attributes{
		Message:  "task not found",
		Severity: xerrors.SeverityInfo,
	})
	xerrors.Register(CodeTaskConflict, xerrors.Attributes{
		Message:  "task already registered",
		Severity: xerrors.SeverityWarning,
	})
	xerrors.Register(CodeTaskInvalid, xerrors.Attributes{
		Message:  "invalid task definition",
		Severity: xerrors.SeverityWarning,
	})
	xerrors.Register(CodeTaskFailed, xerrors.Attributes{
		Message:  "task execution failed",
		Severity: xerrors.SeverityWarning,
	})
}
