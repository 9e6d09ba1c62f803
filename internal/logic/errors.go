package logic

import (
	"errors"
)

// 业务错误分类，处理器通过 errors.Is 映射为 HTTP 状态码。
var (
	// ErrInvalidInput 参数校验失败
	ErrInvalidInput = errors.New("参数无效")
	// ErrBelowMinimumParts 购买份额低于项目最低要求
	ErrBelowMinimumParts = errors.New("购买份额低于项目最低要求")
	// ErrInsufficientParts 项目剩余份额不足
	ErrInsufficientParts = errors.New("项目剩余份额不足")
	// ErrStateConflict 当前状态不允许该操作
	ErrStateConflict = errors.New("当前状态不允许该操作")
	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("记录不存在")
	// ErrConcurrencyConflict 并发冲突，调用方可重试
	ErrConcurrencyConflict = errors.New("并发冲突，请重试")
)
