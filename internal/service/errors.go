package service

import "errors"

// 业务错误定义，处理器通过 errors.Is 映射为响应码
var (
	ErrInvalidCredentials     = errors.New("账号或密码错误")
	ErrNotFound               = errors.New("记录不存在")
	ErrOrderNotFound          = errors.New("订单不存在")
	ErrProjectionNotFound     = errors.New("管理投影不存在")
	ErrUnknownState           = errors.New("未知的管理状态")
	ErrRegressionRejected     = errors.New("禁止回退的状态流转")
	ErrUnauthorizedDepartment = errors.New("部门无权操作当前状态")
	ErrMissingDependency      = errors.New("快照依赖缺失")
	ErrSnapshotNotFound       = errors.New("合并快照不存在")
	ErrCodeNotFound           = errors.New("验证码不存在")
	ErrCodeExpired            = errors.New("验证码已过期")
	ErrCodeMismatch           = errors.New("验证码不匹配")
	ErrCodeAlreadyVerified    = errors.New("验证码已被使用")
)
