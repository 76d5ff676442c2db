package biz

import "errors"

var (
	// ErrCodeRequired 下载码为空
	ErrCodeRequired = errors.New("download code is required")

	// ErrInvalidCode 下载码不存在
	ErrInvalidCode = errors.New("invalid download code")

	// ErrAlreadyUsed 下载码已被使用
	ErrAlreadyUsed = errors.New("download code has already been used")

	// ErrExpired 下载码已过期
	ErrExpired = errors.New("download code has expired")

	// ErrLimitExceeded 下载次数已用完
	ErrLimitExceeded = errors.New("download limit exceeded for this code")

	// ErrForbidden 下载码不属于当前用户
	ErrForbidden = errors.New("download code is not assigned to this caller")

	// ErrNotRedeemed 下载记录不存在或尚未兑换
	ErrNotRedeemed = errors.New("download not found or not redeemed")

	// ErrFileNotFound 存储中不存在该文件
	ErrFileNotFound = errors.New("file not found in storage")

	// ErrFileTooLarge 上传文件超过大小限制
	ErrFileTooLarge = errors.New("file exceeds upload size limit")

	// ErrUnauthenticated 未提供身份
	ErrUnauthenticated = errors.New("caller is not authenticated")

	// ErrAdminRequired 需要管理员权限
	ErrAdminRequired = errors.New("admin privileges required")

	// ErrInvalidInput 请求参数缺失或格式错误
	ErrInvalidInput = errors.New("invalid input")

	// ErrRecipientEmail 收件人邮箱格式错误
	ErrRecipientEmail = errors.New("invalid recipient email")

	// ErrLogNotFound 下载日志不存在
	ErrLogNotFound = errors.New("log entry not found")

	// ErrCodeCollision 生成的下载码与已有记录冲突
	ErrCodeCollision = errors.New("download code collision")

	// ErrStorageUnavailable 对象存储不可用
	ErrStorageUnavailable = errors.New("file storage not available")

	// ErrDatabaseUnavailable 数据库不可用
	ErrDatabaseUnavailable = errors.New("database not available")
)
