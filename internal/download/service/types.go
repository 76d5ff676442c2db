package service

import "time"

// ValidateRequest 兑换下载码请求
type ValidateRequest struct {
	Code string `json:"code"`
}

// ValidateResponse 兑换成功响应
type ValidateResponse struct {
	DownloadID  int64  `json:"download_id"`
	FileName    string `json:"file_name"`
	FileSize    int64  `json:"file_size"`
	DownloadURL string `json:"download_url"`
}

// PresignedResponse 预签名下载地址响应（字段名与前端下载脚本保持一致）
type PresignedResponse struct {
	PresignedURL string                `json:"presignedUrl"`
	FileName     string                `json:"fileName"`
	FileSize     int64                 `json:"fileSize"`
	ExpiresIn    int64                 `json:"expiresIn"`
	Instructions PresignedInstructions `json:"instructions"`
}

// PresignedInstructions 预签名地址使用说明
type PresignedInstructions struct {
	Method  string    `json:"method"`
	Note    string    `json:"note"`
	Expires time.Time `json:"expires"`
}

// GenerateCodeRequest 为已有文件生成下载码
type GenerateCodeRequest struct {
	FileKey        string `json:"fileKey"`
	RecipientEmail string `json:"recipientEmail"`
	Description    string `json:"description"`
}

// GenerateCodesRequest 为已有文件批量生成下载码
type GenerateCodesRequest struct {
	FileKey     string   `json:"fileKey"`
	Recipients  []string `json:"recipients"`
	Description string   `json:"description"`
}

// CodeResponse 下载码生成结果
type CodeResponse struct {
	ID        int64  `json:"id"`
	Code      string `json:"code"`
	FileName  string `json:"file_name"`
	FileSize  int64  `json:"file_size"`
	Recipient string `json:"recipient,omitempty"`
}

// BatchCodeResponse 批量生成结果
type BatchCodeResponse struct {
	FileName string             `json:"file_name"`
	FileSize int64              `json:"file_size"`
	Issued   []CodeResponse     `json:"issued"`
	Failed   []BatchFailureItem `json:"failed"`
}

// BatchFailureItem 未能生成下载码的收件人
type BatchFailureItem struct {
	Recipient string `json:"recipient"`
	Error     string `json:"error"`
}

// FileResponse 存储文件信息
type FileResponse struct {
	Key          string    `json:"key"`
	Name         string    `json:"name"`
	Size         string    `json:"size"`
	SizeBytes    int64     `json:"size_bytes"`
	LastModified time.Time `json:"last_modified"`
}

// FileListResponse 文件列表
type FileListResponse struct {
	Files []FileResponse `json:"files"`
	Count int            `json:"count"`
}

// ListLogsRequest 下载日志查询参数
type ListLogsRequest struct {
	Limit       int  `form:"limit" binding:"omitempty,min=0"`
	Offset      int  `form:"offset" binding:"omitempty,min=0"`
	SuccessOnly bool `form:"success_only"`
}

// LogResponse 下载日志条目
type LogResponse struct {
	ID           int64     `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	UserEmail    string    `json:"user_email"`
	Success      bool      `json:"success"`
	ErrorMessage *string   `json:"error_message"`
	Location     string    `json:"location"`
	IPAddress    string    `json:"ip_address"`
	FileName     *string   `json:"file_name"`
	Code         *string   `json:"code"`
	FileSize     int64     `json:"file_size"`
}

// PaginationResponse 分页信息
type PaginationResponse struct {
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	Total   int64 `json:"total"`
	HasMore bool  `json:"has_more"`
}

// StatisticsResponse 下载日志统计
type StatisticsResponse struct {
	TotalAttempts       int64      `json:"total_attempts"`
	SuccessfulDownloads int64      `json:"successful_downloads"`
	FailedAttempts      int64      `json:"failed_attempts"`
	UniqueUsers         int64      `json:"unique_users"`
	SuccessRate         int        `json:"success_rate"`
	LastActivity        *time.Time `json:"last_activity"`
}

// LogListResponse 下载日志列表
type LogListResponse struct {
	Logs       []LogResponse      `json:"logs"`
	Pagination PaginationResponse `json:"pagination"`
	Statistics StatisticsResponse `json:"statistics"`
}

// AdminLogResponse 管理员日志条目
type AdminLogResponse struct {
	ID         int64     `json:"id"`
	AdminEmail string    `json:"admin_email"`
	Action     string    `json:"action"`
	IPAddress  string    `json:"ip_address"`
	Location   string    `json:"location"`
	Success    bool      `json:"success"`
	Details    string    `json:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// AdminLogListResponse 管理员日志列表
type AdminLogListResponse struct {
	Logs       []AdminLogResponse `json:"logs"`
	Pagination PaginationResponse `json:"pagination"`
}

// UserResponse 当前用户信息
type UserResponse struct {
	Authenticated bool     `json:"authenticated"`
	Email         string   `json:"email"`
	Name          string   `json:"name,omitempty"`
	Groups        []string `json:"groups"`
	IsAdmin       bool     `json:"is_admin"`
}

// DeleteLogResponse 删除日志结果
type DeleteLogResponse struct {
	DeletedID int64 `json:"deleted_id"`
}
