package service

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/file-portal-backend/internal/download/biz"
	"github.com/lk2023060901/file-portal-backend/internal/identity"
	apperrors "github.com/lk2023060901/file-portal-backend/internal/pkg/errors"
	"github.com/lk2023060901/file-portal-backend/internal/pkg/logger"
	"github.com/lk2023060901/file-portal-backend/internal/pkg/response"
	"go.uber.org/zap"
)

// DownloadService 下载码 HTTP 服务
type DownloadService struct {
	uc     *biz.DownloadUseCase
	logger *logger.Logger
}

// NewDownloadService 创建下载码服务
func NewDownloadService(uc *biz.DownloadUseCase, logger *logger.Logger) *DownloadService {
	return &DownloadService{
		uc:     uc,
		logger: logger,
	}
}

// callerOf 读取身份中间件注入的调用者
func callerOf(c *gin.Context) identity.Caller {
	return identity.FromContext(c.Request.Context())
}

// WhoAmI 获取当前用户信息
func (s *DownloadService) WhoAmI(c *gin.Context) {
	profile, err := s.uc.WhoAmI(c.Request.Context(), callerOf(c))
	if err != nil {
		if errors.Is(err, biz.ErrUnauthenticated) {
			response.ErrorWithData(c, apperrors.ErrUnauthorized, gin.H{"authenticated": false})
			return
		}
		s.handleError(c, err)
		return
	}

	groups := profile.Groups
	if groups == nil {
		groups = []string{}
	}
	response.Success(c, &UserResponse{
		Authenticated: profile.Authenticated,
		Email:         profile.Email,
		Name:          profile.Name,
		Groups:        groups,
		IsAdmin:       profile.IsAdmin,
	})
}

// Validate 兑换下载码
func (s *DownloadService) Validate(c *gin.Context) {
	var req ValidateRequest
	// 请求体缺失或无法解析时按空下载码处理，仍需记录日志
	_ = c.ShouldBindJSON(&req)

	res, err := s.uc.Validate(c.Request.Context(), callerOf(c), req.Code)
	if err != nil {
		s.handleError(c, err)
		return
	}

	response.Success(c, &ValidateResponse{
		DownloadID:  res.ID,
		FileName:    res.FileName,
		FileSize:    res.FileSize,
		DownloadURL: fmt.Sprintf("/api/downloads/file/%d?t=%d", res.ID, time.Now().UnixMilli()),
	})
}

// Fetch 以流的方式下载已兑换的文件
func (s *DownloadService) Fetch(c *gin.Context) {
	id, ok := s.pathID(c)
	if !ok {
		return
	}

	res, err := s.uc.Fetch(c.Request.Context(), callerOf(c), id)
	if err != nil {
		s.handleError(c, err)
		return
	}
	defer res.Body.Close()

	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
	c.Header("X-Download-Code", res.Code.Code)
	c.Header("X-File-Size", strconv.FormatInt(res.Size, 10))
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("X-Frame-Options", "DENY")
	c.Header("X-Download-Time", strconv.FormatInt(res.Duration.Milliseconds(), 10))

	c.DataFromReader(http.StatusOK, res.Size, res.ContentType, res.Body, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", res.Code.FileName),
	})
}

// Presign 获取预签名下载地址
func (s *DownloadService) Presign(c *gin.Context) {
	id, ok := s.pathID(c)
	if !ok {
		return
	}

	res, err := s.uc.Presign(c.Request.Context(), callerOf(c), id)
	if err != nil {
		s.handleError(c, err)
		return
	}

	response.Success(c, &PresignedResponse{
		PresignedURL: res.URL,
		FileName:     res.FileName,
		FileSize:     res.FileSize,
		ExpiresIn:    int64(res.ExpiresIn / time.Second),
		Instructions: PresignedInstructions{
			Method:  http.MethodGet,
			Note:    "Download the file using a GET request to the presigned URL",
			Expires: res.ExpiresAt.UTC(),
		},
	})
}

// ListLogs 分页查询下载日志
func (s *DownloadService) ListLogs(c *gin.Context) {
	var req ListLogsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	page, err := s.uc.ListLogs(c.Request.Context(), callerOf(c), biz.LogFilter{
		Limit:       req.Limit,
		Offset:      req.Offset,
		SuccessOnly: req.SuccessOnly,
	})
	if err != nil {
		s.handleError(c, err)
		return
	}

	response.Success(c, toLogListResponse(page))
}

// Issue 为已有文件生成下载码
func (s *DownloadService) Issue(c *gin.Context) {
	var req GenerateCodeRequest
	// 字段校验与权限检查都在 biz 层完成，保证每次尝试都写入管理日志
	_ = c.ShouldBindJSON(&req)

	res, err := s.uc.Issue(c.Request.Context(), callerOf(c), biz.IssueRequest{
		FileKey:        req.FileKey,
		RecipientEmail: req.RecipientEmail,
		Notes:          req.Description,
	})
	if err != nil {
		s.handleError(c, err)
		return
	}

	response.Created(c, toCodeResponse(res))
}

// IssueBatch 为已有文件批量生成下载码
func (s *DownloadService) IssueBatch(c *gin.Context) {
	var req GenerateCodesRequest
	_ = c.ShouldBindJSON(&req)

	res, err := s.uc.IssueBatch(c.Request.Context(), callerOf(c), biz.BatchIssueRequest{
		FileKey:    req.FileKey,
		Recipients: req.Recipients,
		Notes:      req.Description,
	})
	if err != nil {
		s.handleError(c, err)
		return
	}

	out := &BatchCodeResponse{
		FileName: res.FileName,
		FileSize: res.FileSize,
		Issued:   make([]CodeResponse, 0, len(res.Issued)),
		Failed:   make([]BatchFailureItem, 0, len(res.Failed)),
	}
	for _, r := range res.Issued {
		out.Issued = append(out.Issued, *toCodeResponse(r))
	}
	for _, f := range res.Failed {
		out.Failed = append(out.Failed, BatchFailureItem{Recipient: f.Recipient, Error: f.Error})
	}
	response.Created(c, out)
}

// Upload 上传文件并生成下载码（multipart: file, recipientEmail, description）
func (s *DownloadService) Upload(c *gin.Context) {
	limit := s.uc.Config().MaxUploadBytes
	// 预留 1MB 给 multipart 头与其他表单字段
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+1<<20)

	// 文件缺失或超限时仍交给 biz 层，由其检查权限并记录管理日志
	var req biz.UploadRequest
	var tooLarge *http.MaxBytesError
	header, err := c.FormFile("file")
	switch {
	case errors.As(err, &tooLarge):
		req.Size = max(c.Request.ContentLength, limit+1)
	case err == nil:
		file, openErr := header.Open()
		if openErr != nil {
			s.logger.Error("failed to open uploaded file", zap.Error(openErr))
			break
		}
		defer file.Close()
		req.Name = header.Filename
		req.Size = header.Size
		req.ContentType = header.Header.Get("Content-Type")
		req.Body = file
	}
	req.RecipientEmail = c.PostForm("recipientEmail")
	req.Notes = c.PostForm("description")

	res, err := s.uc.Upload(c.Request.Context(), callerOf(c), req)
	if err != nil {
		s.handleError(c, err)
		return
	}

	response.Created(c, toCodeResponse(res))
}

// ListFiles 列出存储中的全部文件
func (s *DownloadService) ListFiles(c *gin.Context) {
	files, err := s.uc.ListFiles(c.Request.Context(), callerOf(c))
	if err != nil {
		s.handleError(c, err)
		return
	}

	items := make([]FileResponse, 0, len(files))
	for _, f := range files {
		items = append(items, FileResponse{
			Key:          f.Key,
			Name:         f.Name,
			Size:         f.SizeHuman,
			SizeBytes:    f.Size,
			LastModified: f.UploadedAt,
		})
	}
	response.Success(c, &FileListResponse{Files: items, Count: len(items)})
}

// ListAdminLogs 分页查询管理员操作日志
func (s *DownloadService) ListAdminLogs(c *gin.Context) {
	var req ListLogsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	page, err := s.uc.ListAdminLogs(c.Request.Context(), callerOf(c), req.Limit, req.Offset)
	if err != nil {
		s.handleError(c, err)
		return
	}

	logs := make([]AdminLogResponse, 0, len(page.Logs))
	for _, l := range page.Logs {
		logs = append(logs, AdminLogResponse{
			ID:         l.ID,
			AdminEmail: l.AdminEmail,
			Action:     l.Action,
			IPAddress:  l.IPAddress,
			Location:   l.Location.LocationString,
			Success:    l.Success,
			Details:    l.Details,
			Timestamp:  l.Timestamp,
		})
	}
	response.Success(c, &AdminLogListResponse{
		Logs: logs,
		Pagination: PaginationResponse{
			Limit:   page.Limit,
			Offset:  page.Offset,
			Total:   page.Total,
			HasMore: page.HasMore,
		},
	})
}

// DeleteLog 删除一条下载日志
func (s *DownloadService) DeleteLog(c *gin.Context) {
	id, ok := s.pathID(c)
	if !ok {
		return
	}

	if err := s.uc.DeleteLog(c.Request.Context(), callerOf(c), id); err != nil {
		s.handleError(c, err)
		return
	}

	response.Success(c, &DeleteLogResponse{DeletedID: id})
}

// pathID 解析路径中的数字 ID
func (s *DownloadService) pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}

// handleError 统一错误处理
func (s *DownloadService) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, biz.ErrCodeRequired):
		response.ErrorWithCode(c, apperrors.ErrDownloadCodeRequired)
	case errors.Is(err, biz.ErrInvalidCode):
		response.ErrorWithCode(c, apperrors.ErrDownloadInvalidCode)
	case errors.Is(err, biz.ErrAlreadyUsed):
		response.ErrorWithCode(c, apperrors.ErrDownloadAlreadyUsed)
	case errors.Is(err, biz.ErrExpired):
		response.ErrorWithCode(c, apperrors.ErrDownloadExpired)
	case errors.Is(err, biz.ErrLimitExceeded):
		response.ErrorWithCode(c, apperrors.ErrDownloadLimitExceeded)
	case errors.Is(err, biz.ErrForbidden):
		response.ErrorWithCode(c, apperrors.ErrDownloadForbidden)
	case errors.Is(err, biz.ErrNotRedeemed):
		response.ErrorWithCode(c, apperrors.ErrDownloadNotRedeemed)
	case errors.Is(err, biz.ErrFileNotFound):
		response.ErrorWithCode(c, apperrors.ErrFileNotFound)
	case errors.Is(err, biz.ErrFileTooLarge):
		response.ErrorWithCode(c, apperrors.ErrFileTooLarge)
	case errors.Is(err, biz.ErrUnauthenticated):
		response.Unauthorized(c)
	case errors.Is(err, biz.ErrAdminRequired):
		response.ErrorWithCode(c, apperrors.ErrAdminRequired)
	case errors.Is(err, biz.ErrRecipientEmail):
		response.ErrorWithCode(c, apperrors.ErrRecipientEmail)
	case errors.Is(err, biz.ErrInvalidInput):
		response.BadRequest(c, err.Error())
	case errors.Is(err, biz.ErrLogNotFound):
		response.ErrorWithCode(c, apperrors.ErrLogNotFound)
	case errors.Is(err, biz.ErrStorageUnavailable):
		s.logger.Error("file storage unavailable", zap.Error(err))
		response.ErrorWithCode(c, apperrors.ErrStorageUnavailable)
	case errors.Is(err, biz.ErrDatabaseUnavailable):
		s.logger.Error("database unavailable", zap.Error(err))
		response.ErrorWithCode(c, apperrors.ErrDatabaseUnavailable)
	default:
		s.logger.Error("internal error", zap.Error(err))
		response.HandleError(c, err)
	}
}

// toCodeResponse 转换下载码响应
func toCodeResponse(r *biz.IssueResult) *CodeResponse {
	return &CodeResponse{
		ID:        r.ID,
		Code:      r.Code,
		FileName:  r.FileName,
		FileSize:  r.FileSize,
		Recipient: r.Recipient,
	}
}

// toLogListResponse 转换下载日志列表响应
func toLogListResponse(page *biz.DownloadLogPage) *LogListResponse {
	logs := make([]LogResponse, 0, len(page.Logs))
	for _, l := range page.Logs {
		logs = append(logs, LogResponse{
			ID:           l.ID,
			Timestamp:    l.Timestamp,
			UserEmail:    l.UserEmail,
			Success:      l.Success,
			ErrorMessage: optional(l.ErrorMessage),
			Location:     l.Location,
			IPAddress:    l.IPAddress,
			FileName:     optional(l.FileName),
			Code:         optional(l.Code),
			FileSize:     l.FileSize,
		})
	}

	st := page.Stats
	return &LogListResponse{
		Logs: logs,
		Pagination: PaginationResponse{
			Limit:   page.Limit,
			Offset:  page.Offset,
			Total:   page.Total,
			HasMore: page.HasMore,
		},
		Statistics: StatisticsResponse{
			TotalAttempts:       st.TotalAttempts,
			SuccessfulDownloads: st.SuccessfulDownloads,
			FailedAttempts:      st.FailedAttempts,
			UniqueUsers:         st.UniqueUsers,
			SuccessRate:         st.SuccessRate(),
			LastActivity:        st.LastActivity,
		},
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
