// Package server 提供文档上传翻译的 HTTP 接口
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-doc-translator/internal/document"
	"github.com/nerdneilsfield/go-doc-translator/internal/translator"
	"github.com/nerdneilsfield/go-doc-translator/pkg/language"
	"github.com/nerdneilsfield/go-doc-translator/pkg/providers/stats"
	"github.com/nerdneilsfield/go-doc-translator/pkg/translation"
)

// multipartOverhead 表单字段与边界的额外字节
const multipartOverhead = 1 << 20

// Server HTTP 服务
type Server struct {
	coordinator *translator.TranslationCoordinator
	logger      *zap.Logger
	mux         *http.ServeMux
}

// New 创建 HTTP 服务
func New(coordinator *translator.TranslationCoordinator, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		coordinator: coordinator,
		logger:      logger.Named("server"),
		mux:         http.NewServeMux(),
	}

	s.mux.HandleFunc("POST /api/translate", s.handleTranslate)
	s.mux.HandleFunc("GET /api/languages", s.handleLanguages)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	return s
}

// Handler 返回根处理器
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

// ListenAndServe 启动服务，ctx 取消后优雅关闭
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// errorResponse 错误响应
type errorResponse struct {
	Error string `json:"error"`
	Cause string `json:"cause,omitempty"`
}

// languagesResponse 语言列表响应
type languagesResponse struct {
	Languages      []language.Language `json:"languages"`
	DefaultSource  string              `json:"default_source"`
	DefaultTarget  string              `json:"default_target"`
	FileExtensions []string            `json:"file_extensions"`
	MaxFileSize    int64               `json:"max_file_size"`
}

// healthResponse 健康检查响应
type healthResponse struct {
	Ready   bool            `json:"ready"`
	Backend string          `json:"backend,omitempty"`
	Session string          `json:"session,omitempty"`
	Stats   *stats.Snapshot `json:"stats,omitempty"`
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	cfg := s.coordinator.Config()
	r.Body = http.MaxBytesReader(w, r.Body, s.coordinator.Registry().MaxFileSize()+multipartOverhead)

	if err := r.ParseMultipartForm(multipartOverhead); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, document.ErrFileTooLarge)
			return
		}
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid multipart form: %w", err))
		return
	}

	req := translator.Request{
		Text:       r.FormValue("text"),
		SourceLang: r.FormValue("source"),
		TargetLang: r.FormValue("target"),
		MaxPages:   cfg.MaxPages,
	}

	if v := r.FormValue("max_pages"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid max_pages %q", v))
			return
		}
		req.MaxPages = n
	}

	if r.MultipartForm == nil {
		// 普通表单只能提交 text 字段
		s.translate(w, r, req)
		return
	}

	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("failed to read upload: %w", err))
			return
		}
		req.FileName = header.Filename
		req.Data = data
	case errors.Is(err, http.ErrMissingFile):
		// 允许只提交 text 字段
	default:
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	s.translate(w, r, req)
}

func (s *Server) translate(w http.ResponseWriter, r *http.Request, req translator.Request) {
	result, err := s.coordinator.Translate(r.Context(), req, translator.Hooks{})
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	table := s.coordinator.Languages()
	cfg := s.coordinator.Config()

	writeJSON(w, http.StatusOK, languagesResponse{
		Languages:      table.Languages(),
		DefaultSource:  cfg.SourceLang,
		DefaultTarget:  cfg.TargetLang,
		FileExtensions: s.coordinator.Registry().Extensions(),
		MaxFileSize:    s.coordinator.Registry().MaxFileSize(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Ready: s.coordinator.Ready()}
	if sess := s.coordinator.Session(); sess.Ready() {
		resp.Backend = sess.Backend().GetName()
		resp.Session = sess.ID()
		if reporter, ok := sess.Backend().(stats.Reporter); ok {
			snap := reporter.Stats()
			resp.Stats = &snap
		}
	}

	status := http.StatusOK
	if !resp.Ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// statusFor 将错误映射为 HTTP 状态码
func statusFor(err error) int {
	switch {
	case errors.Is(err, translation.ErrNotReady):
		return http.StatusServiceUnavailable
	case errors.Is(err, document.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, translator.ErrEmptyRequest):
		return http.StatusBadRequest
	case errors.Is(err, document.ErrUnsupportedFormat),
		errors.Is(err, document.ErrNoText),
		errors.Is(err, document.ErrPDFExtractionFailed),
		errors.Is(err, document.ErrDOCXExtractionFailed),
		errors.Is(err, document.ErrHTMLExtractionFailed),
		errors.Is(err, document.ErrMarkdownExtractionFailed),
		errors.Is(err, document.ErrTextExtractionFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	case errors.Is(err, translation.ErrTranslationFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// rootCause 返回错误链最内层的错误
func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	} else {
		s.logger.Debug("request rejected", zap.Int("status", status), zap.Error(err))
	}

	resp := errorResponse{Error: err.Error()}
	if cause := rootCause(err); cause != err {
		resp.Cause = cause.Error()
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusRecorder 记录响应状态码
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}
