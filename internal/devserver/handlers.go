package devserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// TokenResponse is the body of a successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// UploadResponse is the body of a document upload.
type UploadResponse struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	TaskID     string `json:"task_id"`
	Message    string `json:"message"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleLogin(c echo.Context) error {
	email, password := c.FormValue("username"), c.FormValue("password")
	if grant := c.FormValue("grant_type"); grant != "" && grant != "password" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
	}
	user, ok := s.state.login(email, password)
	if !ok {
		return c.JSON(http.StatusUnauthorized, detail("Incorrect email or password"))
	}
	token := mintToken(user, TokenTTL)
	s.state.issue(token, user.Email)
	s.logger.Debug(c.Request().Context(), "issued token", zap.String("email", user.Email))
	return c.JSON(http.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(TokenTTL.Seconds()),
	})
}

func (s *Server) handleTaskStatus(c echo.Context) error {
	snap, f := s.state.nextTask(c.Param("id"))
	if f != faultNone {
		return s.inject(c, f)
	}
	return c.JSON(http.StatusOK, snap)
}

func (s *Server) handleActiveTasks(c echo.Context) error {
	return c.JSON(http.StatusOK, s.state.activeTasks())
}

func (s *Server) handleCancelTask(c echo.Context) error {
	id := c.Param("id")
	s.state.revoke(id)
	s.logger.Info(c.Request().Context(), "task revoked",
		zap.String("task_id", id), zap.String("terminate", c.QueryParam("terminate")))
	return c.JSON(http.StatusOK, map[string]string{"task_id": id, "status": "REVOKED"})
}

func (s *Server) handleFileStatus(c echo.Context) error {
	files, ok, f := s.state.nextFiles(c.Param("id"))
	if f != faultNone {
		return s.inject(c, f)
	}
	if !ok {
		return c.JSON(http.StatusNotFound, detail("Document not found"))
	}
	return c.JSON(http.StatusOK, files)
}

func (s *Server) handleUpload(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.JSON(http.StatusUnprocessableEntity, detail("multipart form required"))
	}
	if len(form.Value["title"]) == 0 || form.Value["title"][0] == "" {
		return c.JSON(http.StatusUnprocessableEntity, detail("title is required"))
	}
	var names []string
	for _, fh := range form.File["files"] {
		names = append(names, fh.Filename)
	}
	if len(names) == 0 {
		return c.JSON(http.StatusUnprocessableEntity, detail("at least one file is required"))
	}

	up := s.state.upload(names)
	s.logger.Info(c.Request().Context(), "document uploaded",
		zap.String("document_id", up.DocumentID),
		zap.String("task_id", up.TaskID),
		zap.Strings("files", names),
	)
	return c.JSON(http.StatusOK, UploadResponse{
		ID:         up.DocumentID,
		DocumentID: up.DocumentID,
		TaskID:     up.TaskID,
		Message:    "Document uploaded, processing started",
	})
}

// inject answers with a scripted transport fault.
func (s *Server) inject(c echo.Context, f fault) error {
	ctx := c.Request().Context()
	if f == faultFail {
		s.metrics.FaultsTotal.WithLabelValues("fail").Inc()
		s.logger.Debug(ctx, "injecting 503", zap.String("uri", c.Request().RequestURI))
		return c.JSON(http.StatusServiceUnavailable, detail("Service Unavailable"))
	}

	s.metrics.FaultsTotal.WithLabelValues("drop").Inc()
	s.logger.Debug(ctx, "dropping connection", zap.String("uri", c.Request().RequestURI))
	conn, _, err := c.Response().Hijack()
	if err != nil {
		return err
	}
	return conn.Close()
}
