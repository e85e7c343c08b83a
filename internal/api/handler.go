package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rollcall-dev/rollcall/internal/command"
	"github.com/rollcall-dev/rollcall/internal/service"
	"github.com/rollcall-dev/rollcall/pkg/logger"
	"go.uber.org/zap"
)

type Handler struct {
	identity   *service.IdentityService
	registry   *service.RegistryService
	attendance *service.AttendanceService

	dispatcher *command.Dispatcher

	healthChecker HealthChecker
	loginLimiter  *LoginRateLimiter

	logger *zap.Logger
}

func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{
		logger: logger,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.Validator = NewValidator()
	e.Use(middleware.RequestID())
	e.Use(ZapLoggerMiddleware(h.logger))
	e.Use(MetricsMiddleware())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.GET("/health", h.healthChecker.HealthCheck())
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.POST("/auth/register", h.Register)

	login := e.Group("")
	if h.loginLimiter != nil {
		login.Use(h.loginLimiter.Middleware())
	}
	login.POST("/auth/login", h.Login)

	// The chat gateway posts parsed-out command lines here on behalf of its
	// users; the gateway itself authenticates the transport.
	e.POST("/commands", h.DispatchCommand)

	secured := e.Group("", AuthMiddleware())

	secured.GET("/teams", h.ListTeams)
	secured.GET("/teams/:name/members", h.ListMembers)
	secured.GET("/teams/:name/attendance", h.Attendance)
}

func (h *Handler) Register(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	var req struct {
		PlatformID  string `json:"platform_id" validate:"required"`
		DisplayName string `json:"display_name" validate:"required"`
		Password    string `json:"password" validate:"required,min=8"`
	}

	if err := h.decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	l.Info("registering admin", zap.String("platform_id", req.PlatformID))

	if err := h.identity.Register(e.Request().Context(), req.PlatformID, req.DisplayName, req.Password); err != nil {
		l.Error("failed to register admin", zap.String("platform_id", req.PlatformID), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.NoContent(http.StatusCreated)
}

func (h *Handler) Login(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	var req struct {
		PlatformID string `json:"platform_id" validate:"required"`
		Password   string `json:"password" validate:"required"`
	}

	if err := h.decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	l.Info("login attempt", zap.String("platform_id", req.PlatformID))

	ok, err := h.identity.Authenticate(e.Request().Context(), req.PlatformID, req.Password)
	if err != nil {
		l.Warn("login failed", zap.String("platform_id", req.PlatformID), zap.Any("error", err))
		return h.transportError(e, err)
	}
	if !ok {
		return h.transportError(e, service.NewError(service.ErrorCodeInvalidCredentials, "invalid credentials"))
	}

	token, err := h.identity.IssueToken(e.Request().Context(), req.PlatformID)
	if err != nil {
		l.Error("failed to issue token", zap.String("platform_id", req.PlatformID), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, map[string]string{"token": token})
}

func (h *Handler) DispatchCommand(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	var req struct {
		CallerPlatformID string `json:"caller_platform_id" validate:"required"`
		Command          string `json:"command" validate:"required"`
	}

	if err := h.decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	cmd, parseErr := command.Parse(req.Command)
	if parseErr != nil {
		l.Warn("unparseable command", zap.String("command", req.Command), zap.Error(parseErr))
		return h.transportError(e, service.NewError(service.ErrorCodeInvalidBody, parseErr.Error()))
	}

	res, err := h.dispatcher.Dispatch(e.Request().Context(), req.CallerPlatformID, cmd)
	if err != nil {
		l.Error("command failed",
			zap.String("kind", string(cmd.Kind)),
			zap.String("caller", req.CallerPlatformID),
			zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, res)
}

func (h *Handler) ListTeams(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	caller := CallerSubject(e)

	l.Info("listing teams", zap.String("caller", caller))

	admin, err := h.identity.GetAdmin(e.Request().Context(), caller)
	if err != nil {
		l.Error("failed to resolve caller", zap.String("caller", caller), zap.Any("error", err))
		return h.transportError(e, err)
	}

	teams, err := h.registry.ListTeamsByAdmin(e.Request().Context(), admin.ID)
	if err != nil {
		l.Error("failed to list teams", zap.Int64("admin_id", admin.ID), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, teams)
}

func (h *Handler) ListMembers(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	teamName := e.Param("name")

	l.Info("listing members", zap.String("team_name", teamName))

	team, err := h.registry.GetTeamByName(e.Request().Context(), teamName)
	if err != nil {
		l.Error("failed to get team", zap.String("team_name", teamName), zap.Any("error", err))
		return h.transportError(e, err)
	}

	members, err := h.registry.ListMembers(e.Request().Context(), team.ID)
	if err != nil {
		l.Error("failed to list members", zap.String("team_name", teamName), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, members)
}

func (h *Handler) Attendance(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	teamName := e.Param("name")

	l.Info("building attendance report", zap.String("team_name", teamName))

	rows, err := h.attendance.Report(e.Request().Context(), teamName)
	if err != nil {
		l.Error("failed to build report", zap.String("team_name", teamName), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, rows)
}

func (h *Handler) decodeRequest(e echo.Context, req any) *service.Error {
	if err := e.Bind(req); err != nil {
		return service.NewError(service.ErrorCodeInvalidBody, "invalid request body")
	}

	if err := e.Validate(req); err != nil {
		return service.NewError(service.ErrorCodeInvalidBody, errors.Wrap(err, "request validation failed").Error())
	}
	return nil
}

func (h *Handler) transportError(e echo.Context, err *service.Error) error {
	response := struct {
		Error *service.Error `json:"error"`
	}{Error: err}

	switch err.Code {
	case service.ErrorCodeNotFound:
		return e.JSON(http.StatusNotFound, response)
	case service.ErrorCodeAdminExists, service.ErrorCodeTeamExists, service.ErrorCodeMemberExists, service.ErrorCodeSessionOpen:
		return e.JSON(http.StatusConflict, response)
	case service.ErrorCodeInvalidBody:
		return e.JSON(http.StatusBadRequest, response)
	case service.ErrorCodeInvalidCredentials:
		return e.JSON(http.StatusUnauthorized, response)
	default:
		return e.JSON(http.StatusInternalServerError, response)
	}
}

func (h *Handler) WithIdentityService(s *service.IdentityService) *Handler {
	h.identity = s
	return h
}

func (h *Handler) WithRegistryService(s *service.RegistryService) *Handler {
	h.registry = s
	return h
}

func (h *Handler) WithAttendanceService(s *service.AttendanceService) *Handler {
	h.attendance = s
	return h
}

func (h *Handler) WithDispatcher(d *command.Dispatcher) *Handler {
	h.dispatcher = d
	return h
}

func (h *Handler) WithHealthChecker(c HealthChecker) *Handler {
	h.healthChecker = c
	return h
}

func (h *Handler) WithLoginRateLimiter(l *LoginRateLimiter) *Handler {
	h.loginLimiter = l
	return h
}
