package api

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/annel0/voxel-engine/internal/app"
	"github.com/annel0/voxel-engine/internal/auth"
	"github.com/annel0/voxel-engine/internal/logging"
	"github.com/annel0/voxel-engine/internal/middleware"
	"github.com/annel0/voxel-engine/internal/rle"
	"github.com/annel0/voxel-engine/internal/world/block"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// World - то, что REST API читает и меняет в движке
type World interface {
	Bounds() (minZ, maxZ int32, ok bool)
	ColumnRuns(x, y int) ([]app.RunView, bool)
	Cell(x, y int, z int32) (block.BlockID, bool)
	MeshStats() app.MeshStats
	SetRange(x, y int, zMin, zMax int32, id block.BlockID) error
	RebuildMeshes(ctx context.Context) (int, error)
	Persist() (int, error)
}

// RestServer представляет REST API сервер
type RestServer struct {
	router     *gin.Engine
	world      World
	issuer     *auth.TokenIssuer
	port       string
	metrics    *ServerMetrics
	httpServer *http.Server
	logger     *logging.Logger
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Port   string // порт для запуска сервера, например ":8088"
	World  World
	Issuer *auth.TokenIssuer
	// Registerer и Gatherer - реестр метрик HTTP и источник для /metrics
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) *RestServer {
	if config.Port == "" {
		config.Port = ":8088"
	}
	if config.Gatherer == nil {
		config.Gatherer = prometheus.DefaultGatherer
	}

	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	logger := logging.GetAPILogger()
	router.Use(otelgin.Middleware("voxel_api"))
	router.Use(middleware.NewRequestLogger(logger).Handler())

	promMw := middleware.NewPrometheusMiddleware("voxel_api", config.Registerer)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router, config.Gatherer)

	server := &RestServer{
		router:  router,
		world:   config.World,
		issuer:  config.Issuer,
		port:    config.Port,
		metrics: NewServerMetrics(),
		logger:  logger,
	}
	server.setupRoutes()
	return server
}

// Handler возвращает обработчик HTTP (для тестов и встраивания)
func (rs *RestServer) Handler() http.Handler { return rs.router }

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	rs.router.GET("/health", rs.handleHealth)

	api := rs.router.Group("/api")
	{
		api.GET("/server", rs.handleServerInfo)
		api.GET("/blocks", rs.handleBlocks)
		api.GET("/grid/bounds", rs.handleBounds)
		api.GET("/columns/:x/:y", rs.handleColumn)
		api.GET("/columns/:x/:y/:z", rs.handleCell)
		api.GET("/mesh/stats", rs.handleMeshStats)
	}

	// Изменяющие эндпоинты (требуют JWT с правом editor)
	editor := api.Group("/")
	editor.Use(rs.jwtMiddleware())
	{
		editor.PUT("/columns/:x/:y/range", rs.handleSetRange)
		editor.POST("/mesh/rebuild", rs.handleRebuild)
		editor.POST("/storage/persist", rs.handlePersist)
	}
}

// Start запускает HTTP сервер в отдельной горутине
func (rs *RestServer) Start() error {
	rs.httpServer = &http.Server{
		Addr:              rs.port,
		Handler:           rs.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := rs.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rs.logger.Error("Ошибка REST API сервера: %v", err)
		}
	}()

	rs.logger.Info("REST API сервер запущен на http://localhost%s", rs.port)
	return nil
}

// Stop останавливает HTTP сервер
func (rs *RestServer) Stop(ctx context.Context) error {
	if rs.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return rs.httpServer.Shutdown(ctx)
}

// jwtMiddleware проверяет JWT токен в заголовке Authorization
func (rs *RestServer) jwtMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rs.issuer == nil {
			c.AbortWithStatusJSON(http.StatusForbidden, GenericResponse{
				Success: false,
				Message: "Изменения через API отключены",
			})
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, GenericResponse{
				Success: false,
				Message: "Отсутствует токен авторизации",
			})
			return
		}

		// Проверяем формат "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, GenericResponse{
				Success: false,
				Message: "Неверный формат токена",
			})
			return
		}

		claims, err := rs.issuer.Validate(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, GenericResponse{
				Success: false,
				Message: "Недействительный токен",
			})
			return
		}
		if !claims.Editor {
			c.AbortWithStatusJSON(http.StatusForbidden, GenericResponse{
				Success: false,
				Message: "Недостаточно прав доступа",
			})
			return
		}

		c.Set("subject", claims.Subject)
		c.Next()
	}
}

func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": rs.metrics.GetUptime(),
	})
}

func (rs *RestServer) handleServerInfo(c *gin.Context) {
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Информация о сервере", Data: rs.metrics.Snapshot()})
}

func (rs *RestServer) handleBlocks(c *gin.Context) {
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Блоки", Data: block.Names()})
}

func (rs *RestServer) handleBounds(c *gin.Context) {
	minZ, maxZ, ok := rs.world.Bounds()
	data := gin.H{"empty": !ok}
	if ok {
		data["min_z"] = minZ
		data["max_z"] = maxZ
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Границы мира", Data: data})
}

// parseXY читает координаты колонки из пути
func parseXY(c *gin.Context) (x, y int, ok bool) {
	x, errX := strconv.Atoi(c.Param("x"))
	y, errY := strconv.Atoi(c.Param("y"))
	if errX != nil || errY != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: "Координаты колонки должны быть целыми",
		})
		return 0, 0, false
	}
	return x, y, true
}

func parseZ(s string) (int32, error) {
	z, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return int32(z), nil
}

func (rs *RestServer) handleColumn(c *gin.Context) {
	x, y, ok := parseXY(c)
	if !ok {
		return
	}
	runs, exists := rs.world.ColumnRuns(x, y)
	if !exists {
		c.JSON(http.StatusNotFound, GenericResponse{Success: false, Message: "Колонка не найдена"})
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Серии колонки",
		Data:    gin.H{"x": x, "y": y, "runs": runs},
	})
}

func (rs *RestServer) handleCell(c *gin.Context) {
	x, y, ok := parseXY(c)
	if !ok {
		return
	}
	z, err := parseZ(c.Param("z"))
	if err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: "Неверная координата z"})
		return
	}

	id, present := rs.world.Cell(x, y, z)
	data := gin.H{"x": x, "y": y, "z": z, "present": present, "block": block.AirBlockID.Name()}
	if present {
		data["block"] = id.Name()
		data["id"] = id
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Ячейка", Data: data})
}

func (rs *RestServer) handleMeshStats(c *gin.Context) {
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Пакеты граней", Data: rs.world.MeshStats()})
}

// MaxRangeSpan - наибольшее число слоёв, записываемых одним запросом.
// Боковые грани строятся по одной на слой, поэтому высота отрезка
// ограничивает память следующей перестройки.
const MaxRangeSpan int64 = 1 << 12

func fitsInt32(z int64) bool {
	return z >= math.MinInt32 && z <= math.MaxInt32
}

// SetRangeRequest - запись блока в отрезок колонки
type SetRangeRequest struct {
	ZMin  int64  `json:"z_min"`
	ZMax  int64  `json:"z_max"`
	Block string `json:"block" binding:"required"`
}

func (rs *RestServer) handleSetRange(c *gin.Context) {
	x, y, ok := parseXY(c)
	if !ok {
		return
	}
	var req SetRangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: "Неверный формат запроса: " + err.Error(),
		})
		return
	}
	if !fitsInt32(req.ZMin) || !fitsInt32(req.ZMax) {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: "z вне диапазона int32"})
		return
	}
	if req.ZMax-req.ZMin >= MaxRangeSpan {
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: fmt.Sprintf("диапазон длиннее %d слоёв", MaxRangeSpan),
		})
		return
	}
	id, err := block.ParseName(req.Block)
	if err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: err.Error()})
		return
	}

	err = rs.world.SetRange(x, y, int32(req.ZMin), int32(req.ZMax), id)
	switch {
	case errors.Is(err, rle.ErrInvalidRange), errors.Is(err, rle.ErrOutOfBounds), errors.Is(err, app.ErrUnknownBlock):
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: err.Error()})
		return
	case errors.Is(err, app.ErrClosed):
		c.JSON(http.StatusServiceUnavailable, GenericResponse{Success: false, Message: err.Error()})
		return
	case err != nil:
		rs.logger.Error("Запись в колонку (%d,%d): %v", x, y, err)
		c.JSON(http.StatusInternalServerError, GenericResponse{Success: false, Message: "Внутренняя ошибка сервера"})
		return
	}

	rs.logger.Info("%s записал %s в (%d,%d) z=%d..%d", c.GetString("subject"), id, x, y, req.ZMin, req.ZMax)
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Диапазон записан"})
}

func (rs *RestServer) handleRebuild(c *gin.Context) {
	n, err := rs.world.RebuildMeshes(c.Request.Context())
	if err != nil {
		rs.logger.Error("Перестройка пакетов: %v", err)
		c.JSON(http.StatusInternalServerError, GenericResponse{Success: false, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Пакеты перестроены", Data: gin.H{"batches": n}})
}

func (rs *RestServer) handlePersist(c *gin.Context) {
	n, err := rs.world.Persist()
	if err != nil {
		rs.logger.Error("Сохранение мира: %v", err)
		c.JSON(http.StatusInternalServerError, GenericResponse{Success: false, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Мир сохранён", Data: gin.H{"columns": n}})
}
