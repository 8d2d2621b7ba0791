package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/voxel-engine/internal/api"
	"github.com/annel0/voxel-engine/internal/app"
	"github.com/annel0/voxel-engine/internal/auth"
	"github.com/annel0/voxel-engine/internal/config"
	"github.com/annel0/voxel-engine/internal/logging"
	"github.com/annel0/voxel-engine/internal/observability"
	"github.com/annel0/voxel-engine/internal/render"
	"github.com/annel0/voxel-engine/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"gonum.org/v1/gonum/spatial/r3"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (по умолчанию $VOXEL_CONFIG)")
	issueToken := flag.String("issue-token", "", "выпустить токен редактора для указанного имени и выйти")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	issuer, err := auth.NewTokenIssuer(cfg.Server.GetSecret(), 24*time.Hour)
	if err != nil {
		log.Fatalf("❌ Ошибка инициализации JWT: %v", err)
	}
	if *issueToken != "" {
		if cfg.Server.GetSecret() == "" {
			log.Fatalf("❌ Для выпуска токена задайте server.secret или VOXEL_JWT_SECRET")
		}
		token, err := issuer.Issue(*issueToken, true)
		if err != nil {
			log.Fatalf("❌ Ошибка выпуска токена: %v", err)
		}
		fmt.Println(token)
		return
	}

	if err := setupLogging(cfg.Logging); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()

	logging.Info("🧱 Запуск voxeld: область %dx%d, плотная=%v", cfg.Grid.Size, cfg.Grid.Size, cfg.Grid.Dense)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdown, err := observability.InitTelemetry(ctx, observability.Options{
			ServiceName: cfg.Telemetry.Service,
			Endpoint:    cfg.Telemetry.Endpoint,
			Insecure:    true,
		})
		if err != nil {
			logging.Warn("Трассировка отключена: %v", err)
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logging.Warn("Остановка трассировки: %v", err)
				}
			}()
		}
	}

	store, err := storage.NewColumnStorage(cfg.Storage.GetPath())
	if err != nil {
		logging.Error("❌ Ошибка открытия хранилища: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	engine, err := app.NewEngine(cfg, store, nil, reg)
	if err != nil {
		logging.Error("❌ Ошибка создания движка: %v", err)
		os.Exit(1)
	}
	if err := engine.LoadOrGenerate(); err != nil {
		logging.Error("❌ Ошибка загрузки мира: %v", err)
		os.Exit(1)
	}

	restPort := fmt.Sprintf(":%d", cfg.Server.GetRESTPort())
	server := api.NewRestServer(api.Config{
		Port:       restPort,
		World:      engine,
		Issuer:     issuer,
		Registerer: reg,
		Gatherer:   reg,
	})
	if err := server.Start(); err != nil {
		logging.Error("❌ Ошибка запуска REST API: %v", err)
		os.Exit(1)
	}
	if cfg.Server.GetSecret() == "" {
		logging.Warn("🔐 Секрет JWT не задан: изменения через API примут только токены этого процесса")
	}

	// Загрузки пакетов выполняет цикл кадров ниже, поэтому первая
	// перестройка не может идти на этом же потоке.
	rebuildDone := make(chan struct{})
	go func() {
		defer close(rebuildDone)
		n, err := engine.RebuildMeshes(ctx)
		if err != nil {
			logging.Error("❌ Ошибка построения пакетов: %v", err)
			return
		}
		logging.Info("✅ Построено %d пакетов граней", n)
	}()

	runFrames(ctx.Done(), engine, cfg)

	logging.Info("📡 Получен сигнал завершения, остановка...")

	// Обработчики и перестройка могут ждать места в очереди контекста,
	// поэтому кадры идут, пока они не завершатся.
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		if err := server.Stop(context.Background()); err != nil {
			logging.Error("❌ Ошибка остановки REST API: %v", err)
		}
		<-rebuildDone
	}()
	runFrames(stopped, engine, cfg)
	if n, err := engine.Persist(); err != nil {
		logging.Error("❌ Ошибка сохранения мира: %v", err)
	} else {
		logging.Info("💾 Сохранено %d колонок", n)
	}
	engine.Close()

	logging.Debug("Закрытие логгеров: %v", logging.GetLoggerManager().Components())
	if err := logging.GetLoggerManager().CloseAll(); err != nil {
		logging.Warn("Закрытие логгеров: %v", err)
	}
	logging.Info("👋 voxeld остановлен")
}

func setupLogging(lc config.LoggingConfig) error {
	console, err := logging.ParseLevel(lc.ConsoleLevel)
	if err != nil {
		return err
	}
	file, err := logging.ParseLevel(lc.FileLevel)
	if err != nil {
		return err
	}
	logging.Configure(logging.Options{Dir: lc.Dir, ConsoleLevel: console, FileLevel: file})
	return logging.InitDefaultLogger("voxeld")
}

// runFrames - поток контекста: выполняет загрузки и рисует пакеты с
// камерой, облетающей область, пока не закрыт done
func runFrames(done <-chan struct{}, engine *app.Engine, cfg *config.Config) {
	ticker := time.NewTicker(cfg.Render.FrameInterval)
	defer ticker.Stop()

	center := float64(cfg.Grid.Size) / 2
	radius := float64(cfg.Grid.Size)
	height := float64(cfg.Generator.BaseHeight) + cfg.Generator.Amplitude + float64(cfg.Grid.Size)/2

	start := time.Now()
	lastReport := start
	for {
		select {
		case <-done:
			return
		case now := <-ticker.C:
			angle := now.Sub(start).Seconds() * 0.2
			cam := render.PerspectiveCamera{
				Eye:    r3.Vec{X: center + radius*math.Cos(angle), Y: center + radius*math.Sin(angle), Z: height},
				Target: r3.Vec{X: center, Y: center, Z: float64(cfg.Generator.BaseHeight)},
				Up:     r3.Vec{Z: 1},
				FovY:   math.Pi / 3,
				Aspect: 16.0 / 9.0,
				Near:   0.1,
				Far:    4 * radius,
			}
			stats := engine.Frame(cam)
			if now.Sub(lastReport) >= 10*time.Second {
				logging.Debug("Кадр: задач %d, пакетов %d (готово %d), нарисовано направлений %d",
					stats.Tasks, stats.Batches, stats.Ready, stats.Drawn)
				lastReport = now
			}
		}
	}
}
