package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/godilite/customerviz/internal/api"
	"github.com/godilite/customerviz/internal/config"
	"github.com/godilite/customerviz/internal/dataset"
	handler "github.com/godilite/customerviz/internal/grpc"
	"github.com/godilite/customerviz/internal/repository"
	"github.com/godilite/customerviz/internal/service"
	dbbuilder "github.com/godilite/customerviz/pkg/database"
	grpcsrv "github.com/godilite/customerviz/pkg/grpc/server"
	"github.com/godilite/customerviz/pkg/render"
	"github.com/godilite/customerviz/web"
)

type App struct {
	logger          *zap.Logger
	grpcServer      *grpcsrv.Server
	httpServer      *http.Server
	httpListener    net.Listener
	shutdownTimeout time.Duration
}

func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	table, err := LoadDataset(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("dataset init failed: %w", err)
	}

	schema, err := dataset.NewSchema(table, cfg.FilterColumn, cfg.ExcludedColumns)
	if err != nil {
		return nil, fmt.Errorf("schema init failed: %w", err)
	}

	plotService := service.NewPlotService(table, schema, logger)
	renderer := render.New(render.WithLogger(logger))

	page, err := web.PageTemplate()
	if err != nil {
		return nil, fmt.Errorf("failed to parse page template: %w", err)
	}

	grpcHandlers := handler.NewGRPCHandlers(plotService, renderer, logger, 0)

	grpcServer, err := grpcsrv.New(
		grpcsrv.WithPort(cfg.GRPCPort),
		grpcsrv.WithLogger(logger),
		grpcsrv.WithReflection(cfg.GRPCReflectionEnabled),
		grpcsrv.WithLogging(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC server: %w", err)
	}

	grpcServer.RegisterServiceWithHealth(handler.ServiceName, func(s *grpc.Server) {
		handler.RegisterPlotServiceServer(s, grpcHandlers)
	})

	router := api.NewRouter(api.NewPlotHandler(plotService, renderer, page, logger), logger)

	lis, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(cfg.HTTPPort)))
	if err != nil {
		_ = grpcServer.Shutdown(ctx)
		return nil, fmt.Errorf("failed to listen on HTTP port %d: %w", cfg.HTTPPort, err)
	}

	return &App{
		logger:     logger,
		grpcServer: grpcServer,
		httpServer: &http.Server{
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		httpListener:    lis,
		shutdownTimeout: cfg.ShutdownTimeout,
	}, nil
}

// LoadDataset reads the customer table from the configured source. SQLite
// sources are opened read-only and closed once the table is in memory.
func LoadDataset(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*dataset.Table, error) {
	switch cfg.DatasetDriver {
	case config.DriverCSV:
		table, err := dataset.LoadCSV(cfg.DatasetPath)
		if err != nil {
			return nil, err
		}
		logger.Info("Dataset loaded",
			zap.String("driver", cfg.DatasetDriver),
			zap.String("path", cfg.DatasetPath),
			zap.Int("rows", table.Rows()))
		return table, nil

	case config.DriverSQLite, config.DriverSQLitePure:
		db, err := dbbuilder.New(ctx,
			dbbuilder.WithDriver(cfg.DatasetDriver),
			dbbuilder.WithDataSource(cfg.DatasetPath),
			dbbuilder.WithReadOnly(true),
		)
		if err != nil {
			return nil, fmt.Errorf("database init failed: %w", err)
		}
		defer db.Close()

		table, err := repository.NewCustomerRepository(db).LoadTable(ctx, cfg.DatasetTable)
		if err != nil {
			return nil, err
		}
		logger.Info("Dataset loaded",
			zap.String("driver", cfg.DatasetDriver),
			zap.String("path", cfg.DatasetPath),
			zap.String("table", cfg.DatasetTable),
			zap.Int("rows", table.Rows()))
		return table, nil

	default:
		return nil, fmt.Errorf("unknown dataset driver %q", cfg.DatasetDriver)
	}
}

// HTTPAddr returns the address the form host listens on.
func (a *App) HTTPAddr() net.Addr { return a.httpListener.Addr() }

// GRPCAddr returns the address the gRPC server listens on.
func (a *App) GRPCAddr() net.Addr { return a.grpcServer.Addr() }

// Run serves HTTP and gRPC until ctx is canceled, SIGINT or SIGTERM arrives,
// or either server fails. Both servers are then shut down within the
// configured timeout.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.logger.Info("application starting",
		zap.String("http_addr", a.HTTPAddr().String()),
		zap.String("grpc_addr", a.GRPCAddr().String()))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.grpcServer.Serve()
	})

	g.Go(func() error {
		a.logger.Info("HTTP server listening", zap.String("addr", a.HTTPAddr().String()))
		if err := a.httpServer.Serve(a.httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("application shutting down")
		return a.shutdown()
	})

	err := g.Wait()
	if err == nil {
		a.logger.Info("graceful shutdown completed successfully")
	}
	_ = a.logger.Sync()
	return err
}

func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error("HTTP shutdown error", zap.Error(err))
		errs = append(errs, err)
	}
	if err := a.grpcServer.Shutdown(ctx); err != nil {
		a.logger.Error("gRPC shutdown error", zap.Error(err))
		errs = append(errs, err)
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		a.logger.Warn("shutdown completed but deadline exceeded")
	}
	return errors.Join(errs...)
}
