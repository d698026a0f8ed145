package router

import (
	"time"

	"fiscalpos/internal/config"
	"fiscalpos/internal/handler"
	"fiscalpos/internal/infra"
	"fiscalpos/internal/middleware"
	"fiscalpos/internal/repository"
	"fiscalpos/internal/service"
	"fiscalpos/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, dgiiCB *infra.CircuitBreaker) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	negocioRepo := repository.NewNegocioRepository(db)
	cuentaRepo := repository.NewCuentaRepository(db)
	periodoRepo := repository.NewPeriodoRepository(db)
	asientoRepo := repository.NewAsientoRepository(db)
	secuenciaRepo := repository.NewSecuenciaRepository(db)
	ventaRepo := repository.NewVentaRepository(db)
	compraRepo := repository.NewCompraRepository(db)
	facturaRepo := repository.NewFacturaRepository(db)
	movimientoStockRepo := repository.NewMovimientoStockRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	// Worker dispatcher — injected into services that enqueue async jobs
	dispatcher := worker.NewDispatcher(rdb)

	contabilidadSvc := service.NewContabilidadService(cuentaRepo, periodoRepo, asientoRepo, negocioRepo)
	secuenciaSvc := service.NewSecuenciaService(secuenciaRepo)
	ventaSvc := service.NewVentaService(ventaRepo, negocioRepo, movimientoStockRepo, auditRepo, contabilidadSvc, dispatcher)
	compraSvc := service.NewCompraService(compraRepo, negocioRepo, auditRepo, contabilidadSvc)
	facturacionSvc := service.NewFacturacionService(facturaRepo, ventaRepo, dispatcher)
	reporteSvc := service.NewReporteService(negocioRepo, ventaRepo, compraRepo)

	// ── Handlers ─────────────────────────────────────────────────────────────
	ventasH := handler.NewVentasHandler(ventaSvc)
	comprasH := handler.NewComprasHandler(compraSvc)
	contabilidadH := handler.NewContabilidadHandler(contabilidadSvc)
	facturacionH := handler.NewFacturacionHandler(facturacionSvc)
	reportesH := handler.NewReportesHandler(reporteSvc)
	secuenciasH := handler.NewSecuenciasHandler(secuenciaSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, dgiiCB))

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		// Roles: cajero, contador, administrador — declared per-endpoint
		v1.POST("/ventas", middleware.RequireRole("cajero", "contador", "administrador"), ventasH.CompletarVenta)
		v1.GET("/ventas", middleware.RequireRole("cajero", "contador", "administrador"), ventasH.ListarVentas)
		v1.GET("/ventas/:id", middleware.RequireRole("cajero", "contador", "administrador"), ventasH.ObtenerVenta)
		v1.DELETE("/ventas/:id", middleware.RequireRole("contador", "administrador"), ventasH.AnularVenta)
		v1.POST("/ventas/:id/emitir-ecf", middleware.RequireRole("contador", "administrador"), facturacionH.EmitirECF)

		compras := v1.Group("/compras", middleware.RequireRole("contador", "administrador"))
		{
			compras.POST("", comprasH.RegistrarCompra)
			compras.GET("/:id", comprasH.ObtenerCompra)
		}

		conta := v1.Group("/contabilidad", middleware.RequireRole("contador", "administrador"))
		{
			conta.POST("/asientos", contabilidadH.CrearAsiento)
			conta.GET("/asientos/:id", contabilidadH.ObtenerAsiento)
			conta.GET("/cuentas", contabilidadH.ListarCuentas)
			conta.POST("/periodos/:id/cerrar", contabilidadH.CerrarPeriodo)
		}

		fact := v1.Group("/facturacion", middleware.RequireRole("contador", "administrador"))
		{
			fact.GET("/:venta_id", facturacionH.ObtenerFactura)
			fact.POST("/:venta_id/reintentar", facturacionH.ReintentarContingencia)
			fact.GET("/:venta_id/pdf", facturacionH.DescargarPDF)
		}

		fiscal := v1.Group("/fiscal", middleware.RequireRole("contador", "administrador"))
		{
			fiscal.GET("/reportes/export", reportesH.Exportar)
			fiscal.GET("/reportes/preview", reportesH.Preview)
			fiscal.POST("/secuencias", middleware.RequireRole("administrador"), secuenciasH.CrearSecuencia)
			fiscal.GET("/secuencias", secuenciasH.ListarSecuencias)
		}
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
