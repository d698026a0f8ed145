package middleware

import (
	"errors"
	"net/http"
	"time"

	"fiscalpos/internal/apierror"
	"fiscalpos/internal/fiscal/firma"
	"fiscalpos/internal/infra"
	"fiscalpos/internal/model"
	"fiscalpos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ErrorHandler is a Gin middleware that translates domain errors attached via
// c.Error into coded API responses. Stack traces are NEVER exposed to clients.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status, body := mapError(err)

		if status >= http.StatusInternalServerError {
			// Log the internal error with full context (for debugging)
			log.Error().
				Str("request_id", c.GetString(RequestIDKey)).
				Str("path", c.FullPath()).
				Str("method", c.Request.Method).
				Err(err).
				Msg("unhandled error")
		}

		c.AbortWithStatusJSON(status, body)
	}
}

// mapError resolves a domain error to its HTTP status and coded envelope.
// Anything unrecognized collapses to a generic 500 with no internal detail.
func mapError(err error) (int, *apierror.APIError) {
	switch {
	case errors.Is(err, service.ErrSecuenciaAgotada):
		return http.StatusConflict, apierror.NewCoded(apierror.CodeSecuenciaAgotada, err.Error())
	case errors.Is(err, service.ErrSecuenciaVencida):
		return http.StatusConflict, apierror.NewCoded(apierror.CodeSecuenciaVencida, err.Error())
	case errors.Is(err, service.ErrSecuenciaNoDisponible):
		return http.StatusConflict, apierror.NewCoded(apierror.CodeSecuenciaAgotada, err.Error())
	case errors.Is(err, service.ErrPeriodoCerrado),
		errors.Is(err, service.ErrPeriodoConBorradores):
		return http.StatusConflict, apierror.NewCoded(apierror.CodePeriodoCerrado, err.Error())
	case errors.Is(err, service.ErrAsientoDesbalanceado):
		return http.StatusUnprocessableEntity, apierror.NewCoded(apierror.CodeAsientoDesbalance, err.Error())
	case errors.Is(err, service.ErrAsientoSinLineas),
		errors.Is(err, service.ErrLineaInvalida),
		errors.Is(err, service.ErrCuentaNoEncontrada):
		return http.StatusUnprocessableEntity, apierror.New(err.Error())
	case errors.Is(err, service.ErrVentaYaAnulada),
		errors.Is(err, service.ErrVentaNoCompletada),
		errors.Is(err, service.ErrReintentoNoPermitido):
		return http.StatusConflict, apierror.New(err.Error())
	case errors.Is(err, model.ErrTransicionInvalida):
		return http.StatusConflict, apierror.NewCoded(apierror.CodeTransicionInvalida, err.Error())
	case errors.Is(err, firma.ErrFirmaRechazada):
		return http.StatusUnprocessableEntity, apierror.NewCoded(apierror.CodeFirmaRechazada, err.Error())
	case errors.Is(err, infra.ErrDGIIRechazo):
		return http.StatusBadGateway, apierror.NewCoded(apierror.CodeDGIIRechazado, err.Error())
	case errors.Is(err, service.ErrVentaNoEncontrada),
		errors.Is(err, service.ErrFacturaNoEncontrada),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, apierror.New("Recurso no encontrado")
	default:
		return http.StatusInternalServerError, apierror.New("Error interno del servidor")
	}
}

// Recovery handles panics and converts them into 500 responses.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Str("request_id", c.GetString(RequestIDKey)).
					Interface("panic", r).
					Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, apierror.New("Error interno del servidor"))
			}
		}()
		c.Next()
	}
}

// Logger logs each request with method, path, status, latency, and request_id.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("request_id", c.GetString(RequestIDKey)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}
