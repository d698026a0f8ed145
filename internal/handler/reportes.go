package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"fiscalpos/internal/apierror"
	"fiscalpos/internal/fiscal"
	"fiscalpos/internal/middleware"
	"fiscalpos/internal/service"

	"github.com/gin-gonic/gin"
)

type ReportesHandler struct{ svc service.ReporteService }

func NewReportesHandler(svc service.ReporteService) *ReportesHandler {
	return &ReportesHandler{svc: svc}
}

// bindPeriodo reads and validates tipo / year / month query params.
func bindPeriodo(c *gin.Context) (tipo string, year, month int, ok bool) {
	tipo = c.Query("tipo")
	switch tipo {
	case fiscal.Reporte606, fiscal.Reporte607, fiscal.Reporte608:
	default:
		c.JSON(http.StatusBadRequest, apierror.New("tipo debe ser 606, 607 o 608"))
		return "", 0, 0, false
	}
	year, errY := strconv.Atoi(c.Query("year"))
	month, errM := strconv.Atoi(c.Query("month"))
	if errY != nil || errM != nil || year < 2000 || month < 1 || month > 12 {
		c.JSON(http.StatusBadRequest, apierror.New("year/month invalidos"))
		return "", 0, 0, false
	}
	return tipo, year, month, true
}

// Exportar godoc
// @Summary      Exportar un reporte fiscal (606/607/608)
// @Description  Genera el archivo de texto plano pipe-delimited del período en el formato de carga de la DGII.
// @Tags         reportes
// @Produce      text/plain
// @Security     BearerAuth
// @Param        tipo  query string true "606 | 607 | 608"
// @Param        year  query int    true "Año"
// @Param        month query int    true "Mes 1-12"
// @Success      200
// @Failure      400 {object} apierror.APIError
// @Router       /v1/fiscal/reportes/export [get]
func (h *ReportesHandler) Exportar(c *gin.Context) {
	tipo, year, month, ok := bindPeriodo(c)
	if !ok {
		return
	}
	contenido, filename, err := h.svc.Exportar(c.Request.Context(), middleware.NegocioID(c), tipo, year, month)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", contenido)
}

// Preview godoc
// @Summary      Previsualizar un reporte fiscal
// @Description  Retorna las filas del reporte como JSON sin generar el archivo.
// @Tags         reportes
// @Produce      json
// @Security     BearerAuth
// @Param        tipo  query string true "606 | 607 | 608"
// @Param        year  query int    true "Año"
// @Param        month query int    true "Mes 1-12"
// @Success      200 {object} dto.ReportePreviewResponse
// @Failure      400 {object} apierror.APIError
// @Router       /v1/fiscal/reportes/preview [get]
func (h *ReportesHandler) Preview(c *gin.Context) {
	tipo, year, month, ok := bindPeriodo(c)
	if !ok {
		return
	}
	resp, err := h.svc.Preview(c.Request.Context(), middleware.NegocioID(c), tipo, year, month)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
