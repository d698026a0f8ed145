package handler

import (
	"net/http"

	"fiscalpos/internal/dto"
	"fiscalpos/internal/middleware"
	"fiscalpos/internal/service"

	"github.com/gin-gonic/gin"
)

type ContabilidadHandler struct{ svc service.ContabilidadService }

func NewContabilidadHandler(svc service.ContabilidadService) *ContabilidadHandler {
	return &ContabilidadHandler{svc: svc}
}

// CrearAsiento godoc
// @Summary      Contabilizar un asiento manual
// @Description  Valida la partida doble (tolerancia ±0.01) y contabiliza el asiento con actualización de saldos en una transacción.
// @Tags         contabilidad
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CrearAsientoRequest true "Asiento con sus líneas"
// @Success      201  {object} dto.AsientoResponse
// @Failure      422  {object} apierror.APIError
// @Router       /v1/contabilidad/asientos [post]
func (h *ContabilidadHandler) CrearAsiento(c *gin.Context) {
	var req dto.CrearAsientoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CrearAsientoManual(c.Request.Context(), middleware.NegocioID(c), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ObtenerAsiento godoc
// @Summary      Consultar un asiento
// @Tags         contabilidad
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "UUID del asiento"
// @Success      200 {object} dto.AsientoResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/contabilidad/asientos/{id} [get]
func (h *ContabilidadHandler) ObtenerAsiento(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ObtenerAsiento(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListarCuentas godoc
// @Summary      Listar el catálogo de cuentas con saldos
// @Tags         contabilidad
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} dto.CuentaSaldoResponse
// @Router       /v1/contabilidad/cuentas [get]
func (h *ContabilidadHandler) ListarCuentas(c *gin.Context) {
	cuentas, err := h.svc.ListCuentas(c.Request.Context(), middleware.NegocioID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	out := make([]dto.CuentaSaldoResponse, 0, len(cuentas))
	for _, cta := range cuentas {
		out = append(out, dto.CuentaSaldoResponse{
			Codigo:      cta.Codigo,
			Nombre:      cta.Nombre,
			Tipo:        cta.Tipo,
			Naturaleza:  cta.Naturaleza,
			SaldoActual: cta.SaldoActual,
		})
	}
	c.JSON(http.StatusOK, out)
}

// CerrarPeriodo godoc
// @Summary      Cerrar un período contable
// @Description  Cierre irreversible: rechaza borradores pendientes, contabiliza el asiento de cierre y sella el período.
// @Tags         contabilidad
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "UUID del período"
// @Success      200 {object} dto.CerrarPeriodoResponse
// @Failure      409 {object} apierror.APIError
// @Router       /v1/contabilidad/periodos/{id}/cerrar [post]
func (h *ContabilidadHandler) CerrarPeriodo(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	resultado, err := h.svc.CerrarPeriodo(c.Request.Context(), middleware.NegocioID(c), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	resp := dto.CerrarPeriodoResponse{
		PeriodoID:     id.String(),
		Estado:        "CERRADO",
		ResultadoNeto: resultado.ResultadoNeto,
	}
	if resultado.AsientoCierre != nil {
		cierreID := resultado.AsientoCierre.ID.String()
		resp.AsientoCierreID = &cierreID
		resp.AsientoCierreNum = resultado.AsientoCierre.Numero
	}
	c.JSON(http.StatusOK, resp)
}
