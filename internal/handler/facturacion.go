package handler

import (
	"net/http"

	"fiscalpos/internal/service"

	"github.com/gin-gonic/gin"
)

type FacturacionHandler struct{ svc service.FacturacionService }

func NewFacturacionHandler(svc service.FacturacionService) *FacturacionHandler {
	return &FacturacionHandler{svc: svc}
}

// EmitirECF godoc
// @Summary      Forzar la emisión del e-CF de una venta
// @Description  Encola la emisión del comprobante electrónico. Idempotente: una venta ya aprobada o rechazada no se re-emite.
// @Tags         facturacion
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "UUID de la venta"
// @Success      202
// @Failure      409 {object} apierror.APIError
// @Router       /v1/ventas/{id}/emitir-ecf [post]
func (h *FacturacionHandler) EmitirECF(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.EmitirECF(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusAccepted)
}

// ObtenerFactura godoc
// @Summary      Consultar el comprobante electrónico de una venta
// @Tags         facturacion
// @Produce      json
// @Security     BearerAuth
// @Param        venta_id path string true "UUID de la venta"
// @Success      200 {object} dto.FacturacionResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/facturacion/{venta_id} [get]
func (h *FacturacionHandler) ObtenerFactura(c *gin.Context) {
	ventaID, ok := pathUUID(c, "venta_id")
	if !ok {
		return
	}
	resp, err := h.svc.ObtenerFactura(c.Request.Context(), ventaID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ReintentarContingencia godoc
// @Summary      Reintentar un documento en contingencia
// @Description  Adelanta el reintento programado: el documento queda elegible para el siguiente barrido del cron.
// @Tags         facturacion
// @Produce      json
// @Security     BearerAuth
// @Param        venta_id path string true "UUID de la venta"
// @Success      202
// @Failure      409 {object} apierror.APIError
// @Router       /v1/facturacion/{venta_id}/reintentar [post]
func (h *FacturacionHandler) ReintentarContingencia(c *gin.Context) {
	ventaID, ok := pathUUID(c, "venta_id")
	if !ok {
		return
	}
	if err := h.svc.ReintentarContingencia(c.Request.Context(), ventaID); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusAccepted)
}

// DescargarPDF godoc
// @Summary      Descargar el PDF del comprobante
// @Tags         facturacion
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        venta_id path string true "UUID de la venta"
// @Success      200
// @Failure      404 {object} apierror.APIError
// @Router       /v1/facturacion/{venta_id}/pdf [get]
func (h *FacturacionHandler) DescargarPDF(c *gin.Context) {
	ventaID, ok := pathUUID(c, "venta_id")
	if !ok {
		return
	}
	path, err := h.svc.ObtenerPDFPath(c.Request.Context(), ventaID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.FileAttachment(path, "comprobante.pdf")
}
