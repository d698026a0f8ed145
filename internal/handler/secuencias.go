package handler

import (
	"net/http"
	"time"

	"fiscalpos/internal/apierror"
	"fiscalpos/internal/dto"
	"fiscalpos/internal/middleware"
	"fiscalpos/internal/model"
	"fiscalpos/internal/service"

	"github.com/gin-gonic/gin"
)

type SecuenciasHandler struct{ svc service.SecuenciaService }

func NewSecuenciasHandler(svc service.SecuenciaService) *SecuenciasHandler {
	return &SecuenciasHandler{svc: svc}
}

// CrearSecuencia godoc
// @Summary      Registrar un rango de secuencias NCF
// @Description  Da de alta el rango autorizado por la DGII para un tipo de comprobante. Desactiva implícitamente al agotarse o vencer.
// @Tags         fiscal
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CrearSecuenciaRequest true "Rango autorizado"
// @Success      201  {object} dto.SecuenciaResponse
// @Failure      400  {object} apierror.APIError
// @Router       /v1/fiscal/secuencias [post]
func (h *SecuenciasHandler) CrearSecuencia(c *gin.Context) {
	var req dto.CrearSecuenciaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	vencimiento, err := time.Parse("2006-01-02", req.FechaVencimiento)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("fecha_vencimiento invalida, use YYYY-MM-DD"))
		return
	}

	secuencia := &model.SecuenciaNCF{
		NegocioID:        middleware.NegocioID(c),
		TipoComprobante:  req.TipoComprobante,
		Serie:            req.Serie,
		NumeroDesde:      req.NumeroDesde,
		NumeroHasta:      req.NumeroHasta,
		FechaVencimiento: vencimiento,
	}
	if err := h.svc.CrearSecuencia(c.Request.Context(), secuencia); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, secuenciaToResponse(secuencia))
}

// ListarSecuencias godoc
// @Summary      Listar secuencias NCF del negocio
// @Tags         fiscal
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} dto.SecuenciaResponse
// @Router       /v1/fiscal/secuencias [get]
func (h *SecuenciasHandler) ListarSecuencias(c *gin.Context) {
	secuencias, err := h.svc.ListSecuencias(c.Request.Context(), middleware.NegocioID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	out := make([]dto.SecuenciaResponse, 0, len(secuencias))
	for i := range secuencias {
		out = append(out, *secuenciaToResponse(&secuencias[i]))
	}
	c.JSON(http.StatusOK, out)
}

func secuenciaToResponse(s *model.SecuenciaNCF) *dto.SecuenciaResponse {
	disponibles := s.NumeroHasta - s.NumeroActual + 1
	if disponibles < 0 {
		disponibles = 0
	}
	return &dto.SecuenciaResponse{
		ID:               s.ID.String(),
		TipoComprobante:  s.TipoComprobante,
		Serie:            s.Serie,
		NumeroDesde:      s.NumeroDesde,
		NumeroHasta:      s.NumeroHasta,
		NumeroActual:     s.NumeroActual,
		Disponibles:      disponibles,
		FechaVencimiento: s.FechaVencimiento.Format("2006-01-02"),
		Activa:           s.Activa,
	}
}
