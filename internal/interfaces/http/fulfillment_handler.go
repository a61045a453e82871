package http

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/recepcion-despacho/internal/application/dto"
	"github.com/jhoicas/recepcion-despacho/internal/application/fulfillment"
	"github.com/jhoicas/recepcion-despacho/internal/domain"
	"github.com/jhoicas/recepcion-despacho/internal/domain/entity"
	"github.com/jhoicas/recepcion-despacho/pkg/logger"
)

// LocalFlow key de c.Locals con el flujo del grupo de rutas (entradas o salidas).
const LocalFlow = "flow"

// FlowScope fija el flujo de las rutas del grupo.
func FlowScope(flow entity.Flow) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(LocalFlow, flow)
		return c.Next()
	}
}

// GetFlow devuelve el flujo fijado por FlowScope.
func GetFlow(c *fiber.Ctx) entity.Flow {
	f, _ := c.Locals(LocalFlow).(entity.Flow)
	return f
}

// FulfillmentHandler expone las sesiones de escaneo de entradas y salidas (protegido).
type FulfillmentHandler struct {
	sessions *fulfillment.SessionManager
	slips    map[entity.Flow]*fulfillment.SlipUseCase
	log      *logger.Logger
}

// NewFulfillmentHandler construye el handler.
func NewFulfillmentHandler(sessions *fulfillment.SessionManager, slips map[entity.Flow]*fulfillment.SlipUseCase, log *logger.Logger) *FulfillmentHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &FulfillmentHandler{sessions: sessions, slips: slips, log: log}
}

// fail responde el error de dominio; los 5xx se registran.
func (h *FulfillmentHandler) fail(c *fiber.Ctx, err error) error {
	status, code := errorStatus(err)
	if status >= fiber.StatusInternalServerError {
		h.log.Error().Err(err).
			Str("flow", string(GetFlow(c))).
			Str("path", c.Path()).
			Str("code", code).
			Msg("error en petición")
	}
	return c.Status(status).JSON(errorResponse(err, code))
}

func (h *FulfillmentHandler) session(c *fiber.Ctx) (*fulfillment.Session, error) {
	return h.sessions.Get(GetFlow(c), c.Params("sid"))
}

func (h *FulfillmentHandler) sessionResponse(c *fiber.Ctx, s *fulfillment.Session) error {
	return c.JSON(dto.NewSessionResponse(s.View()))
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}

// CreateSession godoc
// @Summary      Abrir sesión de escaneo
// @Tags         sessions
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.CreateSessionRequest  false  "mode: ORDER (por defecto) o FREE"
// @Success      201   {object}  dto.SessionResponse
// @Router       /api/entries/sessions [post]
func (h *FulfillmentHandler) CreateSession(c *fiber.Ctx) error {
	var in dto.CreateSessionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
	}
	mode := fulfillment.ModeOrder
	switch in.Mode {
	case "", string(fulfillment.ModeOrder):
	case string(fulfillment.ModeFree):
		mode = fulfillment.ModeFree
	default:
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "mode debe ser ORDER o FREE"})
	}
	s, err := h.sessions.Create(GetFlow(c), mode)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewSessionResponse(s.View()))
}

// GetSession godoc
// @Summary      Estado de la sesión
// @Tags         sessions
// @Security     Bearer
// @Produce      json
// @Param        sid  path      string  true  "ID de la sesión"
// @Success      200  {object}  dto.SessionResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/entries/sessions/{sid} [get]
func (h *FulfillmentHandler) GetSession(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	return h.sessionResponse(c, s)
}

// AbandonSession descarta la sesión; lo confirmado no se revierte.
func (h *FulfillmentHandler) AbandonSession(c *fiber.Ctx) error {
	if err := h.sessions.Abandon(GetFlow(c), c.Params("sid")); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SelectOrder godoc
// @Summary      Seleccionar orden
// @Description  Carga la orden y reconstruye lo registrado desde los movimientos. Otra orden limpia carrito y avance.
// @Tags         sessions
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        sid   path      string                  true  "ID de la sesión"
// @Param        body  body      dto.SelectOrderRequest  true  "order_id"
// @Success      200   {object}  dto.SessionResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/entries/sessions/{sid}/order [put]
func (h *FulfillmentHandler) SelectOrder(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	var in dto.SelectOrderRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := s.SelectOrder(c.Context(), in.OrderID); err != nil {
		return h.fail(c, err)
	}
	return h.sessionResponse(c, s)
}

// SelectDestination elige bodega y ubicación.
func (h *FulfillmentHandler) SelectDestination(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	var in dto.SelectDestinationRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := s.SelectDestination(c.Context(), in.WarehouseID, in.LocationID); err != nil {
		return h.fail(c, err)
	}
	return h.sessionResponse(c, s)
}

// Scan godoc
// @Summary      Escanear código
// @Description  Resuelve código de barras o SKU y valida que quepa al menos una unidad.
// @Tags         sessions
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        sid   path      string           true  "ID de la sesión"
// @Param        body  body      dto.ScanRequest  true  "code"
// @Success      200   {object}  dto.ScannedProductDTO
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/entries/sessions/{sid}/scan [post]
func (h *FulfillmentHandler) Scan(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	var in dto.ScanRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	scanned, err := s.ScanBarcode(c.Context(), in.Code)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(dto.NewScannedProductDTO(scanned))
}

// Validate responde si la cantidad cabe en la orden (siempre 200).
func (h *FulfillmentHandler) Validate(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	var in dto.ValidateRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	return c.JSON(s.Validate(in.ProductID, in.Quantity))
}

// AddToCart godoc
// @Summary      Agregar al carrito
// @Tags         cart
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        sid   path      string                true  "ID de la sesión"
// @Param        body  body      dto.AddToCartRequest  true  "product_id, quantity, barcode"
// @Success      200   {object}  dto.SessionResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      412   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/entries/sessions/{sid}/cart [post]
func (h *FulfillmentHandler) AddToCart(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	var in dto.AddToCartRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	err = s.AddToCart(c.Context(), fulfillment.AddInput{ProductID: in.ProductID, Quantity: in.Quantity, Barcode: in.Barcode})
	if err != nil {
		return h.fail(c, err)
	}
	return h.sessionResponse(c, s)
}

// UpdateQuantity cambia la cantidad de la entrada :index.
func (h *FulfillmentHandler) UpdateQuantity(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	index, err := cartIndex(c)
	if err != nil {
		return h.fail(c, err)
	}
	var in dto.UpdateQuantityRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := s.UpdateQuantity(index, in.Quantity); err != nil {
		return h.fail(c, err)
	}
	return h.sessionResponse(c, s)
}

// RemoveFromCart quita la entrada :index.
func (h *FulfillmentHandler) RemoveFromCart(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	index, err := cartIndex(c)
	if err != nil {
		return h.fail(c, err)
	}
	if err := s.RemoveFromCart(index); err != nil {
		return h.fail(c, err)
	}
	return h.sessionResponse(c, s)
}

func cartIndex(c *fiber.Ctx) (int, error) {
	index, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return 0, errors.Join(domain.ErrInvalidInput, err)
	}
	return index, nil
}

// Progress avance de la orden de la sesión; ?product_id= filtra una línea.
func (h *FulfillmentHandler) Progress(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	p, err := s.Progress(c.Query("product_id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(p)
}

// Finalize godoc
// @Summary      Confirmar carrito
// @Description  Inserta los movimientos en una transacción y concilia cada línea con el RPC atómico.
// @Description  201 confirmado; 207 movimientos guardados pero alguna línea sin conciliar.
// @Tags         sessions
// @Security     Bearer
// @Produce      json
// @Param        sid  path      string  true  "ID de la sesión"
// @Success      201  {object}  dto.FinalizeResponse
// @Success      207  {object}  dto.FinalizeResponse
// @Failure      412  {object}  dto.FinalizeResponse
// @Failure      503  {object}  dto.FinalizeResponse
// @Router       /api/entries/sessions/{sid}/finalize [post]
func (h *FulfillmentHandler) Finalize(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	res := s.Finalize(c.Context(), GetUserID(c))
	body := dto.NewFinalizeResponse(res)
	if res.Err == nil {
		return c.Status(fiber.StatusCreated).JSON(body)
	}
	status, code := errorStatus(res.Err)
	body.Code = code
	if status >= fiber.StatusInternalServerError {
		h.log.Error().Err(res.Err).
			Str("flow", string(GetFlow(c))).
			Str("session_id", s.ID()).
			Msg("confirmación fallida")
	}
	return c.Status(status).JSON(body)
}

// Reset limpia carrito, avance de sesión y error; la orden sigue seleccionada.
func (h *FulfillmentHandler) Reset(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	if err := s.ResetSession(); err != nil {
		return h.fail(c, err)
	}
	return h.sessionResponse(c, s)
}

// ClearError limpia el error actual de la sesión.
func (h *FulfillmentHandler) ClearError(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	s.ClearError()
	return h.sessionResponse(c, s)
}

// OrderProgress godoc
// @Summary      Avance de una orden
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID de la orden"
// @Success      200  {object}  fulfillment.ProgressView
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/entries/orders/{id}/progress [get]
func (h *FulfillmentHandler) OrderProgress(c *fiber.Ctx) error {
	e, err := h.sessions.Engine(GetFlow(c))
	if err != nil {
		return h.fail(c, err)
	}
	p, err := e.OrderProgress(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(p)
}

// DownloadSlip godoc
// @Summary      Comprobante PDF de un lote
// @Tags         batches
// @Security     Bearer
// @Produce      application/pdf
// @Param        batchID  path  string  true  "ID del lote"
// @Success      200
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/entries/batches/{batchID}/slip [get]
func (h *FulfillmentHandler) DownloadSlip(c *fiber.Ctx) error {
	uc, ok := h.slips[GetFlow(c)]
	if !ok {
		return h.fail(c, domain.ErrNotFound)
	}
	pdf, filename, err := uc.DownloadSlip(c.Context(), c.Params("batchID"))
	if err != nil {
		return h.fail(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(pdf)
}
