package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/recepcion-despacho/internal/application/dto"
	"github.com/jhoicas/recepcion-despacho/internal/application/fulfillment"
	"github.com/jhoicas/recepcion-despacho/internal/domain/entity"
	apphttp "github.com/jhoicas/recepcion-despacho/internal/interfaces/http"
	"github.com/jhoicas/recepcion-despacho/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────────────────────────────────

type apiClient struct {
	t     *testing.T
	app   *fiber.App
	token string
}

func newTestAPI(t *testing.T, store *memStore) *apiClient {
	t.Helper()
	deps := fulfillment.Deps{
		Orders:     store,
		Movements:  store,
		Delivery:   store,
		Products:   store,
		Warehouses: memWarehouses{},
		Stock:      store,
		TxRunner:   store,
	}
	opts := fulfillment.Options{BackendTimeout: time.Second}
	in := fulfillment.NewEngine(entity.FlowInbound, deps, nil, logger.Nop(), opts)
	out := fulfillment.NewEngine(entity.FlowOutbound, deps, nil, logger.Nop(), opts)

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Sessions: fulfillment.NewSessionManager(logger.Nop(), in, out),
		Slips: map[entity.Flow]*fulfillment.SlipUseCase{
			entity.FlowInbound:  fulfillment.NewSlipUseCase(in, fakeSlips{}),
			entity.FlowOutbound: fulfillment.NewSlipUseCase(out, fakeSlips{}),
		},
		Log:       logger.Nop(),
		JWTSecret: testJWTSecret,
	})
	return &apiClient{t: t, app: app, token: tokenForRole(t, apphttp.RoleBodeguero)}
}

// do envía la petición y decodifica la respuesta JSON en out (si no es nil).
func (a *apiClient) do(method, path string, body any, out any) int {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", a.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(a.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// openSession crea una sesión en base (/api/entries o /api/exits) con orden y bodega.
func (a *apiClient) openSession(base, orderID string) string {
	a.t.Helper()
	var s dto.SessionResponse
	require.Equal(a.t, http.StatusCreated, a.do(http.MethodPost, base+"/sessions", nil, &s))
	sp := base + "/sessions/" + s.ID
	require.Equal(a.t, http.StatusOK, a.do(http.MethodPut, sp+"/order", dto.SelectOrderRequest{OrderID: orderID}, nil))
	require.Equal(a.t, http.StatusOK, a.do(http.MethodPut, sp+"/destination", dto.SelectDestinationRequest{WarehouseID: "wh-1"}, nil))
	return sp
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests
// ──────────────────────────────────────────────────────────────────────────────

func TestAPI_SinToken_Retorna401(t *testing.T) {
	api := newTestAPI(t, newMemStore())
	api.token = ""
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodPost, "/api/entries/sessions", nil, nil))
}

func TestAPI_FlujoCompletoDeRecepcion(t *testing.T) {
	store := newMemStore()
	api := newTestAPI(t, store)
	sp := api.openSession("/api/entries", "po-1")

	var scanned dto.ScannedProductDTO
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, sp+"/scan", dto.ScanRequest{Code: "7701"}, &scanned))
	assert.Equal(t, "P", scanned.ProductID)
	assert.Equal(t, int64(10), scanned.MaxAllowed)

	var s dto.SessionResponse
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, sp+"/cart", dto.AddToCartRequest{ProductID: "P", Quantity: 6}, &s))
	require.Len(t, s.Cart, 1)
	assert.Equal(t, "7701", s.Cart[0].Barcode)

	var e dto.ErrorResponse
	assert.Equal(t, http.StatusUnprocessableEntity, api.do(http.MethodPost, sp+"/cart", dto.AddToCartRequest{ProductID: "P", Quantity: 5}, &e))
	assert.Equal(t, "ORDER_CONSTRAINT", e.Code)
	require.NotNil(t, e.MaxAllowed)
	assert.Equal(t, int64(4), *e.MaxAllowed)

	var v map[string]any
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, sp+"/validate", dto.ValidateRequest{ProductID: "P", Quantity: 5}, &v))
	assert.Equal(t, false, v["valid"])

	require.Equal(t, http.StatusOK, api.do(http.MethodPatch, sp+"/cart/0", dto.UpdateQuantityRequest{Quantity: 4}, &s))
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, sp+"/cart", dto.AddToCartRequest{ProductID: "P", Quantity: 5}, &s))
	assert.Equal(t, int64(9), s.Cart[0].Quantity)

	var p map[string]any
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, sp+"/progress", nil, &p))
	assert.Equal(t, float64(9), p["total_scanned"])

	var fin dto.FinalizeResponse
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, sp+"/finalize", nil, &fin))
	assert.Equal(t, "committed", fin.State)
	assert.Equal(t, int64(1), fin.Inserted)
	require.Len(t, store.movements, 1)
	assert.Equal(t, testUserID, store.movements[0].CreatedBy, "el actor sale del token")

	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/entries/orders/po-1/progress", nil, &p))
	assert.Equal(t, float64(9), p["total_registered"])

	req := httptest.NewRequest(http.MethodGet, "/api/entries/batches/"+fin.BatchID+"/slip", nil)
	req.Header.Set("Authorization", api.token)
	resp, err := api.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "entrada_"+fin.BatchID+".pdf")
}

func TestAPI_FinalizeCeroFilas(t *testing.T) {
	store := newMemStore()
	store.zeroRows = true
	api := newTestAPI(t, store)
	sp := api.openSession("/api/entries", "po-1")
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, sp+"/cart", dto.AddToCartRequest{ProductID: "P", Quantity: 2}, nil))

	var fin dto.FinalizeResponse
	assert.Equal(t, http.StatusServiceUnavailable, api.do(http.MethodPost, sp+"/finalize", nil, &fin))
	assert.Equal(t, "NO_ROWS_INSERTED", fin.Code)
	assert.Contains(t, fin.Error, "no rows inserted")

	var s dto.SessionResponse
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, sp, nil, &s))
	assert.Len(t, s.Cart, 1, "el carrito se conserva")
	assert.Contains(t, s.CurrentError, "no rows inserted")

	var cleared dto.SessionResponse
	require.Equal(t, http.StatusOK, api.do(http.MethodDelete, sp+"/error", nil, &cleared))
	assert.Empty(t, cleared.CurrentError)
	assert.Len(t, cleared.Cart, 1)
}

func TestAPI_FinalizeCarritoVacio(t *testing.T) {
	api := newTestAPI(t, newMemStore())
	sp := api.openSession("/api/entries", "po-1")

	var fin dto.FinalizeResponse
	assert.Equal(t, http.StatusPreconditionFailed, api.do(http.MethodPost, sp+"/finalize", nil, &fin))
	assert.Equal(t, "PRECONDITION_MISSING", fin.Code)
}

func TestAPI_SalidaConTopeDeStock(t *testing.T) {
	api := newTestAPI(t, newMemStore())
	sp := api.openSession("/api/exits", "do-1")

	var e dto.ErrorResponse
	assert.Equal(t, http.StatusConflict, api.do(http.MethodPost, sp+"/cart", dto.AddToCartRequest{ProductID: "P", Quantity: 4}, &e))
	assert.Equal(t, "INSUFFICIENT_STOCK", e.Code)

	var s dto.SessionResponse
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, sp+"/cart", dto.AddToCartRequest{ProductID: "P", Quantity: 3}, &s))
	require.NotNil(t, s.Cart[0].Available)
	assert.Equal(t, int64(3), *s.Cart[0].Available)
}

func TestAPI_SesionesPorFlujo(t *testing.T) {
	api := newTestAPI(t, newMemStore())
	var s dto.SessionResponse
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/entries/sessions", dto.CreateSessionRequest{Mode: "FREE"}, &s))
	assert.Equal(t, "FREE", s.Mode)
	assert.Equal(t, "INBOUND", s.Flow)

	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/exits/sessions/"+s.ID, nil, nil))
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/api/entries/sessions", dto.CreateSessionRequest{Mode: "OTRO"}, nil))

	var e dto.ErrorResponse
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodPut, "/api/exits/sessions/x/order", dto.SelectOrderRequest{OrderID: "po-1"}, &e))
	assert.Equal(t, "NOT_FOUND", e.Code)

	assert.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, "/api/entries/sessions/"+s.ID, nil, nil))
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/entries/sessions/"+s.ID, nil, nil))
}

func TestAPI_IndiceInvalidoYReset(t *testing.T) {
	api := newTestAPI(t, newMemStore())
	sp := api.openSession("/api/entries", "po-1")
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, sp+"/cart", dto.AddToCartRequest{ProductID: "P", Quantity: 2}, nil))

	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodDelete, sp+"/cart/abc", nil, nil))
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodDelete, sp+"/cart/7", nil, nil))

	var s dto.SessionResponse
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, sp+"/reset", nil, &s))
	assert.Empty(t, s.Cart)
	assert.Equal(t, "po-1", s.OrderID)
}
