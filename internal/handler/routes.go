// Code scaffolded by goctl. Safe to edit.
// goctl 1.9.2

package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest"
	"github.com/zeromicro/go-zero/rest/httpx"

	aichat "tradeboard-api/internal/handler/aichat"
	ccxt "tradeboard-api/internal/handler/ccxt"
	dashboard "tradeboard-api/internal/handler/dashboard"
	deribit "tradeboard-api/internal/handler/deribit"
	hyperliquid "tradeboard-api/internal/handler/hyperliquid"
	marketdata "tradeboard-api/internal/handler/marketdata"
	"tradeboard-api/internal/svc"
)

func RegisterHandlers(server *rest.Server, serverCtx *svc.ServiceContext) {
	httpx.SetErrorHandlerCtx(ErrorResponse)

	server.AddRoutes(
		[]rest.Route{
			{
				Method:  http.MethodGet,
				Path:    "/perpetual-swaps",
				Handler: ccxt.PerpetualSwapsHandler(serverCtx),
			},
			{
				Method:  http.MethodGet,
				Path:    "/exchanges",
				Handler: ccxt.ExchangesHandler(serverCtx),
			},
			{
				Method:  http.MethodGet,
				Path:    "/exchanges/:exchange/markets",
				Handler: ccxt.MarketsHandler(serverCtx),
			},
		},
		rest.WithPrefix("/api/ccxt"),
	)

	server.AddRoutes(
		[]rest.Route{
			{
				Method:  http.MethodGet,
				Path:    "/futures/:symbol",
				Handler: deribit.FuturesCurveHandler(serverCtx),
			},
		},
		rest.WithPrefix("/api/deribit"),
	)

	server.AddRoutes(
		[]rest.Route{
			{
				Method:  http.MethodGet,
				Path:    "/funding-rates/:symbol",
				Handler: hyperliquid.FundingRatesHandler(serverCtx),
			},
		},
		rest.WithPrefix("/api/hyperliquid"),
	)

	server.AddRoutes(
		[]rest.Route{
			{
				Method:  http.MethodGet,
				Path:    "/indicators/:symbol",
				Handler: marketdata.IndicatorsHandler(serverCtx),
			},
		},
		rest.WithPrefix("/api/market-data"),
	)

	server.AddRoutes(
		[]rest.Route{
			{
				Method:  http.MethodPost,
				Path:    "/",
				Handler: dashboard.CreateDashboardHandler(serverCtx),
			},
			{
				Method:  http.MethodGet,
				Path:    "/",
				Handler: dashboard.ListDashboardsHandler(serverCtx),
			},
			{
				Method:  http.MethodGet,
				Path:    "/:name",
				Handler: dashboard.GetDashboardHandler(serverCtx),
			},
		},
		rest.WithPrefix("/api/dashboard"),
	)

	server.AddRoutes(
		[]rest.Route{
			{
				Method:  http.MethodPost,
				Path:    "/",
				Handler: aichat.ChatHandler(serverCtx),
			},
		},
		rest.WithPrefix("/api/chat"),
	)

	server.AddRoute(rest.Route{
		Method:  http.MethodGet,
		Path:    "/metrics",
		Handler: serverCtx.Metrics.Handler().ServeHTTP,
	})
}
