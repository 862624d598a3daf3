package ccxt

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"tradeboard-api/internal/logic/ccxt"
	"tradeboard-api/internal/svc"
	"tradeboard-api/internal/types"
	"tradeboard-api/pkg/market"
)

func PerpetualSwapsHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.PerpetualSwapsRequest
		if err := httpx.Parse(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, market.NewValidationError("%s", err.Error()))
			return
		}

		l := ccxt.NewPerpetualSwapsLogic(r.Context(), svcCtx)
		resp, err := l.PerpetualSwaps(&req)
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
		} else {
			httpx.OkJsonCtx(r.Context(), w, resp)
		}
	}
}
