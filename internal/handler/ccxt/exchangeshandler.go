package ccxt

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"tradeboard-api/internal/logic/ccxt"
	"tradeboard-api/internal/svc"
)

func ExchangesHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := ccxt.NewExchangesLogic(r.Context(), svcCtx)
		resp, err := l.Exchanges()
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
		} else {
			httpx.OkJsonCtx(r.Context(), w, resp)
		}
	}
}
