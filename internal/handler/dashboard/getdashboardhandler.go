package dashboard

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"tradeboard-api/internal/logic/dashboard"
	"tradeboard-api/internal/svc"
	"tradeboard-api/internal/types"
	"tradeboard-api/pkg/market"
)

func GetDashboardHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.GetDashboardRequest
		if err := httpx.Parse(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, market.NewValidationError("%s", err.Error()))
			return
		}

		l := dashboard.NewGetDashboardLogic(r.Context(), svcCtx)
		resp, err := l.GetDashboard(&req)
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
		} else {
			httpx.OkJsonCtx(r.Context(), w, resp)
		}
	}
}
