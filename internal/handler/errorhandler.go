package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/zeromicro/go-zero/core/logx"

	"tradeboard-api/internal/repo"
	"tradeboard-api/internal/types"
	"tradeboard-api/pkg/market"
)

const genericDetail = "Internal server error"

// ErrorResponse maps an error to a status code and a {"detail": ...} body.
// Internal details are logged, never returned.
func ErrorResponse(ctx context.Context, err error) (int, any) {
	var (
		validation *market.ValidationError
		internal   *market.InternalError
		capability *market.CapabilityError
		transient  *market.TransientFetchError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, types.ErrorResponse{Detail: validation.Msg}
	case errors.Is(err, repo.ErrNotFound):
		return http.StatusNotFound, types.ErrorResponse{Detail: "Dashboard not found"}
	case errors.As(err, &internal):
		logx.WithContext(ctx).Errorf("request failed: %v", err)
		detail := internal.Msg
		if detail == "" {
			detail = genericDetail
		}
		return http.StatusInternalServerError, types.ErrorResponse{Detail: detail}
	case errors.As(err, &capability), errors.As(err, &transient):
		logx.WithContext(ctx).Errorf("upstream failure: %v", err)
		return http.StatusInternalServerError, types.ErrorResponse{Detail: err.Error()}
	default:
		logx.WithContext(ctx).Errorf("unhandled error: %v", err)
		return http.StatusInternalServerError, types.ErrorResponse{Detail: genericDetail}
	}
}
