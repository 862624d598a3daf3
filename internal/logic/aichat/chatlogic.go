package aichat

import (
	"context"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"

	"tradeboard-api/internal/svc"
	"tradeboard-api/internal/types"
	"tradeboard-api/pkg/market"
)

type ChatLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewChatLogic(ctx context.Context, svcCtx *svc.ServiceContext) *ChatLogic {
	return &ChatLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// Chat turns a free-text request into dashboard components.
func (l *ChatLogic) Chat(req *types.ChatRequest) (*types.ChatResponse, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, market.NewValidationError("message is required")
	}
	reply, err := l.svcCtx.Generator.Generate(l.ctx, req.Message)
	if err != nil {
		return nil, &market.InternalError{Msg: "Error generating dashboard components", Err: err}
	}
	resp := &types.ChatResponse{Message: reply.Message, Components: make([]types.ChatComponent, 0, len(reply.Components))}
	for _, w := range reply.Components {
		resp.Components = append(resp.Components, types.ChatComponent{ID: w.ID, Type: w.Type, Config: w.Config})
	}
	l.Infof("ai chat: %d components", len(resp.Components))
	return resp, nil
}
