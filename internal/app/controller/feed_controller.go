package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/tagreview/tagreview-backend/internal/app/service"
	apperrors "github.com/tagreview/tagreview-backend/internal/errors"
	"github.com/tagreview/tagreview-backend/internal/middleware"
	ws "github.com/tagreview/tagreview-backend/internal/websocket"
)

// FeedController 매장 대시보드용 실시간 리뷰 피드
type FeedController struct {
	policies service.PolicyProvider
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

func NewFeedController(policies service.PolicyProvider, hub *ws.Hub, allowedOrigins []string) *FeedController {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}

	return &FeedController{
		policies: policies,
		hub:      hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
	}
}

// Subscribe WebSocket 연결 처리
// GET /api/v1/companies/:id/feed?token=
// 토큰은 로깅하지 않음 (보안)
func (ctrl *FeedController) Subscribe(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	companyID := c.Param("id")

	company, err := service.AuthorizeFeed(c.Request.Context(), ctrl.policies, companyID, c.Query("token"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidFeedToken):
			log.Warn("Rejected feed subscription", map[string]interface{}{
				"company_id": companyID,
			})
			apperrors.Unauthorized(c, apperrors.CompanyFeedTokenInvalid, "피드 접속 권한이 없습니다")
		case errors.Is(err, service.ErrCompanyNotFound), errors.Is(err, service.ErrMissingCompany):
			apperrors.NotFound(c, apperrors.CompanyNotFound, "매장을 찾을 수 없습니다")
		default:
			log.Error("Failed to authorize feed", err, map[string]interface{}{
				"company_id": companyID,
			})
			apperrors.ServiceUnavailable(c, "")
		}
		return
	}

	conn, err := ctrl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("Failed to upgrade to WebSocket", err)
		return
	}

	client := ws.NewClient(ctrl.hub, &ws.Conn{Conn: conn}, company.ID)
	ctrl.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	log.Info("Feed subscriber connected", map[string]interface{}{
		"company_id": company.ID,
	})
}
