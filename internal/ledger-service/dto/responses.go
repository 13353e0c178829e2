package dto

import (
	"github.com/shopspring/decimal"

	"github.com/radieske/wager-ledger/internal/ledger-service/ledger"
	"github.com/radieske/wager-ledger/internal/ledger-service/model"
)

type UserResponse struct {
	UserID   int64           `json:"userId"`
	Username string          `json:"username"`
	IsAdmin  bool            `json:"isAdmin"`
	Balance  decimal.Decimal `json:"balance"`
}

func FromUser(u model.User) UserResponse {
	return UserResponse{UserID: u.ID, Username: u.Username, IsAdmin: u.IsAdmin, Balance: u.Balance}
}

type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type BalanceResponse struct {
	Success bool            `json:"success"`
	Balance decimal.Decimal `json:"balance"`
}

type PlaceBetResponse struct {
	Success    bool            `json:"success"`
	NewBalance decimal.Decimal `json:"newBalance"`
	Bet        model.Bet       `json:"bet"`
}

type DataResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type SettleResponse struct {
	Success bool                    `json:"success"`
	Message string                  `json:"message"`
	Report  ledger.SettlementReport `json:"report"`
}

type RevokeResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Bet     model.Bet `json:"bet"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
