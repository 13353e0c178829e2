package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/radieske/wager-ledger/internal/ledger-service/ledger"
	"github.com/radieske/wager-ledger/internal/ledger-service/model"
)

// ErrInvalidCredentials não diferencia usuário inexistente de senha errada
var ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ledger.ErrInvalidInput)

type Users interface {
	CreateUser(ctx context.Context, username, passwordHash string, balance decimal.Decimal) (model.User, error)
	FindUserByUsername(ctx context.Context, username string) (model.Credentials, error)
}

type Service struct {
	log            *zap.Logger
	users          Users
	issuer         *Issuer
	initialBalance decimal.Decimal
	cost           int
}

func NewService(log *zap.Logger, users Users, issuer *Issuer, initialBalance decimal.Decimal) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{log: log, users: users, issuer: issuer, initialBalance: initialBalance, cost: bcrypt.DefaultCost}
}

// Register cria a conta com o saldo inicial configurado
func (s *Service) Register(ctx context.Context, username, password string) (model.User, error) {
	username = strings.TrimSpace(username)
	if len(username) < 3 || len(username) > 50 {
		return model.User{}, fmt.Errorf("%w: username must have between 3 and 50 characters", ledger.ErrInvalidInput)
	}
	if len(password) < 6 || len(password) > 72 {
		return model.User{}, fmt.Errorf("%w: password must have between 6 and 72 characters", ledger.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}
	u, err := s.users.CreateUser(ctx, username, string(hash), s.initialBalance)
	if err != nil {
		return model.User{}, err
	}
	s.log.Info("user registered", zap.Int64("user_id", u.ID), zap.Bool("is_admin", u.IsAdmin))
	return u, nil
}

// Login confere a senha e devolve o token assinado
func (s *Service) Login(ctx context.Context, username, password string) (string, model.User, error) {
	c, err := s.users.FindUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, ledger.ErrNotFound) {
		return "", model.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return "", model.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)); err != nil {
		return "", model.User{}, ErrInvalidCredentials
	}

	token, err := s.issuer.Issue(c.User)
	if err != nil {
		return "", model.User{}, fmt.Errorf("sign token: %w", err)
	}
	return token, c.User, nil
}

// Parse expõe a validação de token para quem só tem o serviço em mãos
func (s *Service) Parse(token string) (Principal, error) { return s.issuer.Parse(token) }
