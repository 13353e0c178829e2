package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/radieske/wager-ledger/internal/ledger-service/catalog"
	"github.com/radieske/wager-ledger/internal/ledger-service/dto"
	"github.com/radieske/wager-ledger/internal/ledger-service/model"
)

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req dto.CredentialsRequest
	if err := decode(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}
	u, err := s.auth.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.FromUser(u))
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req dto.CredentialsRequest
	if err := decode(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	token, u, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.LoginResponse{Token: token, User: dto.FromUser(u)})
}

func (s *Server) listPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := s.catalog.ListPlayers(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, players)
}

// listMatches retorna partidas pendentes com odds ativas, preferencialmente do cache
func (s *Server) listMatches(w http.ResponseWriter, r *http.Request) {
	cards, err := s.catalog.ListOpenMatches(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.DataResponse{Success: true, Data: cards})
}

func (s *Server) getBalance(w http.ResponseWriter, r *http.Request) {
	bal, err := s.ledger.GetBalance(r.Context(), principal(r).UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.BalanceResponse{Success: true, Balance: bal})
}

func (s *Server) listBets(w http.ResponseWriter, r *http.Request) {
	bets, err := s.ledger.ListBetsForUser(r.Context(), principal(r).UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.DataResponse{Success: true, Data: bets})
}

func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaceBetRequest
	if err := decode(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid bet data")
		return
	}
	if req.OddID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid bet data")
		return
	}

	res, err := s.ledger.PlaceBet(r.Context(), principal(r).UserID, req.OddID, req.StakeAmount)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.PlaceBetResponse{Success: true, NewBalance: res.NewBalance, Bet: res.Bet})
}

func (s *Server) createPlayer(w http.ResponseWriter, r *http.Request) {
	var req dto.CreatePlayerRequest
	if err := decode(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	p, err := s.catalog.CreatePlayer(r.Context(), req.Name, req.Country)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) createMatch(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateMatchRequest
	if err := decode(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	m, err := s.catalog.CreateMatch(r.Context(), req.PlayerOneID, req.PlayerTwoID, req.MatchTime)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) createOdd(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateOddRequest
	if err := decode(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "odd_value must be a valid number")
		return
	}
	if req.MatchID <= 0 || req.OddType == "" || req.OddValue == nil {
		writeError(w, http.StatusBadRequest, "missing required fields: match_id, odd_type, odd_value")
		return
	}

	o, err := s.catalog.CreateOdd(r.Context(), catalog.NewOdd{
		MatchID:  req.MatchID,
		PlayerID: req.PlayerID,
		Type:     model.OddType(req.OddType),
		Value:    *req.OddValue,
		Line:     req.OddLine,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

// settleMatch aceita só os campos de resultado conhecidos; qualquer outra chave é 400
func (s *Server) settleMatch(w http.ResponseWriter, r *http.Request) {
	matchID, ok := idParam(r, "matchId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid match id")
		return
	}
	var req dto.SettleRequest
	if err := decode(w, r, &req, true); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid outcome: "+err.Error())
		return
	}

	report, err := s.ledger.SettleMatch(r.Context(), matchID, model.Outcome{
		WinnerID:           req.WinnerID,
		FirstScorerID:      req.FirstScorerID,
		TotalPoints:        req.TotalPoints,
		GamesPlayed:        req.GamesPlayed,
		HighestLeadAmount:  req.HighestLeadAmount,
		FirstTiltPlayerID:  req.FirstTiltPlayerID,
		FirstAbusePlayerID: req.FirstAbusePlayerID,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.catalog.InvalidateOpenMatches(r.Context())

	writeJSON(w, http.StatusOK, dto.SettleResponse{
		Success: true,
		Message: fmt.Sprintf("Match %d settled. %d bets processed.", matchID, report.Processed),
		Report:  report,
	})
}

func (s *Server) revokeBet(w http.ResponseWriter, r *http.Request) {
	betID, ok := idParam(r, "betId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid bet id")
		return
	}
	bet, err := s.ledger.RevokeBet(r.Context(), betID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.RevokeResponse{Success: true, Message: "Bet revoked and stake refunded.", Bet: bet})
}
