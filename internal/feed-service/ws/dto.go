package ws

import "encoding/json"

// ClientMsg representa uma mensagem recebida do cliente WebSocket
// Type: subscribe | unsubscribe | ping
// MatchID: obrigatório para subscribe/unsubscribe
type ClientMsg struct {
	Type    string `json:"type"`
	MatchID int64  `json:"matchId"`
}

// Update é o evento de liquidação repassado aos inscritos da partida
type Update struct {
	Type    string          `json:"type"` // match_settled | bet_settled
	MatchID int64           `json:"matchId"`
	Payload json.RawMessage `json:"payload"`
}
