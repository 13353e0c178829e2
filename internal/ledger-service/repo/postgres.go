package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/wager-ledger/internal/ledger-service/ledger"
	"github.com/radieske/wager-ledger/internal/ledger-service/model"
)

// maxAttempts limita as re-execuções de uma unidade de trabalho após deadlock/serialização
const maxAttempts = 3

// Postgres implementa o ledger em banco, com travas de linha explícitas
type Postgres struct {
	db  *sql.DB
	log *zap.Logger
}

func NewPostgres(db *sql.DB, log *zap.Logger) *Postgres {
	if log == nil {
		log = zap.NewNop()
	}
	return &Postgres{db: db, log: log}
}

// Within roda fn numa transação READ COMMITTED. Deadlock e falha de serialização
// (40P01, 40001) repetem a unidade inteira.
func (p *Postgres) Within(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = p.within(ctx, fn)
		if err == nil || !retryable(err) {
			return err
		}
		p.log.Warn("unit of work aborted by postgres, retrying",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
	return err
}

func (p *Postgres) within(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error {
	tx, err := p.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

func retryable(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "40001" || pqErr.Code == "40P01"
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}

func (p *Postgres) Balance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	var bal decimal.Decimal
	err := p.db.QueryRowContext(ctx, `SELECT balance FROM users WHERE user_id=$1`, userID).Scan(&bal)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("%w: user %d", ledger.ErrNotFound, userID)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("read balance: %w", err)
	}
	return bal, nil
}

func (p *Postgres) BetsForUser(ctx context.Context, userID int64) ([]model.BetView, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT b.bet_id, b.user_id, b.odd_id, b.stake_amount, b.bet_status, b.payout, b.placed_at, b.resolved_at,
		       o.odd_type, o.odd_value, o.odd_line,
		       m.match_id, m.match_time, m.match_status,
		       p1.name, p2.name
		FROM bets b
		JOIN odds o     ON o.odd_id = b.odd_id
		JOIN matches m  ON m.match_id = o.match_id
		JOIN players p1 ON p1.player_id = m.player_one_id
		JOIN players p2 ON p2.player_id = m.player_two_id
		WHERE b.user_id=$1
		ORDER BY b.placed_at DESC, b.bet_id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list bets: %w", err)
	}
	defer rows.Close()

	out := []model.BetView{}
	for rows.Next() {
		var v model.BetView
		if err := rows.Scan(
			&v.ID, &v.UserID, &v.OddID, &v.Stake, &v.Status, &v.Payout, &v.PlacedAt, &v.ResolvedAt,
			&v.OddType, &v.OddValue, &v.OddLine,
			&v.MatchID, &v.MatchTime, &v.MatchStatus,
			&v.PlayerOneName, &v.PlayerTwoName,
		); err != nil {
			return nil, fmt.Errorf("scan bet: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// CreateUser insere o usuário; o primeiro da tabela nasce admin
func (p *Postgres) CreateUser(ctx context.Context, username, passwordHash string, balance decimal.Decimal) (model.User, error) {
	u := model.User{Username: username, Balance: balance}
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO users(username, password_hash, is_admin, balance)
		VALUES($1, $2, NOT EXISTS (SELECT 1 FROM users), $3)
		RETURNING user_id, is_admin, created_at`,
		username, passwordHash, balance).Scan(&u.ID, &u.IsAdmin, &u.CreatedAt)
	if isUniqueViolation(err) {
		return model.User{}, fmt.Errorf("%w: username already taken", ledger.ErrConflict)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (p *Postgres) FindUserByUsername(ctx context.Context, username string) (model.Credentials, error) {
	var c model.Credentials
	err := p.db.QueryRowContext(ctx, `
		SELECT user_id, username, is_admin, balance, created_at, password_hash
		FROM users WHERE lower(username) = lower($1)`, username).
		Scan(&c.ID, &c.Username, &c.IsAdmin, &c.Balance, &c.CreatedAt, &c.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Credentials{}, fmt.Errorf("%w: user %q", ledger.ErrNotFound, username)
	}
	if err != nil {
		return model.Credentials{}, fmt.Errorf("find user: %w", err)
	}
	return c, nil
}

func (p *Postgres) CreatePlayer(ctx context.Context, name, country string) (model.Player, error) {
	pl := model.Player{Name: name, Country: country}
	if err := p.db.QueryRowContext(ctx,
		`INSERT INTO players(name, country) VALUES($1,$2) RETURNING player_id`, name, country).Scan(&pl.ID); err != nil {
		return model.Player{}, fmt.Errorf("insert player: %w", err)
	}
	return pl, nil
}

func (p *Postgres) ListPlayers(ctx context.Context) ([]model.Player, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT player_id, name, country FROM players ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	out := []model.Player{}
	for rows.Next() {
		var pl model.Player
		if err := rows.Scan(&pl.ID, &pl.Name, &pl.Country); err != nil {
			return nil, err
		}
		out = append(out, pl)
	}
	return out, rows.Err()
}

func (p *Postgres) CreateMatch(ctx context.Context, playerOneID, playerTwoID int64, at time.Time) (model.Match, error) {
	m := model.Match{PlayerOneID: playerOneID, PlayerTwoID: playerTwoID, MatchTime: at, Status: model.MatchPending}
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO matches(player_one_id, player_two_id, match_time, match_status)
		VALUES($1,$2,$3,'pending') RETURNING match_id`,
		playerOneID, playerTwoID, at).Scan(&m.ID)
	if isForeignKeyViolation(err) {
		return model.Match{}, fmt.Errorf("%w: player", ledger.ErrNotFound)
	}
	if err != nil {
		return model.Match{}, fmt.Errorf("insert match: %w", err)
	}
	return m, nil
}

func (p *Postgres) Match(ctx context.Context, matchID int64) (model.Match, error) {
	m, err := scanMatch(p.db.QueryRowContext(ctx, `SELECT `+matchColumns+` FROM matches WHERE match_id=$1`, matchID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Match{}, fmt.Errorf("%w: match %d", ledger.ErrNotFound, matchID)
	}
	return m, err
}

// CreateOdd trava a partida em modo compartilhado antes de inserir,
// para não cruzar com uma liquidação em andamento
func (p *Postgres) CreateOdd(ctx context.Context, o model.Odd) (model.Odd, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Odd{}, err
	}
	defer tx.Rollback()

	var status model.MatchStatus
	err = tx.QueryRowContext(ctx, `SELECT match_status FROM matches WHERE match_id=$1 FOR SHARE`, o.MatchID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Odd{}, fmt.Errorf("%w: match %d", ledger.ErrNotFound, o.MatchID)
	}
	if err != nil {
		return model.Odd{}, err
	}
	if status != model.MatchPending {
		return model.Odd{}, fmt.Errorf("%w: match %d is %s", ledger.ErrInvalidState, o.MatchID, status)
	}

	o.Active = true
	if err = tx.QueryRowContext(ctx, `
		INSERT INTO odds(match_id, player_id, odd_type, odd_value, odd_line, is_active)
		VALUES($1,$2,$3,$4,$5,TRUE) RETURNING odd_id`,
		o.MatchID, o.PlayerID, o.Type, o.Value, o.Line).Scan(&o.ID); err != nil {
		if isForeignKeyViolation(err) {
			return model.Odd{}, fmt.Errorf("%w: player", ledger.ErrNotFound)
		}
		return model.Odd{}, fmt.Errorf("insert odd: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return model.Odd{}, err
	}
	return o, nil
}

// ListOpenMatches lista partidas pendentes e suas odds ativas em duas consultas
func (p *Postgres) ListOpenMatches(ctx context.Context) ([]model.MatchCard, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT m.match_id, m.match_time, m.match_status, m.player_one_id, m.player_two_id, p1.name, p2.name
		FROM matches m
		JOIN players p1 ON p1.player_id = m.player_one_id
		JOIN players p2 ON p2.player_id = m.player_two_id
		WHERE m.match_status = 'pending'
		ORDER BY m.match_time, m.match_id`)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	cards := []model.MatchCard{}
	index := map[int64]int{}
	var ids []int64
	for rows.Next() {
		c := model.MatchCard{Odds: []model.Odd{}}
		if err := rows.Scan(&c.ID, &c.MatchTime, &c.Status, &c.PlayerOneID, &c.PlayerTwoID, &c.PlayerOneName, &c.PlayerTwoName); err != nil {
			return nil, err
		}
		index[c.ID] = len(cards)
		ids = append(ids, c.ID)
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return cards, nil
	}

	orows, err := p.db.QueryContext(ctx, `
		SELECT `+oddColumns+` FROM odds
		WHERE is_active AND match_id = ANY($1)
		ORDER BY odd_id`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("list odds: %w", err)
	}
	defer orows.Close()

	for orows.Next() {
		o, err := scanOdd(orows)
		if err != nil {
			return nil, err
		}
		i := index[o.MatchID]
		cards[i].Odds = append(cards[i].Odds, o)
	}
	return cards, orows.Err()
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

const (
	matchColumns = `match_id, player_one_id, player_two_id, match_time, match_status,
		winner_id, first_scorer_id, total_points, games_played, highest_lead_amount,
		first_tilt_player_id, first_abuse_player_id, settled_at`
	oddColumns = `odd_id, match_id, player_id, odd_type, odd_value, odd_line, is_active`
	betColumns = `bet_id, user_id, odd_id, stake_amount, bet_status, payout, placed_at, resolved_at`
)

type scanner interface {
	Scan(dest ...any) error
}

func scanMatch(row scanner) (model.Match, error) {
	var m model.Match
	err := row.Scan(&m.ID, &m.PlayerOneID, &m.PlayerTwoID, &m.MatchTime, &m.Status,
		&m.WinnerID, &m.FirstScorerID, &m.TotalPoints, &m.GamesPlayed, &m.HighestLeadAmount,
		&m.FirstTiltPlayerID, &m.FirstAbusePlayerID, &m.SettledAt)
	return m, err
}

func scanOdd(row scanner) (model.Odd, error) {
	var o model.Odd
	err := row.Scan(&o.ID, &o.MatchID, &o.PlayerID, &o.Type, &o.Value, &o.Line, &o.Active)
	return o, err
}

func scanBet(row scanner) (model.Bet, error) {
	var b model.Bet
	err := row.Scan(&b.ID, &b.UserID, &b.OddID, &b.Stake, &b.Status, &b.Payout, &b.PlacedAt, &b.ResolvedAt)
	return b, err
}
