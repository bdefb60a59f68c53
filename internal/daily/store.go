// internal/daily/store.go
//
// SQLite persistence for finished daily games (daily_results) and the
// per-date leaderboard.

package daily

import (
	"context"
	"database/sql"
)

// Result is one player's finished daily game.
type Result struct {
	PlayerID    string `json:"playerId"`
	Date        string `json:"date"`
	AnswerIndex int    `json:"answerIndex"`
	Guesses     int    `json:"guesses"`
	Won         bool   `json:"won"`
	ElapsedMs   int64  `json:"elapsedMs"`
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// AlreadyPlayed reports whether playerID finished the daily game for date.
func (s *Store) AlreadyPlayed(ctx context.Context, playerID, date string) (bool, error) {
	var cnt int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM daily_results WHERE player_id=? AND date=?`,
		playerID, date,
	).Scan(&cnt)
	return cnt > 0, err
}

// InsertResult records r. A second result for the same player and date is ignored.
func (s *Store) InsertResult(ctx context.Context, r Result) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO daily_results(player_id, date, answer_index, guesses, won, elapsed_ms)
		 VALUES(?,?,?,?,?,?)`,
		r.PlayerID, r.Date, r.AnswerIndex, r.Guesses, r.Won, r.ElapsedMs,
	)
	return err
}

// LBRow is a leaderboard entry.
type LBRow struct {
	PlayerID  string `json:"playerId"`
	Username  string `json:"username,omitempty"`
	Guesses   int    `json:"guesses"`
	ElapsedMs int64  `json:"elapsedMs"`
}

// Leaderboard lists winners for date: fewest guesses first, then fastest.
func (s *Store) Leaderboard(ctx context.Context, date string, limit int) ([]LBRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT d.player_id, COALESCE(u.username, ''), d.guesses, d.elapsed_ms
		 FROM daily_results d
		 LEFT JOIN users u ON u.id = d.player_id
		 WHERE d.date=? AND d.won=1
		 ORDER BY d.guesses ASC, d.elapsed_ms ASC, d.created_at ASC
		 LIMIT ?`, date, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]LBRow, 0, limit)
	for rows.Next() {
		var r LBRow
		if err := rows.Scan(&r.PlayerID, &r.Username, &r.Guesses, &r.ElapsedMs); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
