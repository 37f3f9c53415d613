// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/dareroom/gameserver/models"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx so every query method
// works inside and outside a transaction.
type dbtx interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// PostgreSQL 数据库实现 (database/sql + lib/pq)
type PostgreSQL struct {
	db  *sql.DB
	tx  dbtx
	raw *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	// 初始化表结构
	if err := initTables(db); err != nil {
		return nil, err
	}

	return &PostgreSQL{db: db, tx: db, raw: db}, nil
}

// initTables 初始化数据库表结构
func initTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS packs (
            id VARCHAR(64) PRIMARY KEY,
            title TEXT NOT NULL,
            paid BOOLEAN NOT NULL DEFAULT FALSE,
            price TEXT NOT NULL DEFAULT '',
            levels TEXT[],
            mode VARCHAR(16) NOT NULL DEFAULT 'offline'
        )`,
		`CREATE TABLE IF NOT EXISTS cards (
            id VARCHAR(64) PRIMARY KEY,
            type VARCHAR(16) NOT NULL,
            text TEXT NOT NULL,
            level VARCHAR(32) NOT NULL,
            pack_id VARCHAR(64) NOT NULL REFERENCES packs(id) ON DELETE CASCADE,
            requires_target BOOLEAN NOT NULL DEFAULT FALSE,
            target_gender VARCHAR(8)
        )`,
		`CREATE TABLE IF NOT EXISTS rooms (
            id VARCHAR(64) PRIMARY KEY,
            created_by TEXT NOT NULL,
            group_id VARCHAR(64),
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS room_players (
            id VARCHAR(64) PRIMARY KEY,
            room_id VARCHAR(64) NOT NULL REFERENCES rooms(id),
            name TEXT NOT NULL,
            gender VARCHAR(8) NOT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS rounds (
            id VARCHAR(64) PRIMARY KEY,
            room_id VARCHAR(64) NOT NULL REFERENCES rooms(id),
            player_id VARCHAR(64) NOT NULL,
            card_id VARCHAR(64),
            card_text TEXT NOT NULL,
            card_type VARCHAR(16) NOT NULL,
            level VARCHAR(32) NOT NULL,
            pack_id VARCHAR(64) NOT NULL,
            status VARCHAR(16) NOT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS proofs (
            id VARCHAR(64) PRIMARY KEY,
            room_id VARCHAR(64) NOT NULL REFERENCES rooms(id),
            created_by TEXT NOT NULL,
            round_id VARCHAR(64),
            status VARCHAR(16) NOT NULL,
            ref_chat_id VARCHAR(64),
            ref_message_id VARCHAR(64),
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS votes (
            proof_id VARCHAR(64) NOT NULL REFERENCES proofs(id),
            voter_id VARCHAR(64) NOT NULL,
            value VARCHAR(8) NOT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            PRIMARY KEY (proof_id, voter_id)
        )`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// --- Catalog ---

func (p *PostgreSQL) UpsertPack(pack *models.Pack) error {
	_, err := p.tx.Exec(`
        INSERT INTO packs (id, title, paid, price, levels, mode)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (id) DO UPDATE SET
            title = EXCLUDED.title, paid = EXCLUDED.paid,
            price = EXCLUDED.price, levels = EXCLUDED.levels, mode = EXCLUDED.mode`,
		pack.ID, pack.Title, pack.Paid, pack.Price, pq.Array([]string(pack.Levels)), pack.Mode)
	return err
}

func (p *PostgreSQL) ListPacks() ([]models.Pack, error) {
	rows, err := p.tx.Query(
		`SELECT id, title, paid, price, levels, mode FROM packs ORDER BY paid ASC, title ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var packs []models.Pack
	for rows.Next() {
		var pack models.Pack
		if err := rows.Scan(&pack.ID, &pack.Title, &pack.Paid, &pack.Price,
			(*pq.StringArray)(&pack.Levels), &pack.Mode); err != nil {
			return nil, err
		}
		packs = append(packs, pack)
	}
	return packs, rows.Err()
}

func (p *PostgreSQL) GetPack(id string) (*models.Pack, error) {
	var pack models.Pack
	err := p.tx.QueryRow(
		`SELECT id, title, paid, price, levels, mode FROM packs WHERE id = $1`, id).
		Scan(&pack.ID, &pack.Title, &pack.Paid, &pack.Price,
			(*pq.StringArray)(&pack.Levels), &pack.Mode)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &pack, nil
}

func (p *PostgreSQL) DeletePacksExcept(keep []string) error {
	if len(keep) == 0 {
		if _, err := p.tx.Exec(`DELETE FROM cards`); err != nil {
			return err
		}
		_, err := p.tx.Exec(`DELETE FROM packs`)
		return err
	}
	if _, err := p.tx.Exec(`DELETE FROM cards WHERE pack_id <> ALL($1)`, pq.Array(keep)); err != nil {
		return err
	}
	_, err := p.tx.Exec(`DELETE FROM packs WHERE id <> ALL($1)`, pq.Array(keep))
	return err
}

func (p *PostgreSQL) ReplacePackCards(packID string, cards []models.Card) error {
	return p.Transaction(func(tx Store) error {
		s := tx.(*PostgreSQL)
		if _, err := s.tx.Exec(`DELETE FROM cards WHERE pack_id = $1`, packID); err != nil {
			return err
		}
		for i := range cards {
			if err := s.CreateCard(&cards[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (p *PostgreSQL) CreateCard(card *models.Card) error {
	_, err := p.tx.Exec(`
        INSERT INTO cards (id, type, text, level, pack_id, requires_target, target_gender)
        VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''))`,
		card.ID, card.Type, card.Text, card.Level, card.PackID,
		card.RequiresTarget, string(card.TargetGender))
	return err
}

func (p *PostgreSQL) DeleteCard(packID, cardID string) error {
	_, err := p.tx.Exec(`DELETE FROM cards WHERE id = $1 AND pack_id = $2`, cardID, packID)
	return err
}

func (p *PostgreSQL) ListCards(packID string) ([]models.Card, error) {
	rows, err := p.tx.Query(`
        SELECT id, type, text, level, pack_id, requires_target, COALESCE(target_gender, '')
        FROM cards WHERE pack_id = $1 ORDER BY level ASC`, packID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCards(rows)
}

func (p *PostgreSQL) FindCards(packID string, cardType models.CardType, level string) ([]models.Card, error) {
	query := `
        SELECT id, type, text, level, pack_id, requires_target, COALESCE(target_gender, '')
        FROM cards WHERE pack_id = $1 AND type = $2`
	args := []interface{}{packID, cardType}
	if level != "" {
		query += ` AND level = $3`
		args = append(args, level)
	}
	rows, err := p.tx.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCards(rows)
}

func scanCards(rows *sql.Rows) ([]models.Card, error) {
	var cards []models.Card
	for rows.Next() {
		var card models.Card
		if err := rows.Scan(&card.ID, &card.Type, &card.Text, &card.Level,
			&card.PackID, &card.RequiresTarget, &card.TargetGender); err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

func (p *PostgreSQL) CountPacks() (int64, error) {
	var count int64
	err := p.tx.QueryRow(`SELECT COUNT(*) FROM packs`).Scan(&count)
	return count, err
}

// --- Rooms and players ---

func (p *PostgreSQL) CreateRoom(room *models.Room) error {
	_, err := p.tx.Exec(`
        INSERT INTO rooms (id, created_by, group_id, created_at)
        VALUES ($1, $2, NULLIF($3, ''), $4)`,
		room.ID, room.CreatedBy, room.GroupID, room.CreatedAt)
	return err
}

func (p *PostgreSQL) GetRoom(id string) (*models.Room, error) {
	var room models.Room
	err := p.tx.QueryRow(`
        SELECT id, created_by, COALESCE(group_id, ''), created_at
        FROM rooms WHERE id = $1`, id).
		Scan(&room.ID, &room.CreatedBy, &room.GroupID, &room.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (p *PostgreSQL) SetRoomGroup(roomID, groupID string) error {
	res, err := p.tx.Exec(`UPDATE rooms SET group_id = $1 WHERE id = $2`, groupID, roomID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (p *PostgreSQL) AddPlayer(player *models.RoomPlayer) error {
	_, err := p.tx.Exec(`
        INSERT INTO room_players (id, room_id, name, gender, created_at)
        VALUES ($1, $2, $3, $4, $5)`,
		player.ID, player.RoomID, player.Name, player.Gender, player.CreatedAt)
	return err
}

func (p *PostgreSQL) ListPlayers(roomID string) ([]models.RoomPlayer, error) {
	rows, err := p.tx.Query(`
        SELECT id, room_id, name, gender, created_at
        FROM room_players WHERE room_id = $1 ORDER BY created_at ASC`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []models.RoomPlayer
	for rows.Next() {
		var player models.RoomPlayer
		if err := rows.Scan(&player.ID, &player.RoomID, &player.Name,
			&player.Gender, &player.CreatedAt); err != nil {
			return nil, err
		}
		players = append(players, player)
	}
	return players, rows.Err()
}

func (p *PostgreSQL) RemovePlayer(roomID, playerID string) error {
	_, err := p.tx.Exec(`DELETE FROM room_players WHERE id = $1 AND room_id = $2`, playerID, roomID)
	return err
}

func (p *PostgreSQL) CountRooms() (int64, error) {
	var count int64
	err := p.tx.QueryRow(`SELECT COUNT(*) FROM rooms`).Scan(&count)
	return count, err
}

// --- Rounds ---

func (p *PostgreSQL) CreateRound(round *models.Round) error {
	_, err := p.tx.Exec(`
        INSERT INTO rounds (id, room_id, player_id, card_id, card_text, card_type, level, pack_id, status, created_at)
        VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10)`,
		round.ID, round.RoomID, round.PlayerID, round.Card.CardID, round.Card.Text,
		round.Card.Type, round.Card.Level, round.Card.PackID, round.Status, round.CreatedAt)
	return err
}

func (p *PostgreSQL) GetRound(id string) (*models.Round, error) {
	var round models.Round
	err := p.tx.QueryRow(`
        SELECT id, room_id, player_id, COALESCE(card_id, ''), card_text, card_type, level, pack_id, status, created_at
        FROM rounds WHERE id = $1`, id).
		Scan(&round.ID, &round.RoomID, &round.PlayerID, &round.Card.CardID,
			&round.Card.Text, &round.Card.Type, &round.Card.Level, &round.Card.PackID,
			&round.Status, &round.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &round, nil
}

func (p *PostgreSQL) ListRounds(roomID string) ([]models.Round, error) {
	rows, err := p.tx.Query(`
        SELECT id, room_id, player_id, COALESCE(card_id, ''), card_text, card_type, level, pack_id, status, created_at
        FROM rounds WHERE room_id = $1 ORDER BY created_at DESC`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rounds []models.Round
	for rows.Next() {
		var round models.Round
		if err := rows.Scan(&round.ID, &round.RoomID, &round.PlayerID, &round.Card.CardID,
			&round.Card.Text, &round.Card.Type, &round.Card.Level, &round.Card.PackID,
			&round.Status, &round.CreatedAt); err != nil {
			return nil, err
		}
		rounds = append(rounds, round)
	}
	return rounds, rows.Err()
}

func (p *PostgreSQL) SetRoundStatus(roundID, roomID string, status models.RoundStatus) error {
	res, err := p.tx.Exec(
		`UPDATE rounds SET status = $1 WHERE id = $2 AND room_id = $3`,
		status, roundID, roomID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// --- Proofs and votes ---

func (p *PostgreSQL) CreateProof(proof *models.Proof) error {
	_, err := p.tx.Exec(`
        INSERT INTO proofs (id, room_id, created_by, round_id, status, created_at)
        VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)`,
		proof.ID, proof.RoomID, proof.CreatedBy, proof.RoundID, proof.Status, proof.CreatedAt)
	return err
}

func (p *PostgreSQL) GetProof(id string) (*models.Proof, error) {
	var proof models.Proof
	err := p.tx.QueryRow(`
        SELECT id, room_id, created_by, COALESCE(round_id, ''), status,
               COALESCE(ref_chat_id, ''), COALESCE(ref_message_id, ''), created_at
        FROM proofs WHERE id = $1`, id).
		Scan(&proof.ID, &proof.RoomID, &proof.CreatedBy, &proof.RoundID, &proof.Status,
			&proof.Ref.ChatID, &proof.Ref.MessageID, &proof.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &proof, nil
}

func (p *PostgreSQL) GetProofForUpdate(id string) (*models.Proof, error) {
	var proof models.Proof
	err := p.tx.QueryRow(`
        SELECT id, room_id, created_by, COALESCE(round_id, ''), status,
               COALESCE(ref_chat_id, ''), COALESCE(ref_message_id, ''), created_at
        FROM proofs WHERE id = $1 FOR UPDATE`, id).
		Scan(&proof.ID, &proof.RoomID, &proof.CreatedBy, &proof.RoundID, &proof.Status,
			&proof.Ref.ChatID, &proof.Ref.MessageID, &proof.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &proof, nil
}

func (p *PostgreSQL) SetProofStatus(proofID string, status models.ProofStatus) error {
	res, err := p.tx.Exec(`UPDATE proofs SET status = $1 WHERE id = $2`, status, proofID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (p *PostgreSQL) SetProofRef(proofID string, ref models.ExternalRef) error {
	res, err := p.tx.Exec(
		`UPDATE proofs SET ref_chat_id = $1, ref_message_id = $2 WHERE id = $3`,
		ref.ChatID, ref.MessageID, proofID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (p *PostgreSQL) UpsertVote(vote *models.Vote) error {
	_, err := p.tx.Exec(`
        INSERT INTO votes (proof_id, voter_id, value, created_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (proof_id, voter_id) DO UPDATE SET value = EXCLUDED.value`,
		vote.ProofID, vote.VoterID, vote.Value, vote.CreatedAt)
	return err
}

func (p *PostgreSQL) ListVotes(proofID string) ([]models.Vote, error) {
	rows, err := p.tx.Query(
		`SELECT proof_id, voter_id, value, created_at FROM votes WHERE proof_id = $1`, proofID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var votes []models.Vote
	for rows.Next() {
		var vote models.Vote
		if err := rows.Scan(&vote.ProofID, &vote.VoterID, &vote.Value, &vote.CreatedAt); err != nil {
			return nil, err
		}
		votes = append(votes, vote)
	}
	return votes, rows.Err()
}

// --- Lifecycle ---

// Transaction 添加事务支持
func (p *PostgreSQL) Transaction(fn func(tx Store) error) error {
	tx, err := p.raw.Begin()
	if err != nil {
		return err
	}
	if err := fn(&PostgreSQL{db: p.db, tx: tx, raw: p.raw}); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}

func requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrRecordNotFound
	}
	return nil
}
