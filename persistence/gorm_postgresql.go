// persistence/gorm_postgresql.go
package persistence

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/dareroom/gameserver/models"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	// 配置GORM日志
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// 自动迁移表结构
	if err := autoMigrate(db); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

// autoMigrate 自动迁移表结构
func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Pack{},
		&models.Card{},
		&models.Room{},
		&models.RoomPlayer{},
		&models.Round{},
		&models.Proof{},
		&models.Vote{},
	)
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrRecordNotFound
	}
	return err
}

// --- Catalog ---

func (p *GormPostgreSQL) UpsertPack(pack *models.Pack) error {
	return p.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(pack).Error
}

func (p *GormPostgreSQL) ListPacks() ([]models.Pack, error) {
	var packs []models.Pack
	err := p.db.Order("paid ASC, title ASC").Find(&packs).Error
	return packs, err
}

func (p *GormPostgreSQL) GetPack(id string) (*models.Pack, error) {
	var pack models.Pack
	if err := p.db.First(&pack, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &pack, nil
}

func (p *GormPostgreSQL) DeletePacksExcept(keep []string) error {
	if len(keep) == 0 {
		if err := p.db.Where("1 = 1").Delete(&models.Card{}).Error; err != nil {
			return err
		}
		return p.db.Where("1 = 1").Delete(&models.Pack{}).Error
	}
	if err := p.db.Where("pack_id NOT IN ?", keep).Delete(&models.Card{}).Error; err != nil {
		return err
	}
	return p.db.Where("id NOT IN ?", keep).Delete(&models.Pack{}).Error
}

// ReplacePackCards swaps the whole card set of a pack in one transaction.
func (p *GormPostgreSQL) ReplacePackCards(packID string, cards []models.Card) error {
	return p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("pack_id = ?", packID).Delete(&models.Card{}).Error; err != nil {
			return err
		}
		if len(cards) == 0 {
			return nil
		}
		return tx.Create(&cards).Error
	})
}

func (p *GormPostgreSQL) CreateCard(card *models.Card) error {
	return p.db.Create(card).Error
}

func (p *GormPostgreSQL) DeleteCard(packID, cardID string) error {
	return p.db.Where("id = ? AND pack_id = ?", cardID, packID).Delete(&models.Card{}).Error
}

func (p *GormPostgreSQL) ListCards(packID string) ([]models.Card, error) {
	var cards []models.Card
	err := p.db.Where("pack_id = ?", packID).Order("level ASC").Find(&cards).Error
	return cards, err
}

// FindCards returns the eligible card set for a draw. An empty level
// means the level constraint is dropped.
func (p *GormPostgreSQL) FindCards(packID string, cardType models.CardType, level string) ([]models.Card, error) {
	var cards []models.Card
	q := p.db.Where("pack_id = ? AND type = ?", packID, cardType)
	if level != "" {
		q = q.Where("level = ?", level)
	}
	err := q.Find(&cards).Error
	return cards, err
}

func (p *GormPostgreSQL) CountPacks() (int64, error) {
	var count int64
	err := p.db.Model(&models.Pack{}).Count(&count).Error
	return count, err
}

// --- Rooms and players ---

func (p *GormPostgreSQL) CreateRoom(room *models.Room) error {
	return p.db.Create(room).Error
}

func (p *GormPostgreSQL) GetRoom(id string) (*models.Room, error) {
	var room models.Room
	if err := p.db.First(&room, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &room, nil
}

func (p *GormPostgreSQL) SetRoomGroup(roomID, groupID string) error {
	res := p.db.Model(&models.Room{}).Where("id = ?", roomID).Update("group_id", groupID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (p *GormPostgreSQL) AddPlayer(player *models.RoomPlayer) error {
	return p.db.Create(player).Error
}

func (p *GormPostgreSQL) ListPlayers(roomID string) ([]models.RoomPlayer, error) {
	var players []models.RoomPlayer
	err := p.db.Where("room_id = ?", roomID).Order("created_at ASC").Find(&players).Error
	return players, err
}

func (p *GormPostgreSQL) RemovePlayer(roomID, playerID string) error {
	return p.db.Where("id = ? AND room_id = ?", playerID, roomID).Delete(&models.RoomPlayer{}).Error
}

func (p *GormPostgreSQL) CountRooms() (int64, error) {
	var count int64
	err := p.db.Model(&models.Room{}).Count(&count).Error
	return count, err
}

// --- Rounds ---

func (p *GormPostgreSQL) CreateRound(round *models.Round) error {
	return p.db.Create(round).Error
}

func (p *GormPostgreSQL) GetRound(id string) (*models.Round, error) {
	var round models.Round
	if err := p.db.First(&round, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &round, nil
}

func (p *GormPostgreSQL) ListRounds(roomID string) ([]models.Round, error) {
	var rounds []models.Round
	err := p.db.Where("room_id = ?", roomID).Order("created_at DESC").Find(&rounds).Error
	return rounds, err
}

func (p *GormPostgreSQL) SetRoundStatus(roundID, roomID string, status models.RoundStatus) error {
	res := p.db.Model(&models.Round{}).
		Where("id = ? AND room_id = ?", roundID, roomID).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// --- Proofs and votes ---

func (p *GormPostgreSQL) CreateProof(proof *models.Proof) error {
	return p.db.Create(proof).Error
}

func (p *GormPostgreSQL) GetProof(id string) (*models.Proof, error) {
	var proof models.Proof
	if err := p.db.First(&proof, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &proof, nil
}

func (p *GormPostgreSQL) GetProofForUpdate(id string) (*models.Proof, error) {
	var proof models.Proof
	err := p.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&proof, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &proof, nil
}

func (p *GormPostgreSQL) SetProofStatus(proofID string, status models.ProofStatus) error {
	res := p.db.Model(&models.Proof{}).Where("id = ?", proofID).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (p *GormPostgreSQL) SetProofRef(proofID string, ref models.ExternalRef) error {
	res := p.db.Model(&models.Proof{}).Where("id = ?", proofID).Updates(map[string]interface{}{
		"ref_chat_id":    ref.ChatID,
		"ref_message_id": ref.MessageID,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// UpsertVote keeps at most one row per (proof, voter); a repeated vote
// overwrites the previous value.
func (p *GormPostgreSQL) UpsertVote(vote *models.Vote) error {
	return p.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "proof_id"}, {Name: "voter_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(vote).Error
}

func (p *GormPostgreSQL) ListVotes(proofID string) ([]models.Vote, error) {
	var votes []models.Vote
	err := p.db.Where("proof_id = ?", proofID).Find(&votes).Error
	return votes, err
}

// --- Lifecycle ---

// Transaction 添加事务支持
func (p *GormPostgreSQL) Transaction(fn func(tx Store) error) error {
	return p.db.Transaction(func(tx *gorm.DB) error {
		return fn(&GormPostgreSQL{db: tx})
	})
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
