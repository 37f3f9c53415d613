// persistence/interface.go
package persistence

import (
	"fmt"

	"github.com/dareroom/gameserver/models"
)

// Store 数据库接口
type Store interface {
	// Catalog
	UpsertPack(pack *models.Pack) error
	ListPacks() ([]models.Pack, error)
	GetPack(id string) (*models.Pack, error)
	DeletePacksExcept(keep []string) error
	ReplacePackCards(packID string, cards []models.Card) error
	CreateCard(card *models.Card) error
	DeleteCard(packID, cardID string) error
	ListCards(packID string) ([]models.Card, error)
	FindCards(packID string, cardType models.CardType, level string) ([]models.Card, error)
	CountPacks() (int64, error)

	// Rooms and players
	CreateRoom(room *models.Room) error
	GetRoom(id string) (*models.Room, error)
	SetRoomGroup(roomID, groupID string) error
	AddPlayer(player *models.RoomPlayer) error
	ListPlayers(roomID string) ([]models.RoomPlayer, error)
	RemovePlayer(roomID, playerID string) error
	CountRooms() (int64, error)

	// Rounds
	CreateRound(round *models.Round) error
	GetRound(id string) (*models.Round, error)
	ListRounds(roomID string) ([]models.Round, error)
	SetRoundStatus(roundID, roomID string, status models.RoundStatus) error

	// Proofs and votes
	CreateProof(proof *models.Proof) error
	GetProof(id string) (*models.Proof, error)
	// GetProofForUpdate reads the proof holding its row lock until the
	// surrounding transaction ends, so vote transactions on one proof
	// serialize across processes. Only valid inside Transaction.
	GetProofForUpdate(id string) (*models.Proof, error)
	SetProofStatus(proofID string, status models.ProofStatus) error
	SetProofRef(proofID string, ref models.ExternalRef) error
	UpsertVote(vote *models.Vote) error
	ListVotes(proofID string) ([]models.Vote, error)

	// Transaction runs fn against a store bound to a single database
	// transaction. Rolls back when fn returns an error.
	Transaction(fn func(tx Store) error) error

	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = fmt.Errorf("record not found")
)
