// models/entities.go
package models

import (
	"time"

	"github.com/lib/pq"
)

// Pack 卡包模型
type Pack struct {
	ID    string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Title string `gorm:"not null" json:"title"`
	Paid  bool   `gorm:"not null;default:false" json:"paid"`
	Price string `gorm:"not null;default:''" json:"price"`
	// Levels is the ordered set of difficulty levels this pack serves.
	Levels pq.StringArray `gorm:"type:text[]" json:"levels"`
	Mode   PackMode       `gorm:"type:varchar(16);not null;default:'offline'" json:"mode"`
}

// Card 卡片模型
type Card struct {
	ID             string       `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Type           CardType     `gorm:"type:varchar(16);index;not null" json:"type"`
	Text           string       `gorm:"not null" json:"text"`
	Level          string       `gorm:"type:varchar(32);not null" json:"level"`
	PackID         string       `gorm:"type:varchar(64);index;not null" json:"packId"`
	RequiresTarget bool         `gorm:"not null;default:false" json:"requiresTarget"`
	TargetGender   TargetGender `gorm:"type:varchar(8)" json:"targetGender,omitempty"`
}

// Room 房间模型
type Room struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	CreatedBy string    `gorm:"not null" json:"createdBy"`
	GroupID   string    `gorm:"type:varchar(64)" json:"groupId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// RoomPlayer 房间内的玩家，created_at 顺序即座位顺序
type RoomPlayer struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	RoomID    string    `gorm:"type:varchar(64);index;not null" json:"roomId"`
	Name      string    `gorm:"not null" json:"name"`
	Gender    Gender    `gorm:"type:varchar(8);not null" json:"gender"`
	CreatedAt time.Time `json:"-"`
}

// CardSnapshot is the denormalized copy of a card a round carries.
// The round owns the value, so later edits to the card never change
// what was dealt.
type CardSnapshot struct {
	CardID string   `gorm:"type:varchar(64)" json:"cardId,omitempty"`
	Text   string   `gorm:"column:card_text;not null" json:"cardText"`
	Type   CardType `gorm:"column:card_type;type:varchar(16);not null" json:"cardType"`
	Level  string   `gorm:"type:varchar(32);not null" json:"level"`
	PackID string   `gorm:"type:varchar(64);not null" json:"packId"`
}

// Round 回合模型：一个玩家的一次出牌
type Round struct {
	ID       string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	RoomID   string `gorm:"type:varchar(64);index;not null" json:"roomId"`
	PlayerID string `gorm:"type:varchar(64);not null" json:"playerId"`
	// PlayerName is resolved from room_players when listing history;
	// it is not stored on the round.
	PlayerName string       `gorm:"-" json:"playerName,omitempty"`
	Card       CardSnapshot `gorm:"embedded" json:"card"`
	Status     RoundStatus  `gorm:"type:varchar(16);not null" json:"status"`
	CreatedAt  time.Time    `json:"createdAt"`
}

// ExternalRef points at where proof media was posted, e.g. a chat and
// message id in the relay group.
type ExternalRef struct {
	ChatID    string `gorm:"column:ref_chat_id;type:varchar(64)" json:"chatId,omitempty"`
	MessageID string `gorm:"column:ref_message_id;type:varchar(64)" json:"messageId,omitempty"`
}

func (r ExternalRef) IsZero() bool {
	return r.ChatID == "" && r.MessageID == ""
}

// Proof 完成证明模型
type Proof struct {
	ID        string      `gorm:"primaryKey;type:varchar(64)" json:"id"`
	RoomID    string      `gorm:"type:varchar(64);index;not null" json:"roomId"`
	CreatedBy string      `gorm:"not null" json:"createdBy"`
	RoundID   string      `gorm:"type:varchar(64)" json:"roundId,omitempty"`
	Status    ProofStatus `gorm:"type:varchar(16);not null" json:"status"`
	Ref       ExternalRef `gorm:"embedded" json:"ref"`
	CreatedAt time.Time   `json:"createdAt"`
}

// Vote 投票模型：每个 (proof, voter) 至多一行
type Vote struct {
	ProofID   string    `gorm:"primaryKey;type:varchar(64)" json:"proofId"`
	VoterID   string    `gorm:"primaryKey;type:varchar(64)" json:"voterId"`
	Value     VoteValue `gorm:"type:varchar(8);not null" json:"value"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName overrides the table name
func (Vote) TableName() string {
	return "votes"
}
