// models/models.go
package models

// CardType 卡片类型
type CardType string

const (
	CardTypeTruth CardType = "truth"
	CardTypeDare  CardType = "dare"
)

func (t CardType) Valid() bool {
	return t == CardTypeTruth || t == CardTypeDare
}

// PackMode 决定一个卡包是线下玩法还是线上(需要证明)玩法
type PackMode string

const (
	PackModeOffline PackMode = "offline"
	PackModeOnline  PackMode = "online"
)

// Gender of a room player, used to match cards with a target_gender
// restriction.
type Gender string

const (
	GenderMale   Gender = "m"
	GenderFemale Gender = "f"
)

func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// TargetGender restricts who a card may be aimed at.
type TargetGender string

const (
	TargetMale   TargetGender = "m"
	TargetFemale TargetGender = "f"
	TargetAny    TargetGender = "any"
)

// RoundStatus 回合状态
type RoundStatus string

const (
	RoundAssigned  RoundStatus = "assigned"
	RoundCompleted RoundStatus = "completed"
	RoundSkipped   RoundStatus = "skipped"
)

func (s RoundStatus) Valid() bool {
	return s == RoundAssigned || s == RoundCompleted || s == RoundSkipped
}

// ProofStatus 证明状态
type ProofStatus string

const (
	ProofPending  ProofStatus = "pending"
	ProofApproved ProofStatus = "approved"
	ProofRejected ProofStatus = "rejected"
)

// VoteValue is a single voter's verdict on a proof.
type VoteValue string

const (
	VoteYes VoteValue = "yes"
	VoteNo  VoteValue = "no"
)

func (v VoteValue) Valid() bool {
	return v == VoteYes || v == VoteNo
}
