// Package catalog keeps the card catalog in the database in step with
// pack files on disk and deals cards from it.
package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/dareroom/gameserver/logger"
	"github.com/dareroom/gameserver/models"
	"github.com/dareroom/gameserver/persistence"
)

// OnlineSuffix marks a pack file whose rounds are verified by group
// vote instead of on-device confirmation.
const OnlineSuffix = "_online"

var (
	blockComments = regexp.MustCompile(`/\*[\s\S]*?\*/`)
	lineComments  = regexp.MustCompile(`(?m)(^|[^:])//.*$`)
)

// packFile is the on-disk pack document.
type packFile struct {
	Pack struct {
		ID     string   `json:"id"`
		Title  string   `json:"title"`
		Paid   bool     `json:"paid"`
		Price  string   `json:"price"`
		Levels []string `json:"levels"`
	} `json:"pack"`
	Cards []struct {
		ID             string              `json:"id"`
		Type           models.CardType     `json:"type"`
		Text           string              `json:"text"`
		Level          string              `json:"level"`
		RequiresTarget bool                `json:"requiresTarget"`
		TargetGender   models.TargetGender `json:"targetGender"`
	} `json:"cards"`
}

// Syncer mirrors the packs directory into the store.
type Syncer struct {
	store persistence.Store
	dir   string
}

func NewSyncer(store persistence.Store, dir string) *Syncer {
	return &Syncer{store: store, dir: dir}
}

// Sync loads every pack file, upserts it, and removes packs whose file
// disappeared. When the directory holds no pack files at all, the
// built-in starter catalog is installed once instead.
func (s *Syncer) Sync() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}

	var synced []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		packID, err := s.syncFile(entry.Name())
		if err != nil {
			logger.Log.Warnf("Skipping pack file %s: %v", entry.Name(), err)
			continue
		}
		synced = append(synced, packID)
	}

	if len(synced) == 0 {
		count, err := s.store.CountPacks()
		if err != nil {
			return err
		}
		if count == 0 {
			return s.seed()
		}
		return nil
	}

	return s.store.DeletePacksExcept(synced)
}

func (s *Syncer) syncFile(filename string) (string, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, filename))
	if err != nil {
		return "", err
	}

	cleaned := blockComments.ReplaceAllString(string(raw), "")
	cleaned = lineComments.ReplaceAllString(cleaned, "$1")

	var doc packFile
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return "", err
	}

	packID := strings.TrimSuffix(filename, ".json")
	mode := models.PackModeOffline
	if strings.HasSuffix(packID, OnlineSuffix) {
		mode = models.PackModeOnline
	}

	pack := &models.Pack{
		ID:     packID,
		Title:  doc.Pack.Title,
		Paid:   doc.Pack.Paid,
		Price:  doc.Pack.Price,
		Levels: doc.Pack.Levels,
		Mode:   mode,
	}
	if pack.Title == "" {
		pack.Title = packID
	}
	if err := s.store.UpsertPack(pack); err != nil {
		return "", err
	}

	cards := make([]models.Card, 0, len(doc.Cards))
	for _, c := range doc.Cards {
		if !c.Type.Valid() || c.Text == "" || c.Level == "" {
			logger.Log.Warnf("Dropping malformed card in %s", filename)
			continue
		}
		id := c.ID
		if id == "" {
			id = uuid.New().String()
		}
		cards = append(cards, models.Card{
			ID:             id,
			Type:           c.Type,
			Text:           c.Text,
			Level:          c.Level,
			PackID:         packID,
			RequiresTarget: c.RequiresTarget,
			TargetGender:   c.TargetGender,
		})
	}
	if err := s.store.ReplacePackCards(packID, cards); err != nil {
		return "", err
	}
	return packID, nil
}

// seed installs the starter catalog.
func (s *Syncer) seed() error {
	logger.Log.Info("Installing starter card catalog")

	base := &models.Pack{
		ID:     "base",
		Title:  "Starter Pack",
		Paid:   false,
		Price:  "Free",
		Levels: []string{"light", "medium"},
		Mode:   models.PackModeOffline,
	}
	party := &models.Pack{
		ID:     "party" + OnlineSuffix,
		Title:  "Party Night",
		Paid:   true,
		Price:  "50 ⭐",
		Levels: []string{"light", "medium", "bold"},
		Mode:   models.PackModeOnline,
	}
	for _, pack := range []*models.Pack{base, party} {
		if err := s.store.UpsertPack(pack); err != nil {
			return err
		}
	}

	baseCards := []models.Card{
		{ID: "b_t1", Type: models.CardTypeTruth, Text: "What is the last thing you were genuinely proud of?", Level: "light", PackID: base.ID},
		{ID: "b_t2", Type: models.CardTypeTruth, Text: "What would you change about yourself if you could?", Level: "medium", PackID: base.ID},
		{ID: "b_t3", Type: models.CardTypeTruth, Text: "What do you value most about the players in this room?", Level: "light", PackID: base.ID},
		{ID: "b_d1", Type: models.CardTypeDare, Text: "Give a compliment to {left}.", Level: "light", PackID: base.ID, RequiresTarget: true, TargetGender: models.TargetAny},
		{ID: "b_d2", Type: models.CardTypeDare, Text: "Tell the group three facts about yourself nobody here knows.", Level: "medium", PackID: base.ID},
		{ID: "b_d3", Type: models.CardTypeDare, Text: "Wish {right} something kind for the week ahead.", Level: "light", PackID: base.ID, RequiresTarget: true, TargetGender: models.TargetAny},
		{ID: "b_d4", Type: models.CardTypeDare, Text: "Shake hands with {opposite} and thank them.", Level: "light", PackID: base.ID, RequiresTarget: true, TargetGender: models.TargetAny},
		{ID: "b_d5", Type: models.CardTypeDare, Text: "Hug {player}, if they are comfortable with it.", Level: "medium", PackID: base.ID, RequiresTarget: true, TargetGender: models.TargetAny},
	}
	if err := s.store.ReplacePackCards(base.ID, baseCards); err != nil {
		return err
	}

	partyCards := []models.Card{
		{ID: "p_t1", Type: models.CardTypeTruth, Text: "What was your strangest first date?", Level: "medium", PackID: party.ID},
		{ID: "p_t2", Type: models.CardTypeTruth, Text: "Describe your ideal way to flirt in two sentences.", Level: "light", PackID: party.ID},
		{ID: "p_t3", Type: models.CardTypeTruth, Text: "Who in this room would you take on a road trip and why?", Level: "bold", PackID: party.ID},
		{ID: "p_d1", Type: models.CardTypeDare, Text: "Teach {right} your best conversation opener.", Level: "light", PackID: party.ID, RequiresTarget: true, TargetGender: models.TargetAny},
		{ID: "p_d2", Type: models.CardTypeDare, Text: "Swap seats with {opposite} and hold eye contact for ten seconds.", Level: "bold", PackID: party.ID, RequiresTarget: true, TargetGender: models.TargetAny},
		{ID: "p_d3", Type: models.CardTypeDare, Text: "Tell {player} what first impression they made on you.", Level: "medium", PackID: party.ID, RequiresTarget: true, TargetGender: models.TargetAny},
	}
	return s.store.ReplacePackCards(party.ID, partyCards)
}
