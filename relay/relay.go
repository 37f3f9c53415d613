// Package relay is the Telegram side of proof verification: players
// send their proof media to the bot, the bot forwards it into the
// room's bound group and collects votes through inline buttons.
package relay

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dareroom/gameserver/logger"
	"github.com/dareroom/gameserver/models"
	"github.com/dareroom/gameserver/persistence"
	"github.com/dareroom/gameserver/services"
)

// proofCode matches "proof_id: <code>", "proofid <code>" or
// "#proof <code>" anywhere in a caption or message.
var proofCode = regexp.MustCompile(`(?i)(proof[_-]?id[:\s]*|#proof\s*)<?([A-Za-z0-9_-]{6,})>?`)

type Handler struct {
	bot        *tgbotapi.BotAPI
	store      persistence.Store
	proofs     *services.ProofService
	miniAppURL string
}

func NewHandler(bot *tgbotapi.BotAPI, store persistence.Store, proofs *services.ProofService, miniAppURL string) *Handler {
	return &Handler{bot: bot, store: store, proofs: proofs, miniAppURL: miniAppURL}
}

func (h *Handler) HandleUpdate(update tgbotapi.Update) {
	if update.Message != nil {
		h.handleMessage(update.Message)
	}
	if update.CallbackQuery != nil {
		h.handleCallback(update.CallbackQuery)
	}
}

func (h *Handler) handleMessage(message *tgbotapi.Message) {
	if message.IsCommand() && message.Command() == "start" {
		h.handleStart(message)
		return
	}
	if len(message.Photo) > 0 || message.Video != nil {
		h.handleProofMedia(message)
		return
	}
	if match := proofCode.FindStringSubmatch(message.Text); match != nil {
		h.reply(message, fmt.Sprintf(
			"Code %s accepted. Now send a photo or video with this code in the caption: #proof <ID>.",
			match[2]))
	}
}

// handleStart binds a group chat to a room when /start carries the
// room id as payload.
func (h *Handler) handleStart(message *tgbotapi.Message) {
	payload := strings.TrimSpace(message.CommandArguments())
	isGroup := message.Chat.IsGroup() || message.Chat.IsSuperGroup()

	if isGroup && payload != "" {
		groupID := strconv.FormatInt(message.Chat.ID, 10)
		if err := h.store.SetRoomGroup(payload, groupID); err != nil {
			if errors.Is(err, persistence.ErrRecordNotFound) {
				h.reply(message, "Unknown room id. Create the room first, then bind the group.")
				return
			}
			logger.Log.Errorf("Failed to bind group: %v", err)
			h.reply(message, "Could not bind the group, try again later.")
			return
		}
		h.reply(message, fmt.Sprintf("Group bound to room %s. Proofs will be posted here.", payload))
		return
	}

	h.reply(message, "Hi! I am the proof bot. Send me a photo or video with a proof_id code in the caption.")
}

func (h *Handler) handleProofMedia(message *tgbotapi.Message) {
	content := strings.TrimSpace(message.Caption + " " + message.Text)
	match := proofCode.FindStringSubmatch(content)
	if match == nil {
		h.reply(message, "I don't see a proof_id. Add it to the caption: #proof <ID>.")
		return
	}
	proofID := match[2]

	proof, err := h.proofs.GetProof(proofID)
	if err != nil {
		h.reply(message, "Unknown proof code. Check the id and try again.")
		return
	}
	room, err := h.store.GetRoom(proof.RoomID)
	if err != nil {
		logger.Log.Errorf("Room lookup failed for proof %s: %v", proofID, err)
		h.reply(message, "Could not process the proof, try again later.")
		return
	}
	if room.GroupID == "" {
		h.reply(message, "The room is not bound to a group yet. Ask the room creator to do that.")
		return
	}

	groupID, err := strconv.ParseInt(room.GroupID, 10, 64)
	if err != nil {
		logger.Log.Errorf("Room %s has a malformed group id %q", room.ID, room.GroupID)
		h.reply(message, "Could not process the proof, try again later.")
		return
	}

	copied, err := h.bot.CopyMessage(tgbotapi.NewCopyMessage(groupID, message.Chat.ID, message.MessageID))
	if err != nil {
		logger.Log.Errorf("Failed to forward proof %s: %v", proofID, err)
		h.reply(message, "Could not post to the group. Check the bot's permissions there.")
		return
	}

	if _, err := h.proofs.AttachExternalRef(proofID, models.ExternalRef{
		ChatID:    room.GroupID,
		MessageID: strconv.Itoa(copied.MessageID),
	}); err != nil {
		logger.Log.Errorf("Failed to attach reference to proof %s: %v", proofID, err)
	}

	vote := tgbotapi.NewMessage(groupID,
		fmt.Sprintf("Proof from player %s. Cast your votes:", proof.CreatedBy))
	vote.ReplyMarkup = h.voteKeyboard(proofID)
	if _, err := h.bot.Send(vote); err != nil {
		logger.Log.Errorf("Failed to post vote buttons for proof %s: %v", proofID, err)
		h.reply(message, "Could not post the vote buttons. Check the bot's permissions in the group.")
		return
	}

	h.reply(message, "Done! The proof was posted to the room's group.")
}

func (h *Handler) voteKeyboard(proofID string) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		{
			tgbotapi.NewInlineKeyboardButtonData("Approve", "vote:"+proofID+":yes"),
			tgbotapi.NewInlineKeyboardButtonData("Reject", "vote:"+proofID+":no"),
		},
	}
	if validTelegramURL(h.miniAppURL) {
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonURL("Open mini-app", h.miniAppURL),
		})
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// handleCallback feeds a button press into the consensus engine. The
// room creator's vote carries the tie-breaker flag.
func (h *Handler) handleCallback(query *tgbotapi.CallbackQuery) {
	parts := strings.Split(query.Data, ":")
	if len(parts) != 3 || parts[0] != "vote" {
		return
	}
	proofID, value := parts[1], models.VoteValue(parts[2])

	proof, err := h.proofs.GetProof(proofID)
	if err != nil {
		h.answer(query, "This vote is no longer valid.")
		return
	}
	room, err := h.store.GetRoom(proof.RoomID)
	if err != nil {
		h.answer(query, "This vote is no longer valid.")
		return
	}

	voterID := strconv.FormatInt(query.From.ID, 10)
	tieBreaker := room.CreatedBy == voterID

	result, err := h.proofs.CastVote(proofID, voterID, value, tieBreaker)
	if err != nil {
		logger.Log.Errorf("Vote on proof %s failed: %v", proofID, err)
		h.answer(query, "Could not record the vote, try again.")
		return
	}
	h.answer(query, fmt.Sprintf("Vote recorded. Now %d:%d", result.Yes, result.No))
}

func (h *Handler) reply(message *tgbotapi.Message, text string) {
	msg := tgbotapi.NewMessage(message.Chat.ID, text)
	if _, err := h.bot.Send(msg); err != nil {
		logger.Log.Errorf("Failed to send reply: %v", err)
	}
}

func (h *Handler) answer(query *tgbotapi.CallbackQuery, text string) {
	if _, err := h.bot.Request(tgbotapi.NewCallback(query.ID, text)); err != nil {
		logger.Log.Errorf("Failed to answer callback: %v", err)
	}
}

func validTelegramURL(url string) bool {
	return strings.HasPrefix(url, "https://") &&
		!strings.Contains(url, "localhost") &&
		!strings.Contains(url, "127.0.0.1")
}
