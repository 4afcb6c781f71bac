package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/yieldplay/yieldplay/internal/domain"
	"github.com/yieldplay/yieldplay/internal/platform/chain"
)

// QuestService is the slice of the quest layer the handler needs.
type QuestService interface {
	Generate(ctx context.Context, address string) (domain.Quest, error)
	Accept(ctx context.Context, address, questID string) (domain.Quest, error)
	List(ctx context.Context, address string, opts domain.ListOpts) ([]domain.Quest, error)
	Hint(ctx context.Context, question string) (domain.Hint, error)
}

// QuestHandler serves quest generation, acceptance, and advisor hints.
type QuestHandler struct {
	quests QuestService
	logger *slog.Logger
}

// NewQuestHandler creates a QuestHandler with the given service and logger.
func NewQuestHandler(quests QuestService, logger *slog.Logger) *QuestHandler {
	return &QuestHandler{
		quests: quests,
		logger: logHandler(logger, "quest"),
	}
}

type generateQuestRequest struct {
	Address string `json:"address"`
}

// GenerateQuest asks the advisor for a new quest and stores it unaccepted.
// POST /api/quests/generate
func (h *QuestHandler) GenerateQuest(w http.ResponseWriter, r *http.Request) {
	var req generateQuestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}

	address, err := chain.NormalizeAddress(req.Address)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	quest, err := h.quests.Generate(r.Context(), address)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "quest generated",
		slog.String("quest_id", quest.ID),
		slog.String("address", address),
	)
	writeJSON(w, http.StatusCreated, renderQuest(quest))
}

type acceptQuestRequest struct {
	Address string `json:"address"`
}

// AcceptQuest links the quest to an open market with the same question,
// creating one when none exists. Accepting an accepted quest is a no-op.
// POST /api/quests/{id}/accept
func (h *QuestHandler) AcceptQuest(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing quest id")
		return
	}

	var req acceptQuestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}

	address, err := chain.NormalizeAddress(req.Address)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	quest, err := h.quests.Accept(r.Context(), address, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "quest accepted",
		slog.String("quest_id", quest.ID),
		slog.String("address", address),
	)
	writeJSON(w, http.StatusOK, renderQuest(quest))
}

// listQuestsResponse wraps the quest list with pagination metadata.
type listQuestsResponse struct {
	Quests []questJSON `json:"quests"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

// ListQuests returns a user's quests, most recent first.
// GET /api/quests?address=0x...&limit=50&offset=0
func (h *QuestHandler) ListQuests(w http.ResponseWriter, r *http.Request) {
	address, err := chain.NormalizeAddress(r.URL.Query().Get("address"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	opts := parseListOpts(r)

	quests, err := h.quests.List(r.Context(), address, opts)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listQuestsResponse{
		Quests: renderQuests(quests),
		Limit:  opts.Limit,
		Offset: opts.Offset,
	})
}

// Hint returns the advisor's probability estimate for a question. Advisor
// outages degrade to a neutral hint rather than an error.
// GET /api/hint?question=...
func (h *QuestHandler) Hint(w http.ResponseWriter, r *http.Request) {
	question := r.URL.Query().Get("question")

	hint, err := h.quests.Hint(r.Context(), question)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, hint)
}
