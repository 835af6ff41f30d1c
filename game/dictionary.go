package game

import (
	"sort"
	"strings"

	"github.com/wfunc/impostor/models"
	"github.com/wfunc/impostor/utils"
)

// AddWordResult: Added is false when the word collided with an existing entry.
type AddWordResult struct {
	Added bool
	Entry *models.WordEntry
}

// AddWord submits a candidate secret word. A collision is not an error, but the
// submitter now knows a dictionary word and is kept out of the next impostor pool.
func (e *Engine) AddWord(room *models.Room, playerID, word, category string) (AddWordResult, error) {
	normalized := utils.NormalizeWord(word)
	if normalized == "" {
		return AddWordResult{}, ErrEmptyWord
	}
	player, ok := room.Players[playerID]
	if !ok {
		return AddWordResult{}, ErrPlayerNotFound
	}
	if _, exists := room.Dictionary[normalized]; exists {
		player.BlockedForImpostor = true
		return AddWordResult{Added: false}, nil
	}

	entry := models.WordEntry{
		Word:       strings.TrimSpace(word),
		Normalized: normalized,
		Category:   strings.TrimSpace(category),
		AuthorID:   playerID,
		CreatedAt:  e.now(),
	}
	room.Dictionary[normalized] = entry
	return AddWordResult{Added: true, Entry: &entry}, nil
}

// CanStartRound is the cheap check behind the lobby's start button.
func CanStartRound(room *models.Room) bool {
	return room.Status != models.RoomClosed &&
		room.Round == nil &&
		ActivePlayerCount(room) >= MinActivePlayers &&
		len(room.Dictionary) > 0
}

func sortedWords(room *models.Room) []models.WordEntry {
	words := make([]models.WordEntry, 0, len(room.Dictionary))
	for _, w := range room.Dictionary {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool { return words[i].Normalized < words[j].Normalized })
	return words
}
