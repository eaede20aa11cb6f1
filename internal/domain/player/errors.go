package player

import "errors"

var (
	// ErrPlayerNotFound indicates the player doesn't exist.
	ErrPlayerNotFound = errors.New("player not found")
	// ErrCardNotFound indicates a card doesn't exist or belongs to someone else.
	ErrCardNotFound = errors.New("card not found")
	// ErrCardBusy indicates a card is already committed to an open activity.
	ErrCardBusy = errors.New("card is busy")
	// ErrInsufficientResources indicates a debit would overdraw a balance.
	ErrInsufficientResources = errors.New("insufficient resources")
	// ErrInvalidInput indicates invalid player input.
	ErrInvalidInput = errors.New("invalid player input")
	// ErrUnknownStat indicates a counter outside the closed Stat set.
	ErrUnknownStat = errors.New("unknown stat")
)
