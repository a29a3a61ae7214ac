package economy

import "errors"

// Trade-path and lookup failures. All of them are raised before any state
// is touched, so a failed call leaves the item exactly as it was.
var (
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrMarketInactive    = errors.New("market inactive")
	ErrUnknownItem       = errors.New("unknown item")
	ErrUnknownCategory   = errors.New("unknown category")
	ErrUnknownMarket     = errors.New("unknown market")
	ErrDuplicateItem     = errors.New("duplicate item")
	ErrChildItem         = errors.New("child item has no price curve")
)
