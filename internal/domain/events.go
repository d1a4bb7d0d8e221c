package domain

import "time"

// Bus channels that domain events are published on. Observers (the WebSocket
// hub, notification fan-out) subscribe to these; nothing in the core acts on
// its own events.
const (
	ChannelMarkets     = "markets"
	ChannelBets        = "bets"
	ChannelSettlements = "settlements"
)

// Event names.
const (
	EventMarketCreated   = "market_created"
	EventBetPlaced       = "bet_placed"
	EventMarketResolved  = "market_resolved"
	EventWinningsClaimed = "winnings_claimed"
	EventBetCancelled    = "bet_cancelled"
)

// MarketCreated is emitted when a new market is opened.
type MarketCreated struct {
	Event     string    `json:"event"`
	MarketID  string    `json:"market_id"`
	EventID   string    `json:"event_id"`
	StartTime time.Time `json:"start_time"`
}

// BetPlaced is emitted after a stake is deposited into escrow and counted.
type BetPlaced struct {
	Event       string  `json:"event"`
	Participant Address `json:"participant"`
	MarketID    string  `json:"market_id"`
	Outcome     Outcome `json:"outcome"`
	Amount      uint64  `json:"amount"`
}

// MarketResolved is emitted once per market, when the authority commits the
// winning outcome.
type MarketResolved struct {
	Event          string  `json:"event"`
	MarketID       string  `json:"market_id"`
	WinningOutcome Outcome `json:"winning_outcome"`
	TotalPool      uint64  `json:"total_pool"`
}

// WinningsClaimed is emitted when a winning bet is paid out.
type WinningsClaimed struct {
	Event       string  `json:"event"`
	Participant Address `json:"participant"`
	MarketID    string  `json:"market_id"`
	Amount      uint64  `json:"amount"`
}

// BetCancelled is emitted when a stake is refunded before the event.
type BetCancelled struct {
	Event       string  `json:"event"`
	Participant Address `json:"participant"`
	MarketID    string  `json:"market_id"`
	Refund      uint64  `json:"refund"`
}
