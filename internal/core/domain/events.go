package domain

import "time"

type CartPurchased struct {
	EventID    string
	CartID     string
	UserID     string
	LineCount  int
	OccurredAt time.Time
}

type LineStatusChanged struct {
	EventID    string
	CartID     string
	ProductID  string
	From       LineStatus
	To         LineStatus
	ActorID    string
	OccurredAt time.Time
}
