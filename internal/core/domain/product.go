package domain

import "time"

type Product struct {
	ID        string
	Name      string
	Stock     int
	Version   int // optimistic locking
	CreatedAt time.Time
	UpdatedAt time.Time
}
