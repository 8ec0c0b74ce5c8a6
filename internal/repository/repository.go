package repository

import (
	"parterre/internal/database"
)

type Repositories struct {
	Events *EventRepository
	Seats  *SeatRepository
	Holds  *HoldRepository
	Orders *OrderRepository
}

func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Events: NewEventRepository(db),
		Seats:  NewSeatRepository(db),
		Holds:  NewHoldRepository(db),
		Orders: NewOrderRepository(db),
	}
}
