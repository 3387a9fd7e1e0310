package repository

import (
	"context"

	"gorm.io/gorm"
)

// Tx exposes the repositories that may take part in one atomic write.
type Tx struct {
	Assignments  AssignmentRepository
	SeatReleases SeatReleaseRepository
	Attendance   AttendanceRepository
	Recoveries   RecoveryRepository
}

// Transactor runs multi-table writes atomically. fn receives the context
// bound to the transaction and must use it for every call.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type transactor struct {
	db *gorm.DB
}

// NewTransactor constructs a GORM-backed transactor.
func NewTransactor(db *gorm.DB) Transactor {
	return &transactor{db: db}
}

func (t *transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return t.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(ctx, Tx{
			Assignments:  NewAssignmentRepository(db),
			SeatReleases: NewSeatReleaseRepository(db),
			Attendance:   NewAttendanceRepository(db),
			Recoveries:   NewRecoveryRepository(db),
		})
	})
}
