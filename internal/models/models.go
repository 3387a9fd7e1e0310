package models

// All lists every persisted model, in dependency order, for auto-migration.
func All() []interface{} {
	return []interface{}{
		&Student{},
		&TeachingClass{},
		&ClassOccurrence{},
		&ClassAssignment{},
		&Payment{},
		&AttendanceRecord{},
		&SeatRelease{},
		&RecoverySession{},
		&ActivityLog{},
	}
}
