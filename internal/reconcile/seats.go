package reconcile

import (
	"time"

	"github.com/noah-isme/academy-reconcile-api/internal/models"
)

// Seat policy. Fixed per class kind rather than configured per class.
const (
	IndividualMaxSeats = 1
	GroupMaxSeats      = 4
)

// Seats is the capacity picture of one class on a given day.
type Seats struct {
	ClassID            uint `json:"class_id"`
	MaxSeats           int  `json:"max_seats"`
	AssignedCount      int  `json:"assigned_count"`
	ActiveReleaseCount int  `json:"active_release_count"`
	AvailableCount     int  `json:"available_count"`
	FreeSeats          int  `json:"free_seats"`
	IsIncomplete       bool `json:"is_incomplete"`
}

// MaxSeatsFor returns the seat policy for a class.
func MaxSeatsFor(class models.TeachingClass) int {
	if ClassifyClass(class).Kind == models.ClassKindIndividual {
		return IndividualMaxSeats
	}
	return GroupMaxSeats
}

// ComputeSeats resolves the capacity of a class. Assignments and releases of
// other classes are ignored. A release only counts when it is active on the day
// and its student holds an assignment on the class, so releases can never
// suppress more seats than are assigned.
func ComputeSeats(class models.TeachingClass, assignments []models.ClassAssignment, releases []models.SeatRelease, on time.Time) Seats {
	day := Day(on)

	holders := make(map[uint]struct{})
	assigned := 0
	for _, assignment := range assignments {
		if assignment.ClassID != class.ID {
			continue
		}
		assigned++
		holders[assignment.StudentID] = struct{}{}
	}

	released := make(map[uint]struct{})
	for _, release := range releases {
		if release.ClassID != class.ID || !release.ActiveOn(day) {
			continue
		}
		if _, holds := holders[release.StudentID]; holds {
			released[release.StudentID] = struct{}{}
		}
	}

	maxSeats := MaxSeatsFor(class)
	available := assigned - len(released)
	if available < 0 {
		available = 0
	}
	free := maxSeats - available
	if free < 0 {
		free = 0
	}

	return Seats{
		ClassID:            class.ID,
		MaxSeats:           maxSeats,
		AssignedCount:      assigned,
		ActiveReleaseCount: len(released),
		AvailableCount:     available,
		FreeSeats:          free,
		IsIncomplete:       available < maxSeats,
	}
}

// ComputeSeatsByClass runs ComputeSeats for every class and indexes the result by class id.
func ComputeSeatsByClass(classes []models.TeachingClass, assignments []models.ClassAssignment, releases []models.SeatRelease, on time.Time) map[uint]Seats {
	byClassAssignments := make(map[uint][]models.ClassAssignment)
	for _, assignment := range assignments {
		byClassAssignments[assignment.ClassID] = append(byClassAssignments[assignment.ClassID], assignment)
	}
	byClassReleases := make(map[uint][]models.SeatRelease)
	for _, release := range releases {
		byClassReleases[release.ClassID] = append(byClassReleases[release.ClassID], release)
	}

	result := make(map[uint]Seats, len(classes))
	for _, class := range classes {
		result[class.ID] = ComputeSeats(class, byClassAssignments[class.ID], byClassReleases[class.ID], on)
	}
	return result
}

// ExcessSeats is how many assignments exceed the class policy.
func (s Seats) ExcessSeats() int {
	if s.AssignedCount > s.MaxSeats {
		return s.AssignedCount - s.MaxSeats
	}
	return 0
}
