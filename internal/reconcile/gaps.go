package reconcile

import (
	"sort"
	"time"

	"github.com/noah-isme/academy-reconcile-api/internal/models"
)

// StructuralVacancyLimit caps the class-level fallback list.
const StructuralVacancyLimit = 5

// GapInput gathers the rows the absence gap calculator joins. Releases are the
// ones active on Today; seat accounting is evaluated on Today for every occurrence.
type GapInput struct {
	Classes     []models.TeachingClass
	Occurrences []models.ClassOccurrence
	Assignments []models.ClassAssignment
	Releases    []models.SeatRelease
	Attendance  []models.AttendanceRecord
	Window      Window
	Today       time.Time
}

// Absentee is a student absent on an occurrence date.
type Absentee struct {
	StudentID        uint                    `json:"student_id"`
	Status           models.AttendanceStatus `json:"status"`
	RecoveryEligible bool                    `json:"recovery_eligible"`
}

// OccurrenceGap describes an under-capacity class on a date. Structural gaps come
// from the class-level fallback and are anchored to the nearest future occurrence.
type OccurrenceGap struct {
	OccurrenceID     uint       `json:"occurrence_id"`
	ClassID          uint       `json:"class_id"`
	ClassName        string     `json:"class_name"`
	Date             time.Time  `json:"date"`
	Seats            Seats      `json:"seats"`
	Gap              int        `json:"gap"`
	Absentees        []Absentee `json:"absentees"`
	RecoverableSeats int        `json:"recoverable_seats"`
	Structural       bool       `json:"structural"`
}

type classDay struct {
	classID uint
	day     time.Time
}

// ComputeAbsenceGaps lists scheduled occurrences in the window whose class is
// below its seat policy, with the students absent on that date.
func ComputeAbsenceGaps(in GapInput) []OccurrenceGap {
	classes := indexClasses(in.Classes)
	seats := ComputeSeatsByClass(in.Classes, in.Assignments, in.Releases, in.Today)

	absences := make(map[classDay][]Absentee)
	for _, record := range in.Attendance {
		if !record.Status.IsAbsence() {
			continue
		}
		key := classDay{classID: record.ClassID, day: Day(record.Date)}
		absences[key] = append(absences[key], Absentee{
			StudentID:        record.StudentID,
			Status:           record.Status,
			RecoveryEligible: record.Status == models.AttendanceStatusJustifiedAbsence,
		})
	}

	gaps := make([]OccurrenceGap, 0)
	for _, occurrence := range in.Occurrences {
		if !occurrence.Scheduled() || !in.Window.Contains(occurrence.Date) {
			continue
		}
		class, ok := classes[occurrence.ClassID]
		if !ok {
			continue
		}
		classSeats := seats[class.ID]
		gap := classSeats.MaxSeats - classSeats.AvailableCount
		if gap <= 0 {
			continue
		}

		absentees := absences[classDay{classID: class.ID, day: Day(occurrence.Date)}]
		if absentees == nil {
			absentees = []Absentee{}
		}
		sort.Slice(absentees, func(i, j int) bool { return absentees[i].StudentID < absentees[j].StudentID })

		recoverable := 0
		for _, absentee := range absentees {
			if absentee.RecoveryEligible {
				recoverable++
			}
		}

		gaps = append(gaps, OccurrenceGap{
			OccurrenceID:     occurrence.ID,
			ClassID:          class.ID,
			ClassName:        class.Name,
			Date:             Day(occurrence.Date),
			Seats:            classSeats,
			Gap:              gap,
			Absentees:        absentees,
			RecoverableSeats: recoverable,
		})
	}

	sortGaps(gaps)
	return gaps
}

// RecoverySlots keeps the gaps that have at least one recovery-eligible absentee.
func RecoverySlots(gaps []OccurrenceGap) []OccurrenceGap {
	slots := make([]OccurrenceGap, 0)
	for _, gap := range gaps {
		if gap.RecoverableSeats > 0 {
			slots = append(slots, gap)
		}
	}
	return slots
}

// ComputeStructuralVacancies is the class-level view used when no dated
// occurrence qualifies: classes assigned below their policy, each anchored to
// its nearest scheduled occurrence on or after today. Classes without a future
// occurrence are left out. The list is capped at StructuralVacancyLimit.
func ComputeStructuralVacancies(in GapInput) []OccurrenceGap {
	today := Day(in.Today)
	seats := ComputeSeatsByClass(in.Classes, in.Assignments, in.Releases, today)

	anchors := make(map[uint]models.ClassOccurrence)
	for _, occurrence := range in.Occurrences {
		if !occurrence.Scheduled() || Day(occurrence.Date).Before(today) {
			continue
		}
		current, ok := anchors[occurrence.ClassID]
		if !ok || occurrence.Date.Before(current.Date) || (occurrence.Date.Equal(current.Date) && occurrence.ID < current.ID) {
			anchors[occurrence.ClassID] = occurrence
		}
	}

	vacancies := make([]OccurrenceGap, 0)
	for _, class := range in.Classes {
		classSeats := seats[class.ID]
		if classSeats.AssignedCount >= classSeats.MaxSeats {
			continue
		}
		anchor, ok := anchors[class.ID]
		if !ok {
			continue
		}
		vacancies = append(vacancies, OccurrenceGap{
			OccurrenceID: anchor.ID,
			ClassID:      class.ID,
			ClassName:    class.Name,
			Date:         Day(anchor.Date),
			Seats:        classSeats,
			Gap:          classSeats.MaxSeats - classSeats.AssignedCount,
			Absentees:    []Absentee{},
			Structural:   true,
		})
	}

	sortGaps(vacancies)
	if len(vacancies) > StructuralVacancyLimit {
		vacancies = vacancies[:StructuralVacancyLimit]
	}
	return vacancies
}

func sortGaps(gaps []OccurrenceGap) {
	sort.Slice(gaps, func(i, j int) bool {
		if !gaps[i].Date.Equal(gaps[j].Date) {
			return gaps[i].Date.Before(gaps[j].Date)
		}
		if gaps[i].ClassID != gaps[j].ClassID {
			return gaps[i].ClassID < gaps[j].ClassID
		}
		return gaps[i].OccurrenceID < gaps[j].OccurrenceID
	})
}

func indexClasses(classes []models.TeachingClass) map[uint]models.TeachingClass {
	index := make(map[uint]models.TeachingClass, len(classes))
	for _, class := range classes {
		index[class.ID] = class
	}
	return index
}
