package service

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/vidyalay/vidyalay-api/internal/dto"
	"github.com/vidyalay/vidyalay-api/internal/models"
	appErrors "github.com/vidyalay/vidyalay-api/pkg/errors"
)

type attendanceAggregates interface {
	CountsByStudents(ctx context.Context, studentIDs []string, from, to *time.Time) ([]models.StudentAttendanceCount, error)
	DailyPresentCounts(ctx context.Context, studentIDs []string, from, to time.Time) ([]models.DailyAttendanceCount, error)
	ClassPresentCounts(ctx context.Context, classIDs []string, window models.DayWindow) ([]models.ClassAttendanceCount, error)
}

type rosterCounter interface {
	RosterSizes(ctx context.Context, classIDs []string) ([]models.ClassRosterSize, error)
}

// StatsService is the aggregation engine: it turns raw attendance rows
// into per-student percentages, daily trend series and per-class
// snapshots. All reads are bulk queries, never one per student.
type StatsService struct {
	records  attendanceAggregates
	students rosterCounter
	logger   *zap.Logger
	now      func() time.Time
}

// NewStatsService constructs the aggregation engine.
func NewStatsService(records attendanceAggregates, students rosterCounter, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{records: records, students: students, logger: logger, now: time.Now}
}

// ComputeStats aggregates present/total counts per student over the given
// window (nil bounds leave that side open). Every requested student gets
// an entry; students with no records yield 0%, not an error.
func (s *StatsService) ComputeStats(ctx context.Context, studentIDs []string, from, to *time.Time) (map[string]models.AttendanceStat, error) {
	stats := make(map[string]models.AttendanceStat, len(studentIDs))
	for _, id := range studentIDs {
		stats[id] = models.AttendanceStat{StudentID: id}
	}
	if len(studentIDs) == 0 {
		return stats, nil
	}

	counts, err := s.records.CountsByStudents(ctx, studentIDs, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate attendance")
	}
	for _, row := range counts {
		stats[row.StudentID] = models.NewAttendanceStat(row.StudentID, row.Present, row.Total)
	}
	return stats, nil
}

// ComputeTrend builds the trailing daily series for the given students,
// ending today. The denominator is the roster size, so a day with no
// records reports rate 0 rather than being dropped from the series.
func (s *StatsService) ComputeTrend(ctx context.Context, studentIDs []string, numDays int) ([]dto.TrendPoint, error) {
	if numDays <= 0 {
		numDays = 7
	}
	today := models.Day(s.now())
	start := today.AddDate(0, 0, -(numDays - 1))
	end := today.AddDate(0, 0, 1)

	presentByDay := make(map[time.Time]int, numDays)
	if len(studentIDs) > 0 {
		rows, err := s.records.DailyPresentCounts(ctx, studentIDs, start, end)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate trend")
		}
		for _, row := range rows {
			presentByDay[models.Day(row.Day)] = row.Present
		}
	}

	total := len(studentIDs)
	points := make([]dto.TrendPoint, 0, numDays)
	for day := start; day.Before(end); day = day.AddDate(0, 0, 1) {
		present := presentByDay[day]
		points = append(points, dto.TrendPoint{
			Day:     day.Format("2006-01-02"),
			Label:   day.Format("Mon"),
			Present: present,
			Total:   total,
			Rate:    rate(present, total),
		})
	}
	return points, nil
}

// ClassSnapshot reports today's present/total counts for each given class,
// preserving input order. Roster sizes and present tallies come from one
// bulk query each.
func (s *StatsService) ClassSnapshot(ctx context.Context, classes []models.Class) ([]dto.ClassAttendanceRow, error) {
	if len(classes) == 0 {
		return nil, nil
	}
	classIDs := make([]string, 0, len(classes))
	for _, class := range classes {
		classIDs = append(classIDs, class.ID)
	}

	window := models.NewDayWindow(s.now())
	counts, err := s.records.ClassPresentCounts(ctx, classIDs, window)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate class snapshot")
	}
	presentByClass := make(map[string]int, len(counts))
	for _, row := range counts {
		presentByClass[row.ClassID] = row.Present
	}

	sizes, err := s.students.RosterSizes(ctx, classIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count rosters")
	}
	totalByClass := make(map[string]int, len(sizes))
	for _, row := range sizes {
		totalByClass[row.ClassID] = row.Total
	}

	rows := make([]dto.ClassAttendanceRow, 0, len(classes))
	for _, class := range classes {
		present := presentByClass[class.ID]
		total := totalByClass[class.ID]
		rows = append(rows, dto.ClassAttendanceRow{
			ClassID:   class.ID,
			ClassName: class.Name,
			Present:   present,
			Total:     total,
			Rate:      rate(present, total),
		})
	}
	return rows, nil
}

func rate(present, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(present) / float64(total)))
}
