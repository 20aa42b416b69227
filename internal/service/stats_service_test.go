package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidyalay/vidyalay-api/internal/models"
)

type aggregatesStub struct {
	counts     []models.StudentAttendanceCount
	daily      []models.DailyAttendanceCount
	classWise  []models.ClassAttendanceCount
	countsFrom *time.Time
	countsTo   *time.Time
}

func (s *aggregatesStub) CountsByStudents(_ context.Context, _ []string, from, to *time.Time) ([]models.StudentAttendanceCount, error) {
	s.countsFrom, s.countsTo = from, to
	return s.counts, nil
}

func (s *aggregatesStub) DailyPresentCounts(_ context.Context, _ []string, _, _ time.Time) ([]models.DailyAttendanceCount, error) {
	return s.daily, nil
}

func (s *aggregatesStub) ClassPresentCounts(_ context.Context, _ []string, _ models.DayWindow) ([]models.ClassAttendanceCount, error) {
	return s.classWise, nil
}

type rosterCounterStub struct {
	sizes []models.ClassRosterSize
}

func (s rosterCounterStub) RosterSizes(_ context.Context, _ []string) ([]models.ClassRosterSize, error) {
	return s.sizes, nil
}

func TestStatsServiceComputeStatsPercentages(t *testing.T) {
	agg := &aggregatesStub{counts: []models.StudentAttendanceCount{
		{StudentID: "stu-1", Present: 2, Total: 3},
		{StudentID: "stu-2", Present: 1, Total: 8},
	}}
	svc := NewStatsService(agg, rosterCounterStub{}, nil)

	stats, err := svc.ComputeStats(context.Background(), []string{"stu-1", "stu-2", "stu-3"}, nil, nil)
	require.NoError(t, err)
	require.Len(t, stats, 3)

	// 2 of 3 rounds up to 67, 1 of 8 rounds half up to 13.
	assert.Equal(t, 67, stats["stu-1"].Percentage)
	assert.Equal(t, 13, stats["stu-2"].Percentage)

	// Student with no rows still gets an entry at 0%.
	assert.Equal(t, 0, stats["stu-3"].Percentage)
	assert.Equal(t, 0, stats["stu-3"].RecordCount)
}

func TestStatsServiceComputeStatsEmptyInput(t *testing.T) {
	svc := NewStatsService(&aggregatesStub{}, rosterCounterStub{}, nil)

	stats, err := svc.ComputeStats(context.Background(), nil, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, stats)
}

func TestStatsServiceComputeTrendZeroFillsDays(t *testing.T) {
	today := time.Date(2026, 3, 9, 14, 30, 0, 0, time.UTC)
	agg := &aggregatesStub{daily: []models.DailyAttendanceCount{
		{Day: time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), Present: 4},
		{Day: time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), Present: 5},
	}}
	svc := NewStatsService(agg, rosterCounterStub{}, nil)
	svc.now = func() time.Time { return today }

	points, err := svc.ComputeTrend(context.Background(), []string{"a", "b", "c", "d", "e"}, 7)
	require.NoError(t, err)
	require.Len(t, points, 7)

	assert.Equal(t, "2026-03-03", points[0].Day)
	assert.Equal(t, 4, points[0].Present)
	assert.Equal(t, 80, points[0].Rate)

	// Days with no records appear with zero counts.
	for _, p := range points[1:6] {
		assert.Equal(t, 0, p.Present)
		assert.Equal(t, 5, p.Total)
		assert.Equal(t, 0, p.Rate)
	}

	assert.Equal(t, "2026-03-09", points[6].Day)
	assert.Equal(t, 100, points[6].Rate)
}

func TestStatsServiceComputeTrendNoStudents(t *testing.T) {
	svc := NewStatsService(&aggregatesStub{}, rosterCounterStub{}, nil)

	points, err := svc.ComputeTrend(context.Background(), nil, 7)
	require.NoError(t, err)
	require.Len(t, points, 7)
	for _, p := range points {
		assert.Equal(t, 0, p.Rate)
	}
}

func TestStatsServiceClassSnapshotPreservesOrder(t *testing.T) {
	agg := &aggregatesStub{classWise: []models.ClassAttendanceCount{
		{ClassID: "class-2", Present: 10},
		{ClassID: "class-1", Present: 3},
	}}
	sizes := rosterCounterStub{sizes: []models.ClassRosterSize{
		{ClassID: "class-1", Total: 4},
		{ClassID: "class-2", Total: 20},
	}}
	svc := NewStatsService(agg, sizes, nil)

	rows, err := svc.ClassSnapshot(context.Background(), []models.Class{
		{ID: "class-1", Name: "5A"},
		{ID: "class-2", Name: "5B"},
		{ID: "class-3", Name: "6A"},
	})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "5A", rows[0].ClassName)
	assert.Equal(t, 75, rows[0].Rate)
	assert.Equal(t, "5B", rows[1].ClassName)
	assert.Equal(t, 50, rows[1].Rate)
	assert.Equal(t, 0, rows[2].Rate)
}

func TestRateRoundsHalfUp(t *testing.T) {
	assert.Equal(t, 0, rate(0, 0))
	assert.Equal(t, 50, rate(1, 2))
	assert.Equal(t, 13, rate(1, 8))
	assert.Equal(t, 67, rate(2, 3))
	assert.Equal(t, 33, rate(1, 3))
	assert.Equal(t, 100, rate(7, 7))
}
