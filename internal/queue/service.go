package queue

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"backend-antrian-bank/internal/models"
	"backend-antrian-bank/internal/store"
	"backend-antrian-bank/internal/telemetry"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Config tunes the queue service. Zero value is usable.
type Config struct {
	// UniqueNumbers makes join retry number generation while the store already holds the number.
	UniqueNumbers bool
	NumberRetries int

	Generator *Generator
	Counter   store.JoinCounter

	// IsOpen gates join by time of day; nil means always open.
	IsOpen func(now time.Time) bool

	// OnChange runs after every successful mutation.
	OnChange func()
}

// Service implements the queue operations consumed by the customer and admin surfaces.
type Service struct {
	store store.QueueEntryStore
	cfg   Config
	gen   *Generator
	log   *zap.Logger

	now   func() time.Time
	newID func() string
}

func NewService(st store.QueueEntryStore, cfg Config, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	gen := cfg.Generator
	if gen == nil {
		gen = NewGenerator(nil)
	}
	if cfg.NumberRetries <= 0 {
		cfg.NumberRetries = 5
	}
	return &Service{
		store: st,
		cfg:   cfg,
		gen:   gen,
		log:   log,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

/*
|--------------------------------------------------------------------------
| Customer operations
|--------------------------------------------------------------------------
*/

// Join creates a waiting entry. Position is the random queue number suffix, not the queue depth.
func (s *Service) Join(ctx context.Context, req models.JoinQueueRequest) (*models.QueueEntry, error) {
	ctx, span := telemetry.StartSpan(ctx, "queue.join", attribute.String("service_type", req.ServiceType))
	defer span.End()

	name := strings.TrimSpace(req.Name)
	phone := strings.TrimSpace(req.Phone)
	serviceType := strings.TrimSpace(req.ServiceType)
	if name == "" || phone == "" || serviceType == "" {
		return nil, ErrMissingFields
	}

	if !s.IsOpen() {
		return nil, ErrBranchClosed
	}

	queueNumber, suffix, err := s.nextNumber(ctx, serviceType)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	entry := &models.QueueEntry{
		ID:                s.newID(),
		QueueNumber:       queueNumber,
		Name:              name,
		Phone:             phone,
		ServiceType:       models.ServiceType(serviceType),
		Branch:            strings.TrimSpace(req.Branch),
		Status:            models.StatusWaiting,
		Position:          suffix,
		EstimatedWaitTime: EstimateInitial(suffix),
		CreatedAt:         s.now().UTC(),
	}

	if err := s.store.Insert(ctx, entry); err != nil {
		s.log.Error("insert queue entry failed", zap.String("queue_number", queueNumber), zap.Error(err))
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}

	if s.cfg.Counter != nil {
		if _, err := s.cfg.Counter.Incr(ctx, entry.ServiceType); err != nil {
			s.log.Warn("join counter not updated", zap.String("service_type", serviceType), zap.Error(err))
		}
	}

	s.log.Info("customer joined queue",
		zap.String("queue_number", entry.QueueNumber),
		zap.String("service_type", serviceType),
		zap.Int("position", entry.Position),
	)
	s.changed()
	return entry, nil
}

// IsOpen reports whether join currently accepts customers.
func (s *Service) IsOpen() bool {
	return s.cfg.IsOpen == nil || s.cfg.IsOpen(s.now())
}

// Track returns the entry with people ahead and progress derived from its stored position.
func (s *Service) Track(ctx context.Context, queueNumber string) (*models.TrackResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "queue.track", attribute.String("queue_number", queueNumber))
	defer span.End()

	entry, err := s.get(ctx, queueNumber)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return ToTrackResponse(*entry), nil
}

// ToTrackResponse adds the derived fields to an entry.
func ToTrackResponse(e models.QueueEntry) *models.TrackResponse {
	return &models.TrackResponse{
		QueueEntry: e,
		TotalAhead: TotalAhead(e.Position),
		Progress:   Progress(e.Position),
	}
}

/*
|--------------------------------------------------------------------------
| Status
|--------------------------------------------------------------------------
*/

var transitions = map[models.Status][]models.Status{
	models.StatusWaiting: {models.StatusServing, models.StatusCancelled},
	models.StatusServing: {models.StatusCompleted},
}

// CanTransition reports whether from -> to is an edge of the status state machine.
func CanTransition(from, to models.Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// UpdateStatus moves the entry to status. Setting serving also moves it to position 1
// with a short wait, in the same store write.
func (s *Service) UpdateStatus(ctx context.Context, queueNumber, status string) (*models.QueueEntry, string, error) {
	ctx, span := telemetry.StartSpan(ctx, "queue.update_status",
		attribute.String("queue_number", queueNumber),
		attribute.String("status", status),
	)
	defer span.End()

	next, ok := models.ParseStatus(status)
	if !ok {
		return nil, "", fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	entry, err := s.get(ctx, queueNumber)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, "", err
	}

	updated, err := s.setStatus(ctx, entry, next)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, "", err
	}
	return updated, fmt.Sprintf("Status successfully updated to %s", next), nil
}

// Serve is the admin serve action, addressed by entry id.
func (s *Service) Serve(ctx context.Context, id string) (*models.QueueEntry, error) {
	ctx, span := telemetry.StartSpan(ctx, "queue.serve", attribute.String("id", id))
	defer span.End()

	entry, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = ErrEntryNotFound
		} else {
			err = s.storeErr(err, zap.String("id", id))
		}
		telemetry.RecordError(span, err)
		return nil, err
	}

	updated, err := s.setStatus(ctx, entry, models.StatusServing)
	if err != nil {
		telemetry.RecordError(span, err)
	}
	return updated, err
}

func (s *Service) setStatus(ctx context.Context, entry *models.QueueEntry, next models.Status) (*models.QueueEntry, error) {
	if entry.Status == next {
		return entry, nil
	}
	if !CanTransition(entry.Status, next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, entry.Status, next)
	}

	patch := models.EntryPatch{Status: &next}
	if next == models.StatusServing {
		position, wait := 1, ServingWaitMinutes
		patch.Position = &position
		patch.EstimatedWaitTime = &wait
	}

	updated, err := s.store.Update(ctx, entry.ID, patch)
	if err != nil {
		return nil, s.storeErr(err, zap.String("queue_number", entry.QueueNumber))
	}

	s.log.Info("queue status updated",
		zap.String("queue_number", entry.QueueNumber),
		zap.String("from", string(entry.Status)),
		zap.String("to", string(next)),
	)
	s.changed()
	return updated, nil
}

/*
|--------------------------------------------------------------------------
| Time and priority
|--------------------------------------------------------------------------
*/

// AdjustOptions - at least one field must be set
type AdjustOptions struct {
	PriorityPosition  *float64
	EstimatedWaitTime *int
}

// AdjustTime sets a new position (floored, at least 1) and/or wait time (at least 1 minute).
// Without a priority only the wait time changes.
func (s *Service) AdjustTime(ctx context.Context, queueNumber string, opts AdjustOptions) (*models.QueueEntry, string, error) {
	ctx, span := telemetry.StartSpan(ctx, "queue.adjust_time", attribute.String("queue_number", queueNumber))
	defer span.End()

	if opts.PriorityPosition == nil && opts.EstimatedWaitTime == nil {
		return nil, "", ErrNoAdjustment
	}
	if p := opts.PriorityPosition; p != nil {
		if math.IsNaN(*p) || math.IsInf(*p, 0) {
			return nil, "", fmt.Errorf("%w: priority must be a finite number", ErrValidation)
		}
		if *p >= MaxPosition+1 {
			return nil, "", fmt.Errorf("%w: priority must not exceed %d", ErrValidation, MaxPosition)
		}
	}
	if w := opts.EstimatedWaitTime; w != nil && *w > MaxWaitMinutes {
		return nil, "", fmt.Errorf("%w: estimated_wait_time must not exceed %d", ErrValidation, MaxWaitMinutes)
	}

	entry, err := s.get(ctx, queueNumber)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, "", err
	}

	var (
		patch   models.EntryPatch
		message string
	)
	if opts.EstimatedWaitTime != nil {
		wait := max(1, *opts.EstimatedWaitTime)
		patch.EstimatedWaitTime = &wait
		message = "Estimated wait time updated"
	}
	if opts.PriorityPosition != nil {
		position := max(1, int(math.Floor(*opts.PriorityPosition)))
		patch.Position = &position
		message = "Queue position and estimated time updated"
	}

	updated, err := s.store.Update(ctx, entry.ID, patch)
	if err != nil {
		err = s.storeErr(err, zap.String("queue_number", queueNumber))
		telemetry.RecordError(span, err)
		return nil, "", err
	}

	s.log.Info("queue time adjusted",
		zap.String("queue_number", queueNumber),
		zap.Int("position", updated.Position),
		zap.Int("estimated_wait_time", updated.EstimatedWaitTime),
	)
	s.changed()
	return updated, message, nil
}

// Prioritize moves the entry PrioritizeSlots places forward (not past 1) and takes
// PrioritizeMinutes off its wait (not below PrioritizeMinWait).
func (s *Service) Prioritize(ctx context.Context, queueNumber string) (*models.QueueEntry, string, error) {
	entry, err := s.get(ctx, queueNumber)
	if err != nil {
		return nil, "", err
	}

	position := float64(max(1, entry.Position-PrioritizeSlots))
	wait := max(PrioritizeMinWait, entry.EstimatedWaitTime-PrioritizeMinutes)
	return s.AdjustTime(ctx, queueNumber, AdjustOptions{
		PriorityPosition:  &position,
		EstimatedWaitTime: &wait,
	})
}

// NudgeWait shifts the wait time by delta minutes (at most a day either way), clamped at 1 minute.
func (s *Service) NudgeWait(ctx context.Context, queueNumber string, delta int) (*models.QueueEntry, string, error) {
	if delta == 0 {
		return nil, "", fmt.Errorf("%w: minutes must not be zero", ErrValidation)
	}
	if delta > MaxNudgeMinutes || delta < -MaxNudgeMinutes {
		return nil, "", fmt.Errorf("%w: minutes must be within ±%d", ErrValidation, MaxNudgeMinutes)
	}

	entry, err := s.get(ctx, queueNumber)
	if err != nil {
		return nil, "", err
	}

	wait := min(MaxWaitMinutes, max(1, entry.EstimatedWaitTime+delta))
	return s.AdjustTime(ctx, queueNumber, AdjustOptions{EstimatedWaitTime: &wait})
}

/*
|--------------------------------------------------------------------------
| Admin listing
|--------------------------------------------------------------------------
*/

// ListFilter - Search matches name or queue number, case-insensitive. ServiceType "all" or empty matches every service.
type ListFilter struct {
	Search      string
	ServiceType string
}

// List returns entries ordered by position, filtered for the admin table.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]models.QueueEntry, error) {
	ctx, span := telemetry.StartSpan(ctx, "queue.list")
	defer span.End()

	entries, err := s.store.ListOrderedByPosition(ctx)
	if err != nil {
		err = s.storeErr(err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	serviceType := strings.TrimSpace(filter.ServiceType)
	if search == "" && (serviceType == "" || serviceType == "all") {
		return entries, nil
	}

	out := make([]models.QueueEntry, 0, len(entries))
	for _, e := range entries {
		if search != "" &&
			!strings.Contains(strings.ToLower(e.Name), search) &&
			!strings.Contains(strings.ToLower(e.QueueNumber), search) {
			continue
		}
		if serviceType != "" && serviceType != "all" && string(e.ServiceType) != serviceType {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Stats aggregates the dashboard numbers over every stored entry.
func (s *Service) Stats(ctx context.Context) (*models.DashboardStats, error) {
	ctx, span := telemetry.StartSpan(ctx, "queue.stats")
	defer span.End()

	entries, err := s.store.ListOrderedByPosition(ctx)
	if err != nil {
		err = s.storeErr(err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	stats := &models.DashboardStats{
		TotalCustomers: len(entries),
		ByStatus:       map[models.Status]int{},
		Services:       []models.ServiceStat{},
	}

	type acc struct{ count, wait int }
	perService := map[models.ServiceType]*acc{}
	totalWait := 0
	for _, e := range entries {
		totalWait += e.EstimatedWaitTime
		stats.ByStatus[e.Status]++

		a, ok := perService[e.ServiceType]
		if !ok {
			a = &acc{}
			perService[e.ServiceType] = a
		}
		a.count++
		a.wait += e.EstimatedWaitTime
	}
	stats.ServiceTypes = len(perService)
	if len(entries) > 0 {
		stats.AvgWaitTime = roundDiv(totalWait, len(entries))
	}

	var joined map[models.ServiceType]int64
	if s.cfg.Counter != nil {
		if joined, err = s.cfg.Counter.Counts(ctx); err != nil {
			s.log.Warn("join counters unavailable", zap.Error(err))
		}
	}

	for service, a := range perService {
		stats.Services = append(stats.Services, models.ServiceStat{
			Service:     service,
			Count:       a.count,
			AvgWait:     roundDiv(a.wait, a.count),
			JoinedTotal: joined[service],
		})
	}
	sort.Slice(stats.Services, func(i, j int) bool {
		return stats.Services[i].Service < stats.Services[j].Service
	})
	return stats, nil
}

/*
|--------------------------------------------------------------------------
| Helpers
|--------------------------------------------------------------------------
*/

func (s *Service) get(ctx context.Context, queueNumber string) (*models.QueueEntry, error) {
	queueNumber = strings.ToUpper(strings.TrimSpace(queueNumber))
	if queueNumber == "" {
		return nil, fmt.Errorf("%w: queue number is required", ErrValidation)
	}

	entry, err := s.store.GetByQueueNumber(ctx, queueNumber)
	if err != nil {
		return nil, s.storeErr(err, zap.String("queue_number", queueNumber))
	}
	return entry, nil
}

// storeErr maps store.ErrNotFound to ErrNotFound and wraps everything else as a store failure.
func (s *Service) storeErr(err error, fields ...zap.Field) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	s.log.Error("queue store failure", append(fields, zap.Error(err))...)
	return fmt.Errorf("%w: %v", ErrStoreFailure, err)
}

func (s *Service) nextNumber(ctx context.Context, serviceType string) (string, int, error) {
	queueNumber, suffix := s.gen.Next(serviceType)
	if !s.cfg.UniqueNumbers {
		return queueNumber, suffix, nil
	}

	for attempt := 1; attempt <= s.cfg.NumberRetries; attempt++ {
		_, err := s.store.GetByQueueNumber(ctx, queueNumber)
		if errors.Is(err, store.ErrNotFound) {
			return queueNumber, suffix, nil
		}
		if err != nil {
			return "", 0, s.storeErr(err, zap.String("queue_number", queueNumber))
		}
		queueNumber, suffix = s.gen.Next(serviceType)
	}

	s.log.Warn("queue number may collide", zap.String("queue_number", queueNumber), zap.Int("retries", s.cfg.NumberRetries))
	return queueNumber, suffix, nil
}

func (s *Service) changed() {
	if s.cfg.OnChange != nil {
		s.cfg.OnChange()
	}
}

func roundDiv(sum, n int) int {
	return int(math.Round(float64(sum) / float64(n)))
}
