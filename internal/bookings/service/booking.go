package service

import (
	"context"
	"errors"
	"time"

	"jobfair/internal/bookings/admission"
	bookingserrors "jobfair/internal/bookings/errors"
	"jobfair/internal/bookings/events"
	"jobfair/internal/bookings/repository"
	"jobfair/internal/bookings/validator"
	"jobfair/pkg/config"
	apperrors "jobfair/pkg/errors"
	"jobfair/pkg/model"
	"jobfair/pkg/sanitizer"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"
)

const (
	lockRetryInitialBackoff = 25 * time.Millisecond
	lockRetryMaxBackoff     = 400 * time.Millisecond
)

type BookingService interface {
	Create(ctx context.Context, actor model.Actor, req *model.CreateBookingRequest) (*model.BookingDetails, error)
	GetByID(ctx context.Context, actor model.Actor, id string) (*model.BookingDetails, error)
	List(ctx context.Context, actor model.Actor, limit int, offset int64) ([]*model.BookingDetails, int64, error)
	Update(ctx context.Context, actor model.Actor, id string, update *model.BookingUpdate) (*model.BookingDetails, error)
	Delete(ctx context.Context, actor model.Actor, id string) error
}

// CompanyLookup resolves company references of a booking.
type CompanyLookup interface {
	FindByIDs(ctx context.Context, ids []string) ([]*model.Company, error)
}

// UserLookup resolves booking owners to their public summary.
type UserLookup interface {
	FindSummaries(ctx context.Context, ids []string) ([]*model.UserSummary, error)
}

type bookingService struct {
	repo      repository.BookingRepository
	lockRepo  repository.BookingLockRepository
	companies CompanyLookup
	users     UserLookup
	engine    *admission.Engine
	validator *validator.BookingValidator
	publisher events.Publisher
	cfg       *config.Config
}

func NewBookingService(
	repo repository.BookingRepository,
	lockRepo repository.BookingLockRepository,
	companies CompanyLookup,
	users UserLookup,
	engine *admission.Engine,
	validator *validator.BookingValidator,
	publisher events.Publisher,
	cfg *config.Config,
) BookingService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &bookingService{
		repo:      repo,
		lockRepo:  lockRepo,
		companies: companies,
		users:     users,
		engine:    engine,
		validator: validator,
		publisher: publisher,
		cfg:       cfg,
	}
}

func (s *bookingService) Create(ctx context.Context, actor model.Actor, req *model.CreateBookingRequest) (*model.BookingDetails, error) {
	s.sanitizeCreate(req)
	if err := s.validate(s.validator.ValidateCreate(req)); err != nil {
		return nil, err
	}

	admitReq := admission.CreateRequest{
		Companies: req.Companies,
		Note:      req.Note,
	}
	if req.Date != "" {
		date, err := parseDate(req.Date)
		if err != nil {
			return nil, err
		}
		admitReq.Date = &date
	}

	release, err := s.acquireOwnerLock(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	defer release()

	var created *model.Booking
	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		existing, err := s.repo.FindByOwner(sessCtx, actor.UserID)
		if err != nil {
			return apperrors.StorageFailure("Failed to load existing bookings", err)
		}

		booking, err := s.engine.AdmitCreate(actor, admitReq, existing)
		if err != nil {
			return err
		}
		if err := s.verifyCompanies(sessCtx, booking.Companies); err != nil {
			return err
		}
		if err := s.repo.Create(sessCtx, booking); err != nil {
			return s.mapWriteError("Failed to create booking", err)
		}

		created = booking
		return nil
	})
	if err != nil {
		err = asStorageFailure("Failed to create booking", err)
		s.logFailure("Failed to create booking", err, "user", actor.UserID)
		return nil, err
	}

	s.cfg.Log.Info("Booking created successfully",
		"id", created.ID,
		"user", created.UserID,
		"date", created.Date,
		"companies", len(created.Companies),
	)
	s.publish(ctx, model.BookingCreated, created, actor)

	return s.populateOne(ctx, created)
}

func (s *bookingService) GetByID(ctx context.Context, actor model.Actor, id string) (*model.BookingDetails, error) {
	current, err := s.findBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	booking, err := s.engine.AdmitRead(actor, id, current)
	if err != nil {
		return nil, err
	}

	return s.populateOne(ctx, booking)
}

func (s *bookingService) List(ctx context.Context, actor model.Actor, limit int, offset int64) ([]*model.BookingDetails, int64, error) {
	owner, all := admission.ListScope(actor)

	var (
		bookings []*model.Booking
		total    int64
	)

	if all {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			count, err := s.repo.Count(gctx)
			if err != nil {
				s.cfg.Log.Error("Failed to count bookings", "error", err)
				return apperrors.StorageFailure("Failed to count bookings", err)
			}
			total = count
			return nil
		})
		g.Go(func() error {
			page, err := s.repo.FindAll(gctx, limit, offset)
			if err != nil {
				s.cfg.Log.Error("Failed to list bookings", "limit", limit, "offset", offset, "error", err)
				return apperrors.StorageFailure("Failed to retrieve bookings", err)
			}
			bookings = page
			return nil
		})
		if err := g.Wait(); err != nil {
			return nil, 0, err
		}
	} else {
		owned, err := s.repo.FindByOwner(ctx, owner)
		if err != nil {
			s.cfg.Log.Error("Failed to list user bookings", "user", owner, "error", err)
			return nil, 0, apperrors.StorageFailure("Failed to retrieve bookings", err)
		}
		total = int64(len(owned))
		bookings = paginate(owned, limit, offset)
	}

	details, err := s.populate(ctx, bookings)
	if err != nil {
		return nil, 0, err
	}
	return details, total, nil
}

func (s *bookingService) Update(ctx context.Context, actor model.Actor, id string, update *model.BookingUpdate) (*model.BookingDetails, error) {
	if update == nil {
		update = &model.BookingUpdate{}
	}
	s.sanitizeUpdate(update)
	if err := s.validate(s.validator.ValidateUpdate(update)); err != nil {
		return nil, err
	}

	patch := admission.Patch{
		Companies: update.Companies,
		Note:      update.Note,
	}
	if update.Date != nil {
		date, err := parseDate(*update.Date)
		if err != nil {
			return nil, err
		}
		patch.Date = &date
	}

	// An empty patch is refused before any read.
	if patch.IsEmpty() {
		return nil, s.rejectUpdate(actor, id, patch)
	}

	current, err := s.findBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, s.rejectUpdate(actor, id, patch)
	}

	// Cross-checks run against the owner's bookings, even when an admin edits.
	release, err := s.acquireOwnerLock(ctx, current.UserID)
	if err != nil {
		return nil, err
	}
	defer release()

	var updated *model.Booking
	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		current, err := s.findBooking(sessCtx, id)
		if err != nil {
			return err
		}

		var others []*model.Booking
		if current != nil {
			others, err = s.repo.FindByOwnerExcept(sessCtx, current.UserID, id)
			if err != nil {
				return apperrors.StorageFailure("Failed to load existing bookings", err)
			}
		}

		merged, err := s.engine.AdmitUpdate(actor, id, patch, current, others)
		if err != nil {
			return err
		}
		if patch.Companies != nil {
			if err := s.verifyCompanies(sessCtx, merged.Companies); err != nil {
				return err
			}
		}
		if err := s.repo.Update(sessCtx, id, merged); err != nil {
			return s.mapWriteError("Failed to update booking", err)
		}

		updated = merged
		return nil
	})
	if err != nil {
		err = asStorageFailure("Failed to update booking", err)
		s.logFailure("Failed to update booking", err, "id", id, "actor", actor.UserID)
		return nil, err
	}

	s.cfg.Log.Info("Booking updated successfully", "id", id, "actor", actor.UserID)
	s.publish(ctx, model.BookingUpdated, updated, actor)

	return s.populateOne(ctx, updated)
}

func (s *bookingService) Delete(ctx context.Context, actor model.Actor, id string) error {
	current, err := s.findBooking(ctx, id)
	if err != nil {
		return err
	}
	if current == nil {
		return s.engine.AdmitDelete(actor, id, nil)
	}

	release, err := s.acquireOwnerLock(ctx, current.UserID)
	if err != nil {
		return err
	}
	defer release()

	var deleted *model.Booking
	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		current, err := s.findBooking(sessCtx, id)
		if err != nil {
			return err
		}
		if err := s.engine.AdmitDelete(actor, id, current); err != nil {
			return err
		}
		if err := s.repo.Delete(sessCtx, id); err != nil {
			if errors.Is(err, bookingserrors.ErrNotFound) {
				return apperrors.NotFoundWithID("Booking", id)
			}
			return apperrors.StorageFailure("Failed to delete booking", err)
		}

		deleted = current
		return nil
	})
	if err != nil {
		err = asStorageFailure("Failed to delete booking", err)
		s.logFailure("Failed to delete booking", err, "id", id, "actor", actor.UserID)
		return err
	}

	s.cfg.Log.Info("Booking deleted successfully", "id", id, "actor", actor.UserID)
	s.publish(ctx, model.BookingDeleted, deleted, actor)
	return nil
}

// --- Helpers ---

// findBooking returns nil without error when the booking does not exist, leaving the
// not-found decision to the admission engine.
func (s *bookingService) findBooking(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, nil
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid booking ID format")
		}
		return nil, apperrors.StorageFailure("Failed to retrieve booking", err)
	}
	return booking, nil
}

func (s *bookingService) verifyCompanies(ctx context.Context, ids []string) error {
	found, err := s.companies.FindByIDs(ctx, ids)
	if err != nil {
		return apperrors.StorageFailure("Failed to verify companies", err)
	}
	if len(found) == len(ids) {
		return nil
	}

	known := make(map[string]struct{}, len(found))
	for _, c := range found {
		known[c.ID] = struct{}{}
	}
	var missing []string
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			missing = append(missing, id)
		}
	}
	return apperrors.InvalidInput("Company not found").
		WithDetails(map[string]any{"companies": missing})
}

// mapWriteError translates unique index violations that slipped past the lock into
// the rule they enforce.
func (s *bookingService) mapWriteError(message string, err error) error {
	switch {
	case errors.Is(err, bookingserrors.ErrDuplicateCompany):
		return apperrors.Rule(apperrors.CodeCompanyAlreadyBooked, "You already booked this company")
	case errors.Is(err, bookingserrors.ErrDuplicateDay):
		return apperrors.Rule(apperrors.CodeDayAlreadyBooked, "You already booked a session on this day")
	case errors.Is(err, bookingserrors.ErrNotFound):
		return apperrors.NotFound("Booking")
	}
	return apperrors.StorageFailure(message, err)
}

// acquireOwnerLock serializes admissions of one owner. It retries with exponential
// backoff until OwnerLockWait elapses.
func (s *bookingService) acquireOwnerLock(ctx context.Context, ownerID string) (func(), error) {
	lock := &model.BookingLock{
		ID:     ownerLockID(ownerID),
		Holder: uuid.NewString(),
	}
	deadline := time.Now().Add(s.cfg.OwnerLockWait)
	backoff := lockRetryInitialBackoff

	for {
		lock.ExpiresAt = time.Now().Add(s.cfg.OwnerLockTTL).UTC()
		err := s.lockRepo.Acquire(ctx, lock)
		if err == nil {
			break
		}
		if !errors.Is(err, bookingserrors.ErrLockHeld) {
			s.cfg.Log.Error("Failed to acquire owner lock", "lock_id", lock.ID, "error", err)
			return nil, apperrors.StorageFailure("Failed to acquire booking lock", err)
		}
		if time.Now().Add(backoff).After(deadline) {
			s.cfg.Log.Warn("Owner lock contention", "lock_id", lock.ID, "wait", s.cfg.OwnerLockWait)
			return nil, apperrors.Conflict("Another booking request for this user is in progress. Please try again.")
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, apperrors.Timeout("Request cancelled while waiting for booking lock")
		case <-timer.C:
		}
		backoff = min(backoff*2, lockRetryMaxBackoff)
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.WriteTimeout)
		defer cancel()
		if err := s.lockRepo.Release(releaseCtx, lock.ID, lock.Holder); err != nil {
			s.cfg.Log.Warn("Failed to release booking lock", "lock_id", lock.ID, "error", err)
		}
	}, nil
}

func ownerLockID(ownerID string) string {
	return "booking_owner_" + ownerID
}

func (s *bookingService) publish(ctx context.Context, eventType string, booking *model.Booking, actor model.Actor) {
	event := events.NewEvent(eventType, booking, actor)
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.cfg.Log.Warn("Failed to publish booking event",
			"event_id", event.EventID,
			"type", eventType,
			"booking_id", booking.ID,
			"error", err,
		)
	}
}

func (s *bookingService) populateOne(ctx context.Context, booking *model.Booking) (*model.BookingDetails, error) {
	details, err := s.populate(ctx, []*model.Booking{booking})
	if err != nil {
		return nil, err
	}
	return details[0], nil
}

// populate resolves company and owner references. References that no longer exist
// are left out rather than failing the read.
func (s *bookingService) populate(ctx context.Context, bookings []*model.Booking) ([]*model.BookingDetails, error) {
	details := make([]*model.BookingDetails, 0, len(bookings))
	if len(bookings) == 0 {
		return details, nil
	}

	companyIDs := make([]string, 0)
	userIDs := make([]string, 0)
	seenCompany := map[string]struct{}{}
	seenUser := map[string]struct{}{}
	for _, b := range bookings {
		for _, id := range b.Companies {
			if _, ok := seenCompany[id]; !ok {
				seenCompany[id] = struct{}{}
				companyIDs = append(companyIDs, id)
			}
		}
		if _, ok := seenUser[b.UserID]; !ok {
			seenUser[b.UserID] = struct{}{}
			userIDs = append(userIDs, b.UserID)
		}
	}

	var (
		companies []*model.Company
		users     []*model.UserSummary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		companies, err = s.companies.FindByIDs(gctx, companyIDs)
		if err != nil {
			s.cfg.Log.Error("Failed to populate companies", "error", err)
			return apperrors.StorageFailure("Failed to retrieve companies", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		users, err = s.users.FindSummaries(gctx, userIDs)
		if err != nil {
			s.cfg.Log.Error("Failed to populate users", "error", err)
			return apperrors.StorageFailure("Failed to retrieve users", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	companyByID := make(map[string]*model.Company, len(companies))
	for _, c := range companies {
		companyByID[c.ID] = c
	}
	userByID := make(map[string]*model.UserSummary, len(users))
	for _, u := range users {
		userByID[u.ID] = u
	}

	for _, b := range bookings {
		d := &model.BookingDetails{
			Booking:        b,
			CompanyDetails: make([]*model.Company, 0, len(b.Companies)),
			User:           userByID[b.UserID],
		}
		for _, id := range b.Companies {
			if c, ok := companyByID[id]; ok {
				d.CompanyDetails = append(d.CompanyDetails, c)
			}
		}
		details = append(details, d)
	}
	return details, nil
}

func (s *bookingService) sanitizeCreate(req *model.CreateBookingRequest) {
	req.Date = sanitizer.TrimAndNormalize(req.Date)
	req.Companies = sanitizer.NormalizeObjectIDs(req.Companies)
	req.Note = sanitizer.TrimMultiline(req.Note)
}

// rejectUpdate returns the engine's error for an update that never reaches storage,
// either an empty patch or a missing booking.
func (s *bookingService) rejectUpdate(actor model.Actor, id string, patch admission.Patch) error {
	_, err := s.engine.AdmitUpdate(actor, id, patch, nil, nil)
	return err
}

func (s *bookingService) sanitizeUpdate(u *model.BookingUpdate) {
	if u.Date != nil {
		date := sanitizer.TrimAndNormalize(*u.Date)
		u.Date = &date
	}
	if u.Companies != nil {
		companies := sanitizer.NormalizeObjectIDs(*u.Companies)
		if companies == nil {
			companies = []string{}
		}
		u.Companies = &companies
	}
	if u.Note != nil {
		note := sanitizer.TrimMultiline(*u.Note)
		u.Note = &note
	}
}

func (s *bookingService) validate(err error) error {
	if err == nil {
		return nil
	}
	s.cfg.Log.Warn("Booking validation failed", "error", err)

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.InvalidInput("Invalid booking input").
			WithDetails(map[string]any{"errors": verrs})
	}
	return apperrors.InvalidInput(err.Error())
}

// logFailure logs server-side failures at error level and client errors at debug.
func (s *bookingService) logFailure(msg string, err error, attrs ...any) {
	attrs = append(attrs, "error", err)
	if appErr := apperrors.AsAppError(err); appErr != nil && appErr.HTTPStatus < 500 {
		s.cfg.Log.Debug(msg, attrs...)
		return
	}
	s.cfg.Log.Error(msg, attrs...)
}

// asStorageFailure covers errors raised by the session itself rather than by fn.
func asStorageFailure(message string, err error) error {
	if apperrors.IsAppError(err) {
		return err
	}
	return apperrors.StorageFailure(message, err)
}

// parseDate accepts RFC3339 or a bare YYYY-MM-DD day, taken as UTC midnight.
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(model.DayLayout, value); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, apperrors.InvalidInput("Invalid date format, expected RFC3339 or YYYY-MM-DD")
}

func paginate(bookings []*model.Booking, limit int, offset int64) []*model.Booking {
	if offset >= int64(len(bookings)) {
		return []*model.Booking{}
	}
	end := len(bookings)
	if limit > 0 && int(offset)+limit < end {
		end = int(offset) + limit
	}
	return bookings[offset:end]
}
