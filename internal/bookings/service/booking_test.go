package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"jobfair/internal/bookings/admission"
	bookingserrors "jobfair/internal/bookings/errors"
	"jobfair/internal/bookings/validator"
	"jobfair/pkg/config"
	mongotx "jobfair/pkg/db/mongo"
	apperrors "jobfair/pkg/errors"
	"jobfair/pkg/logger"
	"jobfair/pkg/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	companyA = "6277a1f0c2a4b3d1e0f00001"
	companyB = "6277a1f0c2a4b3d1e0f00002"
	companyC = "6277a1f0c2a4b3d1e0f00003"
	companyD = "6277a1f0c2a4b3d1e0f00004"
	unknown  = "6277a1f0c2a4b3d1e0f000ff"

	ownerID = "6277a1f0c2a4b3d1e0f0bbbb"
	otherID = "6277a1f0c2a4b3d1e0f0cccc"
)

var (
	owner = model.Actor{UserID: ownerID, Role: model.RoleUser}
	other = model.Actor{UserID: otherID, Role: model.RoleUser}
	admin = model.Actor{UserID: "6277a1f0c2a4b3d1e0f0aaaa", Role: model.RoleAdmin}
)

// --- Mocks ---

type mockBookingRepo struct {
	createFunc            func(ctx context.Context, booking *model.Booking) error
	findByIDFunc          func(ctx context.Context, id string) (*model.Booking, error)
	findByOwnerFunc       func(ctx context.Context, ownerID string) ([]*model.Booking, error)
	findByOwnerExceptFunc func(ctx context.Context, ownerID, exceptID string) ([]*model.Booking, error)
	findAllFunc           func(ctx context.Context, limit int, offset int64) ([]*model.Booking, error)
	countFunc             func(ctx context.Context) (int64, error)
	updateFunc            func(ctx context.Context, id string, booking *model.Booking) error
	deleteFunc            func(ctx context.Context, id string) error
	transactionFunc       func(ctx context.Context, fn mongotx.TransactionFunc) error
}

func (m *mockBookingRepo) Create(ctx context.Context, booking *model.Booking) error {
	return m.createFunc(ctx, booking)
}

func (m *mockBookingRepo) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	return m.findByIDFunc(ctx, id)
}

func (m *mockBookingRepo) FindByOwner(ctx context.Context, ownerID string) ([]*model.Booking, error) {
	return m.findByOwnerFunc(ctx, ownerID)
}

func (m *mockBookingRepo) FindByOwnerExcept(ctx context.Context, ownerID, exceptID string) ([]*model.Booking, error) {
	return m.findByOwnerExceptFunc(ctx, ownerID, exceptID)
}

func (m *mockBookingRepo) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, error) {
	return m.findAllFunc(ctx, limit, offset)
}

func (m *mockBookingRepo) Count(ctx context.Context) (int64, error) {
	return m.countFunc(ctx)
}

func (m *mockBookingRepo) Update(ctx context.Context, id string, booking *model.Booking) error {
	return m.updateFunc(ctx, id, booking)
}

func (m *mockBookingRepo) Delete(ctx context.Context, id string) error {
	return m.deleteFunc(ctx, id)
}

func (m *mockBookingRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	if m.transactionFunc != nil {
		return m.transactionFunc(ctx, fn)
	}
	return fn(mongo.NewSessionContext(ctx, nil))
}

type mockLockRepo struct {
	acquireFunc func(ctx context.Context, lock *model.BookingLock) error
	releaseFunc func(ctx context.Context, lockID, holder string) error
}

func (m *mockLockRepo) Acquire(ctx context.Context, lock *model.BookingLock) error {
	return m.acquireFunc(ctx, lock)
}

func (m *mockLockRepo) Release(ctx context.Context, lockID, holder string) error {
	return m.releaseFunc(ctx, lockID, holder)
}

type mockCompanies struct {
	findByIDsFunc func(ctx context.Context, ids []string) ([]*model.Company, error)
}

func (m *mockCompanies) FindByIDs(ctx context.Context, ids []string) ([]*model.Company, error) {
	return m.findByIDsFunc(ctx, ids)
}

type mockUsers struct {
	findSummariesFunc func(ctx context.Context, ids []string) ([]*model.UserSummary, error)
}

func (m *mockUsers) FindSummaries(ctx context.Context, ids []string) ([]*model.UserSummary, error) {
	return m.findSummariesFunc(ctx, ids)
}

type mockPublisher struct {
	mu     sync.Mutex
	events []*model.BookingEvent
	err    error
}

func (m *mockPublisher) Publish(ctx context.Context, event *model.BookingEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.err
}

func (m *mockPublisher) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var types []string
	for _, e := range m.events {
		types = append(types, e.Type)
	}
	return types
}

// --- In-memory store backing the mocks ---

type memoryStore struct {
	mu       sync.Mutex
	bookings map[string]*model.Booking
	locks    map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		bookings: map[string]*model.Booking{},
		locks:    map[string]string{},
	}
}

func (s *memoryStore) seed(b *model.Booking) *model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == "" {
		b.ID = primitive.NewObjectID().Hex()
	}
	b.Day = model.DayOf(b.Date)
	copied := *b
	s.bookings[b.ID] = &copied
	return b
}

func (s *memoryStore) ownedBy(ownerID, exceptID string) []*model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*model.Booking{}
	for _, b := range s.bookings {
		if b.UserID == ownerID && b.ID != exceptID {
			copied := *b
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func (s *memoryStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bookings)
}

// violates mirrors the unique indexes on (user, companies) and (user, day).
func (s *memoryStore) violates(b *model.Booking) error {
	for _, existing := range s.bookings {
		if existing.UserID != b.UserID || existing.ID == b.ID {
			continue
		}
		if existing.Day == model.DayOf(b.Date) {
			return bookingserrors.ErrDuplicateDay
		}
		for _, c := range existing.Companies {
			for _, n := range b.Companies {
				if c == n {
					return bookingserrors.ErrDuplicateCompany
				}
			}
		}
	}
	return nil
}

func (s *memoryStore) repo() *mockBookingRepo {
	return &mockBookingRepo{
		createFunc: func(ctx context.Context, b *model.Booking) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			if err := s.violates(b); err != nil {
				return fmt.Errorf("write failed: %w", err)
			}
			b.ID = primitive.NewObjectID().Hex()
			b.Day = model.DayOf(b.Date)
			copied := *b
			s.bookings[b.ID] = &copied
			return nil
		},
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			if _, err := primitive.ObjectIDFromHex(id); err != nil {
				return nil, bookingserrors.ErrInvalidID
			}
			s.mu.Lock()
			defer s.mu.Unlock()
			b, ok := s.bookings[id]
			if !ok {
				return nil, bookingserrors.ErrNotFound
			}
			copied := *b
			return &copied, nil
		},
		findByOwnerFunc: func(ctx context.Context, ownerID string) ([]*model.Booking, error) {
			return s.ownedBy(ownerID, ""), nil
		},
		findByOwnerExceptFunc: func(ctx context.Context, ownerID, exceptID string) ([]*model.Booking, error) {
			return s.ownedBy(ownerID, exceptID), nil
		},
		findAllFunc: func(ctx context.Context, limit int, offset int64) ([]*model.Booking, error) {
			s.mu.Lock()
			all := make([]*model.Booking, 0, len(s.bookings))
			for _, b := range s.bookings {
				copied := *b
				all = append(all, &copied)
			}
			s.mu.Unlock()
			sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
			return paginate(all, limit, offset), nil
		},
		countFunc: func(ctx context.Context) (int64, error) {
			return int64(s.count()), nil
		},
		updateFunc: func(ctx context.Context, id string, b *model.Booking) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.bookings[id]; !ok {
				return bookingserrors.ErrNotFound
			}
			if err := s.violates(b); err != nil {
				return fmt.Errorf("write failed: %w", err)
			}
			b.Day = model.DayOf(b.Date)
			copied := *b
			s.bookings[id] = &copied
			return nil
		},
		deleteFunc: func(ctx context.Context, id string) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.bookings[id]; !ok {
				return bookingserrors.ErrNotFound
			}
			delete(s.bookings, id)
			return nil
		},
	}
}

func (s *memoryStore) lockRepo() *mockLockRepo {
	return &mockLockRepo{
		acquireFunc: func(ctx context.Context, lock *model.BookingLock) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, held := s.locks[lock.ID]; held {
				return bookingserrors.ErrLockHeld
			}
			s.locks[lock.ID] = lock.Holder
			return nil
		},
		releaseFunc: func(ctx context.Context, lockID, holder string) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.locks[lockID] == holder {
				delete(s.locks, lockID)
			}
			return nil
		},
	}
}

func knownCompanies() *mockCompanies {
	names := map[string]string{companyA: "Acme", companyB: "Globex", companyC: "Initech", companyD: "Umbrella"}
	return &mockCompanies{
		findByIDsFunc: func(ctx context.Context, ids []string) ([]*model.Company, error) {
			out := []*model.Company{}
			for _, id := range ids {
				if name, ok := names[id]; ok {
					out = append(out, &model.Company{ID: id, Name: name})
				}
			}
			return out, nil
		},
	}
}

func knownUsers() *mockUsers {
	return &mockUsers{
		findSummariesFunc: func(ctx context.Context, ids []string) ([]*model.UserSummary, error) {
			out := []*model.UserSummary{}
			for _, id := range ids {
				out = append(out, &model.UserSummary{ID: id, Name: "user " + id[len(id)-4:]})
			}
			return out, nil
		},
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Log:           logger.Discard(),
		OwnerLockTTL:  10 * time.Second,
		OwnerLockWait: 2 * time.Second,
		WriteTimeout:  time.Second,
	}
}

func testEngine() *admission.Engine {
	return admission.NewEngine(admission.Window{
		Min: time.Date(2022, 5, 10, 0, 0, 0, 0, time.UTC),
		Max: time.Date(2022, 5, 13, 23, 59, 59, 0, time.UTC),
	}, 3)
}

type fixture struct {
	store     *memoryStore
	repo      *mockBookingRepo
	locks     *mockLockRepo
	publisher *mockPublisher
	svc       BookingService
}

func newFixture() *fixture {
	f := &fixture{store: newMemoryStore(), publisher: &mockPublisher{}}
	f.repo = f.store.repo()
	f.locks = f.store.lockRepo()
	f.svc = f.build(testConfig())
	return f
}

func (f *fixture) build(cfg *config.Config) BookingService {
	return NewBookingService(
		f.repo,
		f.locks,
		knownCompanies(),
		knownUsers(),
		testEngine(),
		validator.NewBookingValidator(logger.Discard()),
		f.publisher,
		cfg,
	)
}

func day(d int) time.Time {
	return time.Date(2022, 5, d, 10, 0, 0, 0, time.UTC)
}

func createReq(date string, companies ...string) *model.CreateBookingRequest {
	return &model.CreateBookingRequest{Date: date, Companies: companies}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", code)
	}
	if !apperrors.HasCode(err, code) {
		t.Fatalf("expected code %s, got %v", code, err)
	}
}

// --- Create ---

func TestCreate_Success(t *testing.T) {
	f := newFixture()

	got, err := f.svc.Create(context.Background(), owner, &model.CreateBookingRequest{
		Date:      "2022-05-10",
		Companies: []string{" " + companyA, companyB},
		Note:      "  bring portfolio  ",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if got.ID == "" || got.UserID != ownerID {
		t.Errorf("unexpected booking identity %+v", got.Booking)
	}
	if !got.Date.Equal(time.Date(2022, 5, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date = %v", got.Date)
	}
	if got.Note != "bring portfolio" {
		t.Errorf("note = %q", got.Note)
	}
	if len(got.CompanyDetails) != 2 || got.CompanyDetails[0].Name != "Acme" {
		t.Errorf("company details not populated: %+v", got.CompanyDetails)
	}
	if got.User == nil || got.User.ID != ownerID {
		t.Errorf("user summary not populated: %+v", got.User)
	}
	if types := f.publisher.types(); len(types) != 1 || types[0] != model.BookingCreated {
		t.Errorf("published events = %v", types)
	}
	if len(f.store.locks) != 0 {
		t.Error("owner lock was not released")
	}
}

func TestCreate_Rules(t *testing.T) {
	tests := []struct {
		name     string
		seed     []*model.Booking
		req      *model.CreateBookingRequest
		wantCode string
	}{
		{
			name:     "missing date",
			req:      createReq("", companyA),
			wantCode: apperrors.CodeInvalidInput,
		},
		{
			name:     "missing companies",
			req:      createReq("2022-05-10"),
			wantCode: apperrors.CodeInvalidInput,
		},
		{
			name:     "malformed date",
			req:      createReq("10/05/2022", companyA),
			wantCode: apperrors.CodeInvalidInput,
		},
		{
			name:     "malformed company id",
			req:      createReq("2022-05-10", "acme"),
			wantCode: apperrors.CodeInvalidInput,
		},
		{
			name:     "date before window",
			req:      createReq("2022-05-09T23:59:59Z", companyA),
			wantCode: apperrors.CodeDateOutOfRange,
		},
		{
			name:     "date after window",
			req:      createReq("2022-05-14", companyA),
			wantCode: apperrors.CodeDateOutOfRange,
		},
		{
			name: "fourth booking",
			seed: []*model.Booking{
				{UserID: ownerID, Date: day(10), Companies: []string{companyA}},
				{UserID: ownerID, Date: day(11), Companies: []string{companyB}},
				{UserID: ownerID, Date: day(12), Companies: []string{companyC}},
			},
			req:      createReq("2022-05-13", companyD),
			wantCode: apperrors.CodeCapacityExceeded,
		},
		{
			name:     "same company twice",
			req:      createReq("2022-05-10", companyA, companyA),
			wantCode: apperrors.CodeDuplicateTarget,
		},
		{
			name:     "company already booked",
			seed:     []*model.Booking{{UserID: ownerID, Date: day(10), Companies: []string{companyA, companyB}}},
			req:      createReq("2022-05-11", companyB),
			wantCode: apperrors.CodeCompanyAlreadyBooked,
		},
		{
			name:     "day already booked",
			seed:     []*model.Booking{{UserID: ownerID, Date: day(10), Companies: []string{companyA}}},
			req:      createReq("2022-05-10T16:00:00Z", companyB),
			wantCode: apperrors.CodeDayAlreadyBooked,
		},
		{
			name:     "unknown company",
			req:      createReq("2022-05-10", companyA, unknown),
			wantCode: apperrors.CodeInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			for _, b := range tt.seed {
				f.store.seed(b)
			}
			before := f.store.count()

			_, err := f.svc.Create(context.Background(), owner, tt.req)
			assertCode(t, err, tt.wantCode)

			if f.store.count() != before {
				t.Errorf("store changed on rejected create: %d -> %d", before, f.store.count())
			}
			if len(f.publisher.types()) != 0 {
				t.Error("no event must be published for a rejected create")
			}
		})
	}
}

func TestCreate_OtherOwnersDoNotInterfere(t *testing.T) {
	f := newFixture()
	f.store.seed(&model.Booking{UserID: otherID, Date: day(10), Companies: []string{companyA}})

	if _, err := f.svc.Create(context.Background(), owner, createReq("2022-05-10", companyA)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
}

func TestCreate_StorageConstraintBackstop(t *testing.T) {
	f := newFixture()
	// Snapshot misses a concurrent write; the unique index still rejects it.
	f.repo.findByOwnerFunc = func(ctx context.Context, ownerID string) ([]*model.Booking, error) {
		return []*model.Booking{}, nil
	}
	f.store.seed(&model.Booking{UserID: ownerID, Date: day(10), Companies: []string{companyA}})

	_, err := f.svc.Create(context.Background(), owner, createReq("2022-05-11", companyA))
	assertCode(t, err, apperrors.CodeCompanyAlreadyBooked)

	_, err = f.svc.Create(context.Background(), owner, createReq("2022-05-10", companyB))
	assertCode(t, err, apperrors.CodeDayAlreadyBooked)
}

func TestCreate_StorageFailure(t *testing.T) {
	f := newFixture()
	cause := errors.New("connection reset by peer")
	f.repo.findByOwnerFunc = func(ctx context.Context, ownerID string) ([]*model.Booking, error) {
		return nil, cause
	}

	_, err := f.svc.Create(context.Background(), owner, createReq("2022-05-10", companyA))
	assertCode(t, err, apperrors.CodeStorage)
	if apperrors.AsAppError(err).StatusCode() != 500 {
		t.Errorf("status = %d", apperrors.AsAppError(err).StatusCode())
	}
	if len(f.store.locks) != 0 {
		t.Error("owner lock was not released after failure")
	}
}

func TestCreate_SessionFailureIsStorageFailure(t *testing.T) {
	f := newFixture()
	f.repo.transactionFunc = func(ctx context.Context, fn mongotx.TransactionFunc) error {
		return errors.New("transaction failed: no replica set")
	}

	_, err := f.svc.Create(context.Background(), owner, createReq("2022-05-10", companyA))
	assertCode(t, err, apperrors.CodeStorage)
}

func TestCreate_LockContention(t *testing.T) {
	f := newFixture()
	f.locks.acquireFunc = func(ctx context.Context, lock *model.BookingLock) error {
		return bookingserrors.ErrLockHeld
	}
	cfg := testConfig()
	cfg.OwnerLockWait = 60 * time.Millisecond
	svc := f.build(cfg)

	start := time.Now()
	_, err := svc.Create(context.Background(), owner, createReq("2022-05-10", companyA))
	assertCode(t, err, apperrors.CodeConflict)

	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("lock wait took %v", elapsed)
	}
}

func TestCreate_LockRetriesUntilReleased(t *testing.T) {
	f := newFixture()
	attempts := 0
	f.locks.acquireFunc = func(ctx context.Context, lock *model.BookingLock) error {
		attempts++
		if attempts < 3 {
			return bookingserrors.ErrLockHeld
		}
		if lock.ID != "booking_owner_"+ownerID {
			t.Errorf("lock id = %q", lock.ID)
		}
		if lock.Holder == "" || !lock.ExpiresAt.After(time.Now()) {
			t.Errorf("lock holder/expiry not set: %+v", lock)
		}
		return nil
	}
	f.locks.releaseFunc = func(ctx context.Context, lockID, holder string) error { return nil }

	if _, err := f.svc.Create(context.Background(), owner, createReq("2022-05-10", companyA)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestCreate_LockStoreFailure(t *testing.T) {
	f := newFixture()
	f.locks.acquireFunc = func(ctx context.Context, lock *model.BookingLock) error {
		return errors.New("server selection error")
	}

	_, err := f.svc.Create(context.Background(), owner, createReq("2022-05-10", companyA))
	assertCode(t, err, apperrors.CodeStorage)
}

func TestCreate_PublishFailureDoesNotFailRequest(t *testing.T) {
	f := newFixture()
	f.publisher.err = errors.New("kafka down")

	if _, err := f.svc.Create(context.Background(), owner, createReq("2022-05-10", companyA)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if f.store.count() != 1 {
		t.Error("booking should be stored despite publish failure")
	}
}

func TestCreate_ConcurrentSameOwner(t *testing.T) {
	f := newFixture()

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Create(context.Background(), owner, createReq("2022-05-10", companyA))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	successes := 0
	for err := range errs {
		if err == nil {
			successes++
			continue
		}
		if !apperrors.HasCode(err, apperrors.CodeCompanyAlreadyBooked) && !apperrors.HasCode(err, apperrors.CodeConflict) {
			t.Errorf("unexpected error %v", err)
		}
	}
	if successes != 1 {
		t.Errorf("successes = %d, want exactly 1", successes)
	}
	if f.store.count() != 1 {
		t.Errorf("stored bookings = %d, want 1", f.store.count())
	}
}

// --- Read / List ---

func TestGetByID(t *testing.T) {
	f := newFixture()
	b := f.store.seed(&model.Booking{UserID: ownerID, Date: day(10), Companies: []string{companyA}})

	tests := []struct {
		name     string
		actor    model.Actor
		id       string
		wantCode string
	}{
		{name: "owner", actor: owner, id: b.ID},
		{name: "admin", actor: admin, id: b.ID},
		{name: "other user", actor: other, id: b.ID, wantCode: apperrors.CodeForbidden},
		{name: "missing", actor: owner, id: primitive.NewObjectID().Hex(), wantCode: apperrors.CodeNotFound},
		{name: "malformed id", actor: owner, id: "xyz", wantCode: apperrors.CodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.GetByID(context.Background(), tt.actor, tt.id)
			if tt.wantCode != "" {
				assertCode(t, err, tt.wantCode)
				return
			}
			if err != nil {
				t.Fatalf("GetByID() error = %v", err)
			}
			if got.ID != b.ID || len(got.CompanyDetails) != 1 {
				t.Errorf("unexpected details %+v", got)
			}
		})
	}
}

func TestList_Scope(t *testing.T) {
	f := newFixture()
	f.store.seed(&model.Booking{UserID: ownerID, Date: day(10), Companies: []string{companyA}})
	f.store.seed(&model.Booking{UserID: ownerID, Date: day(11), Companies: []string{companyB}})
	f.store.seed(&model.Booking{UserID: otherID, Date: day(10), Companies: []string{companyA}})

	mine, total, err := f.svc.List(context.Background(), owner, 10, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 2 || len(mine) != 2 {
		t.Errorf("owner sees %d/%d bookings, want 2/2", len(mine), total)
	}
	for _, d := range mine {
		if d.UserID != ownerID {
			t.Errorf("owner listing leaked booking of %s", d.UserID)
		}
	}

	page, total, err := f.svc.List(context.Background(), owner, 1, 1)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 2 || len(page) != 1 || !page[0].Date.Equal(day(11)) {
		t.Errorf("unexpected second page %+v total %d", page, total)
	}

	all, total, err := f.svc.List(context.Background(), admin, 10, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 3 || len(all) != 3 {
		t.Errorf("admin sees %d/%d bookings, want 3/3", len(all), total)
	}
}

func TestList_CountFailure(t *testing.T) {
	f := newFixture()
	f.repo.countFunc = func(ctx context.Context) (int64, error) {
		return 0, errors.New("timeout")
	}

	_, _, err := f.svc.List(context.Background(), admin, 10, 0)
	assertCode(t, err, apperrors.CodeStorage)
}

func TestList_Empty(t *testing.T) {
	f := newFixture()
	got, total, err := f.svc.List(context.Background(), owner, 10, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if got == nil || len(got) != 0 || total != 0 {
		t.Errorf("expected empty non-nil list, got %v (%d)", got, total)
	}
}

// --- Update ---

func strPtr(s string) *string { return &s }

func TestUpdate(t *testing.T) {
	tests := []struct {
		name     string
		actor    model.Actor
		update   *model.BookingUpdate
		wantCode string
		check    func(t *testing.T, got *model.BookingDetails)
	}{
		{
			name:     "empty patch",
			actor:    owner,
			update:   &model.BookingUpdate{},
			wantCode: apperrors.CodeInvalidInput,
		},
		{
			name:     "note only",
			actor:    owner,
			update:   &model.BookingUpdate{Note: strPtr("hi")},
			wantCode: apperrors.CodeInvalidInput,
		},
		{
			name:     "other user",
			actor:    other,
			update:   &model.BookingUpdate{Date: strPtr("2022-05-10T14:00:00Z"), Note: strPtr("hi")},
			wantCode: apperrors.CodeForbidden,
		},
		{
			name:     "empty companies",
			actor:    owner,
			update:   &model.BookingUpdate{Companies: &[]string{}},
			wantCode: apperrors.CodeInvalidInput,
		},
		{
			name:     "company booked in another session",
			actor:    owner,
			update:   &model.BookingUpdate{Companies: &[]string{companyC}},
			wantCode: apperrors.CodeCompanyAlreadyBooked,
		},
		{
			name:     "day booked in another session",
			actor:    owner,
			update:   &model.BookingUpdate{Date: strPtr("2022-05-11")},
			wantCode: apperrors.CodeDayAlreadyBooked,
		},
		{
			name:     "date out of range",
			actor:    owner,
			update:   &model.BookingUpdate{Date: strPtr("2022-06-01")},
			wantCode: apperrors.CodeDateOutOfRange,
		},
		{
			name:     "unknown company",
			actor:    owner,
			update:   &model.BookingUpdate{Companies: &[]string{unknown}},
			wantCode: apperrors.CodeInvalidInput,
		},
		{
			name:   "keep own companies and move day",
			actor:  owner,
			update: &model.BookingUpdate{Companies: &[]string{companyA, companyB}, Date: strPtr("2022-05-12")},
			check: func(t *testing.T, got *model.BookingDetails) {
				if !got.Date.Equal(time.Date(2022, 5, 12, 0, 0, 0, 0, time.UTC)) {
					t.Errorf("date = %v", got.Date)
				}
				if len(got.Companies) != 2 {
					t.Errorf("companies = %v", got.Companies)
				}
			},
		},
		{
			name:   "same day reschedule is allowed",
			actor:  owner,
			update: &model.BookingUpdate{Date: strPtr("2022-05-10T15:30:00Z")},
		},
		{
			name:   "admin updates note with date",
			actor:  admin,
			update: &model.BookingUpdate{Date: strPtr("2022-05-10T14:00:00Z"), Note: strPtr("moved to room 4")},
			check: func(t *testing.T, got *model.BookingDetails) {
				if got.Note != "moved to room 4" || got.UserID != ownerID {
					t.Errorf("unexpected result %+v", got.Booking)
				}
				if got.Companies[0] != companyA {
					t.Errorf("companies changed: %v", got.Companies)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			target := f.store.seed(&model.Booking{UserID: ownerID, Date: day(10), Companies: []string{companyA}})
			f.store.seed(&model.Booking{UserID: ownerID, Date: day(11), Companies: []string{companyC}})

			got, err := f.svc.Update(context.Background(), tt.actor, target.ID, tt.update)
			if tt.wantCode != "" {
				assertCode(t, err, tt.wantCode)
				stored, _ := f.repo.findByIDFunc(context.Background(), target.ID)
				if !stored.Date.Equal(day(10)) || len(stored.Companies) != 1 {
					t.Errorf("rejected update mutated booking: %+v", stored)
				}
				return
			}
			if err != nil {
				t.Fatalf("Update() error = %v", err)
			}
			if tt.check != nil {
				tt.check(t, got)
			}
			if types := f.publisher.types(); len(types) != 1 || types[0] != model.BookingUpdated {
				t.Errorf("published events = %v", types)
			}
		})
	}
}

func TestUpdate_EmptyPatchNeverReads(t *testing.T) {
	f := newFixture()
	f.repo.findByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		t.Fatal("empty patch must not read storage")
		return nil, nil
	}

	_, err := f.svc.Update(context.Background(), owner, primitive.NewObjectID().Hex(), nil)
	assertCode(t, err, apperrors.CodeInvalidInput)
}

func TestUpdate_NoteOnlyNeverTouchesStorage(t *testing.T) {
	f := newFixture()
	f.repo.findByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		t.Fatal("note-only patch must not read storage")
		return nil, nil
	}
	f.repo.updateFunc = func(ctx context.Context, id string, booking *model.Booking) error {
		t.Fatal("note-only patch must not write storage")
		return nil
	}
	f.locks.acquireFunc = func(ctx context.Context, lock *model.BookingLock) error {
		t.Fatal("note-only patch must not take the owner lock")
		return nil
	}

	_, err := f.svc.Update(context.Background(), owner, primitive.NewObjectID().Hex(), &model.BookingUpdate{Note: strPtr("bring CV")})
	assertCode(t, err, apperrors.CodeInvalidInput)
	if types := f.publisher.types(); len(types) != 0 {
		t.Errorf("published events = %v", types)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Update(context.Background(), owner, primitive.NewObjectID().Hex(), &model.BookingUpdate{Date: strPtr("2022-05-12")})
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestUpdate_AdminChecksAgainstOwner(t *testing.T) {
	f := newFixture()
	target := f.store.seed(&model.Booking{UserID: ownerID, Date: day(10), Companies: []string{companyA}})
	f.store.seed(&model.Booking{UserID: ownerID, Date: day(11), Companies: []string{companyB}})
	// The admin's own booking must not influence the owner's checks.
	f.store.seed(&model.Booking{UserID: admin.UserID, Date: day(12), Companies: []string{companyC}})

	if _, err := f.svc.Update(context.Background(), admin, target.ID, &model.BookingUpdate{
		Companies: &[]string{companyC},
		Date:      strPtr("2022-05-12"),
	}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	_, err := f.svc.Update(context.Background(), admin, target.ID, &model.BookingUpdate{Companies: &[]string{companyB}})
	assertCode(t, err, apperrors.CodeCompanyAlreadyBooked)
}

// --- Delete ---

func TestDelete(t *testing.T) {
	tests := []struct {
		name     string
		actor    model.Actor
		missing  bool
		wantCode string
	}{
		{name: "owner", actor: owner},
		{name: "admin", actor: admin},
		{name: "other user", actor: other, wantCode: apperrors.CodeForbidden},
		{name: "missing", actor: owner, missing: true, wantCode: apperrors.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			target := f.store.seed(&model.Booking{UserID: ownerID, Date: day(10), Companies: []string{companyA}})
			id := target.ID
			if tt.missing {
				id = primitive.NewObjectID().Hex()
			}

			err := f.svc.Delete(context.Background(), tt.actor, id)
			if tt.wantCode != "" {
				assertCode(t, err, tt.wantCode)
				if f.store.count() != 1 {
					t.Error("rejected delete removed the booking")
				}
				return
			}
			if err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if f.store.count() != 0 {
				t.Error("booking still stored")
			}
			if types := f.publisher.types(); len(types) != 1 || types[0] != model.BookingDeleted {
				t.Errorf("published events = %v", types)
			}
		})
	}
}

func TestDelete_FreesCapacity(t *testing.T) {
	f := newFixture()
	first := f.store.seed(&model.Booking{UserID: ownerID, Date: day(10), Companies: []string{companyA}})
	f.store.seed(&model.Booking{UserID: ownerID, Date: day(11), Companies: []string{companyB}})
	f.store.seed(&model.Booking{UserID: ownerID, Date: day(12), Companies: []string{companyC}})

	_, err := f.svc.Create(context.Background(), owner, createReq("2022-05-13", companyD))
	assertCode(t, err, apperrors.CodeCapacityExceeded)

	if err := f.svc.Delete(context.Background(), owner, first.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := f.svc.Create(context.Background(), owner, createReq("2022-05-13", companyD)); err != nil {
		t.Fatalf("Create() after delete error = %v", err)
	}
}

// --- Helpers ---

func TestParseDate(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Time
		wantErr bool
	}{
		{input: "2022-05-10", want: time.Date(2022, 5, 10, 0, 0, 0, 0, time.UTC)},
		{input: "2022-05-10T09:30:00Z", want: time.Date(2022, 5, 10, 9, 30, 0, 0, time.UTC)},
		{input: "2022-05-10T09:30:00+07:00", want: time.Date(2022, 5, 10, 2, 30, 0, 0, time.UTC)},
		{input: "May 10", wantErr: true},
		{input: "2022-13-01", wantErr: true},
	}

	for _, tt := range tests {
		got, err := parseDate(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseDate(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && !got.Equal(tt.want) {
			t.Errorf("parseDate(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestPaginate(t *testing.T) {
	items := []*model.Booking{{ID: "1"}, {ID: "2"}, {ID: "3"}}

	if got := paginate(items, 2, 0); len(got) != 2 {
		t.Errorf("first page len = %d", len(got))
	}
	if got := paginate(items, 2, 2); len(got) != 1 || got[0].ID != "3" {
		t.Errorf("second page = %v", got)
	}
	if got := paginate(items, 2, 5); len(got) != 0 {
		t.Errorf("past end = %v", got)
	}
}
