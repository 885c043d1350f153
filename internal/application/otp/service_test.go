package otp

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-auth-gate/internal/domain"
	redisinfra "github.com/go-auth-gate/internal/infrastructure/redis"
	"github.com/go-auth-gate/internal/infrastructure/sqlite"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockStore struct{ mock.Mock }

func (m *mockStore) UpsertUser(ctx context.Context, u *domain.User) (*domain.User, error) {
	args := m.Called(ctx, u)
	if out, _ := args.Get(0).(*domain.User); out != nil {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if out, _ := args.Get(0).(*domain.User); out != nil {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockStore) InsertOTP(ctx context.Context, c *domain.OTPCode) error {
	return m.Called(ctx, c).Error(0)
}
func (m *mockStore) RevokeOTPs(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}
func (m *mockStore) ConsumeOTP(ctx context.Context, userID, code string, now time.Time) (bool, error) {
	args := m.Called(ctx, userID, code, now)
	return args.Bool(0), args.Error(1)
}

type mockLimiter struct{ mock.Mock }

func (m *mockLimiter) Reserve(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}
func (m *mockLimiter) Reset(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

// --- helpers ---

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newSQLiteService(t *testing.T) (Service, *clock) {
	t.Helper()
	st, err := sqlite.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	c := &clock{now: time.Now()}
	return NewService(ServiceDeps{Store: st, Now: c.Now}), c
}

var sixDigits = regexp.MustCompile(`^[0-9]{6}$`)

// --- Generate ---

func TestGenerate_MissingEmail(t *testing.T) {
	svc := NewService(ServiceDeps{Store: &mockStore{}})
	_, err := svc.Generate(context.Background(), "  ")
	assert.ErrorIs(t, err, domain.ErrMissingCredentials)
}

func TestGenerate_RevokesPriorCodesBeforeInsert(t *testing.T) {
	st := &mockStore{}
	st.On("UpsertUser", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Email == "a@x.com"
	})).Return(&domain.User{UserID: "u1", Email: "a@x.com"}, nil)
	st.On("RevokeOTPs", mock.Anything, "u1").Return(nil).Once()
	st.On("InsertOTP", mock.Anything, mock.MatchedBy(func(c *domain.OTPCode) bool {
		return c.UserID == "u1" && !c.Used && sixDigits.MatchString(c.Code)
	})).Return(nil)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := NewService(ServiceDeps{Store: st, Now: func() time.Time { return now }})
	issued, err := svc.Generate(context.Background(), " A@X.com ")

	require.NoError(t, err)
	assert.Equal(t, "u1", issued.UserID)
	assert.Regexp(t, sixDigits, issued.Code)
	assert.Equal(t, now.Add(10*time.Minute), issued.ExpiresAt)
	st.AssertExpectations(t)
}

func TestGenerate_StoreFailure(t *testing.T) {
	st := &mockStore{}
	st.On("UpsertUser", mock.Anything, mock.Anything).Return(nil, errors.New("disk full"))

	svc := NewService(ServiceDeps{Store: st})
	_, err := svc.Generate(context.Background(), "a@x.com")
	require.Error(t, err)
	st.AssertNotCalled(t, "InsertOTP", mock.Anything, mock.Anything)
}

func TestGenerate_ReusesUserForSameEmail(t *testing.T) {
	svc, _ := newSQLiteService(t)
	first, err := svc.Generate(context.Background(), "a@x.com")
	require.NoError(t, err)
	second, err := svc.Generate(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, first.UserID, second.UserID)
}

// --- Verify ---

func TestVerify_MissingFields(t *testing.T) {
	svc := NewService(ServiceDeps{Store: &mockStore{}})
	assert.ErrorIs(t, svc.Verify(context.Background(), "", "123456"), domain.ErrMissingCredentials)
	assert.ErrorIs(t, svc.Verify(context.Background(), "u1", ""), domain.ErrMissingCredentials)
}

func TestVerify_EndToEnd_OnceOnly(t *testing.T) {
	svc, _ := newSQLiteService(t)
	ctx := context.Background()

	issued, err := svc.Generate(ctx, "a@x.com")
	require.NoError(t, err)

	assert.NoError(t, svc.Verify(ctx, issued.UserID, issued.Code))
	assert.ErrorIs(t, svc.Verify(ctx, issued.UserID, issued.Code), domain.ErrInvalidOrExpiredCode)
}

func TestVerify_ExpiredCode(t *testing.T) {
	svc, c := newSQLiteService(t)
	ctx := context.Background()

	issued, err := svc.Generate(ctx, "a@x.com")
	require.NoError(t, err)
	c.Advance(10*time.Minute + time.Millisecond)

	assert.ErrorIs(t, svc.Verify(ctx, issued.UserID, issued.Code), domain.ErrInvalidOrExpiredCode)
}

func TestVerify_NewCodeRevokesOld(t *testing.T) {
	svc, _ := newSQLiteService(t)
	ctx := context.Background()

	old, err := svc.Generate(ctx, "a@x.com")
	require.NoError(t, err)
	fresh, err := svc.Generate(ctx, "a@x.com")
	require.NoError(t, err)

	if old.Code != fresh.Code {
		assert.ErrorIs(t, svc.Verify(ctx, old.UserID, old.Code), domain.ErrInvalidOrExpiredCode)
	}
	assert.NoError(t, svc.Verify(ctx, fresh.UserID, fresh.Code))
}

func TestVerify_ConcurrentExactlyOneSuccess(t *testing.T) {
	svc, _ := newSQLiteService(t)
	ctx := context.Background()
	issued, err := svc.Generate(ctx, "a@x.com")
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		start     = make(chan struct{})
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if svc.Verify(ctx, issued.UserID, issued.Code) == nil {
				successes.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()
	assert.Equal(t, int32(1), successes.Load())
}

func TestVerify_LockedOut(t *testing.T) {
	st := &mockStore{}
	lim := &mockLimiter{}
	lim.On("Reserve", mock.Anything, "u1").Return(domain.ErrTooManyAttempts)

	svc := NewService(ServiceDeps{Store: st, Limiter: lim})
	err := svc.Verify(context.Background(), "u1", "123456")

	assert.ErrorIs(t, err, domain.ErrTooManyAttempts)
	st.AssertNotCalled(t, "ConsumeOTP", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestVerify_LimiterUnavailableDoesNotBlock(t *testing.T) {
	st := &mockStore{}
	st.On("ConsumeOTP", mock.Anything, "u1", "123456", mock.Anything).Return(true, nil)
	lim := &mockLimiter{}
	lim.On("Reserve", mock.Anything, "u1").Return(errors.New("dial tcp: refused"))
	lim.On("Reset", mock.Anything, "u1").Return(errors.New("dial tcp: refused"))

	svc := NewService(ServiceDeps{Store: st, Limiter: lim})
	assert.NoError(t, svc.Verify(context.Background(), "u1", "123456"))
}

func TestVerify_AttemptReservedBeforeConsume_SuccessResets(t *testing.T) {
	st := &mockStore{}
	st.On("ConsumeOTP", mock.Anything, "u1", "000000", mock.Anything).Return(false, nil)
	st.On("ConsumeOTP", mock.Anything, "u1", "123456", mock.Anything).Return(true, nil)
	lim := &mockLimiter{}
	lim.On("Reserve", mock.Anything, "u1").Return(nil).Twice()
	lim.On("Reset", mock.Anything, "u1").Return(nil).Once()

	svc := NewService(ServiceDeps{Store: st, Limiter: lim})
	assert.ErrorIs(t, svc.Verify(context.Background(), "u1", "000000"), domain.ErrInvalidOrExpiredCode)
	assert.NoError(t, svc.Verify(context.Background(), "u1", "123456"))
	lim.AssertExpectations(t)
}

// slowStore widens the gap between the limiter and the consume so that
// concurrent guesses overlap.
type slowStore struct {
	*sqlite.Store
	delay    time.Duration
	consumed atomic.Int32
}

func (s *slowStore) ConsumeOTP(ctx context.Context, userID, code string, now time.Time) (bool, error) {
	s.consumed.Add(1)
	time.Sleep(s.delay)
	return s.Store.ConsumeOTP(ctx, userID, code, now)
}

func TestVerify_ConcurrentGuessesBoundedByLimiter(t *testing.T) {
	db, err := sqlite.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	st := &slowStore{Store: db, delay: 20 * time.Millisecond}

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	const maxAttempts = 5

	svc := NewService(ServiceDeps{Store: st, Limiter: redisinfra.NewAttemptLimiter(rdb, maxAttempts, time.Minute)})
	ctx := context.Background()
	issued, err := svc.Generate(ctx, "a@x.com")
	require.NoError(t, err)
	wrong := "000000"
	if issued.Code == wrong {
		wrong = "000001"
	}

	var (
		wg     sync.WaitGroup
		locked atomic.Int32
		start  = make(chan struct{})
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if errors.Is(svc.Verify(ctx, issued.UserID, wrong), domain.ErrTooManyAttempts) {
				locked.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(maxAttempts), st.consumed.Load())
	assert.Equal(t, int32(100-maxAttempts), locked.Load())
	assert.ErrorIs(t, svc.Verify(ctx, issued.UserID, issued.Code), domain.ErrTooManyAttempts)
}

// --- Redeem ---

func TestRedeem_ReturnsUser(t *testing.T) {
	svc, _ := newSQLiteService(t)
	ctx := context.Background()
	issued, err := svc.Generate(ctx, "a@x.com")
	require.NoError(t, err)

	u, err := svc.Redeem(ctx, issued.UserID, issued.Code)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", u.Email)
	assert.Equal(t, issued.UserID, u.UserID)
}

func TestRedeem_UserMissing(t *testing.T) {
	st := &mockStore{}
	st.On("ConsumeOTP", mock.Anything, "u1", "123456", mock.Anything).Return(true, nil)
	st.On("GetUser", mock.Anything, "u1").Return(nil, domain.ErrNotFound)

	svc := NewService(ServiceDeps{Store: st})
	_, err := svc.Redeem(context.Background(), "u1", "123456")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
