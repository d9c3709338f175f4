package otp

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hayzen-ai/hayzen-api/internal/models"
	pkgauth "github.com/hayzen-ai/hayzen-api/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	CreateFunc             func(ctx context.Context, code *models.OneTimeCode) (*models.OneTimeCode, error)
	ListByEmailPurposeFunc func(ctx context.Context, email string, purpose models.OTPPurpose) ([]*models.OneTimeCode, error)
	DeleteExpiredFunc      func(ctx context.Context, email string, purpose models.OTPPurpose, now time.Time) error
	DeleteAllFunc          func(ctx context.Context, email string, purpose models.OTPPurpose) error
}

func (m *mockRepository) Create(ctx context.Context, code *models.OneTimeCode) (*models.OneTimeCode, error) {
	return m.CreateFunc(ctx, code)
}

func (m *mockRepository) ListByEmailPurpose(ctx context.Context, email string, purpose models.OTPPurpose) ([]*models.OneTimeCode, error) {
	return m.ListByEmailPurposeFunc(ctx, email, purpose)
}

func (m *mockRepository) DeleteExpired(ctx context.Context, email string, purpose models.OTPPurpose, now time.Time) error {
	return m.DeleteExpiredFunc(ctx, email, purpose, now)
}

func (m *mockRepository) DeleteAll(ctx context.Context, email string, purpose models.OTPPurpose) error {
	return m.DeleteAllFunc(ctx, email, purpose)
}

// memRepository is an in-memory Repository for tests that exercise a full
// generate/verify sequence.
type memRepository struct {
	codes []*models.OneTimeCode
}

func (m *memRepository) Create(_ context.Context, code *models.OneTimeCode) (*models.OneTimeCode, error) {
	m.codes = append(m.codes, code)
	return code, nil
}

func (m *memRepository) ListByEmailPurpose(_ context.Context, email string, purpose models.OTPPurpose) ([]*models.OneTimeCode, error) {
	var out []*models.OneTimeCode
	for _, c := range m.codes {
		if c.Email == email && c.Purpose == purpose {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memRepository) DeleteExpired(_ context.Context, email string, purpose models.OTPPurpose, now time.Time) error {
	var kept []*models.OneTimeCode
	for _, c := range m.codes {
		if c.Email == email && c.Purpose == purpose && c.IsExpired(now) {
			continue
		}
		kept = append(kept, c)
	}
	m.codes = kept
	return nil
}

func (m *memRepository) DeleteAll(_ context.Context, email string, purpose models.OTPPurpose) error {
	var kept []*models.OneTimeCode
	for _, c := range m.codes {
		if c.Email == email && c.Purpose == purpose {
			continue
		}
		kept = append(kept, c)
	}
	m.codes = kept
	return nil
}

func testConfig() Config {
	return Config{
		TTL:          2 * time.Minute,
		CooldownBase: 1 * time.Minute,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestGenerate_ProducesSixDigitCode(t *testing.T) {
	repo := &memRepository{}
	mgr := NewManager(repo, testConfig(), testLogger())

	code, err := mgr.Generate(context.Background(), "a@x.com", models.OTPPurposeSignup)
	require.NoError(t, err)

	assert.Len(t, code, 6)
	assert.GreaterOrEqual(t, code[0], byte('1'))

	require.Len(t, repo.codes, 1)
	stored := repo.codes[0]
	assert.NotEqual(t, code, stored.CodeHash, "code must be stored hashed")
	assert.NoError(t, pkgauth.ComparePassword(stored.CodeHash, code))
	assert.Equal(t, 2*time.Minute, stored.ExpiresAt.Sub(stored.CreatedAt))
}

func TestGenerate_NoCooldownForFirstTwoRequests(t *testing.T) {
	repo := &memRepository{}
	mgr := NewManager(repo, testConfig(), testLogger())

	_, err := mgr.Generate(context.Background(), "a@x.com", models.OTPPurposeLogin)
	require.NoError(t, err)
	_, err = mgr.Generate(context.Background(), "a@x.com", models.OTPPurposeLogin)
	require.NoError(t, err)

	assert.Len(t, repo.codes, 2)
}

func TestGenerate_CooldownEscalates(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := &memRepository{}
	mgr := NewManager(repo, testConfig(), testLogger()).WithClock(fixedClock(base))

	// Two immediate requests are always allowed.
	_, err := mgr.Generate(context.Background(), "a@x.com", models.OTPPurposeForgot)
	require.NoError(t, err)
	_, err = mgr.Generate(context.Background(), "a@x.com", models.OTPPurposeForgot)
	require.NoError(t, err)

	// Third request inside the 1 minute window is rejected with a wait hint.
	mgr.WithClock(fixedClock(base.Add(30 * time.Second)))
	_, err = mgr.Generate(context.Background(), "a@x.com", models.OTPPurposeForgot)
	require.Error(t, err)
	var rle *models.RateLimitError
	require.ErrorAs(t, err, &rle)
	assert.Equal(t, 30, rle.RetryAfterSeconds)

	// After the window it goes through.
	mgr.WithClock(fixedClock(base.Add(61 * time.Second)))
	_, err = mgr.Generate(context.Background(), "a@x.com", models.OTPPurposeForgot)
	require.NoError(t, err)
	require.Len(t, repo.codes, 3)

	// With three live codes the window doubles: 2 minutes from the newest.
	mgr.WithClock(fixedClock(base.Add(2 * time.Minute)))
	_, err = mgr.Generate(context.Background(), "a@x.com", models.OTPPurposeForgot)
	require.Error(t, err)
	require.ErrorAs(t, err, &rle)
	assert.Equal(t, 61, rle.RetryAfterSeconds)
}

func TestGenerate_ExpiredCodesDoNotCountTowardCooldown(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := &memRepository{}
	mgr := NewManager(repo, testConfig(), testLogger()).WithClock(fixedClock(base))

	for i := 0; i < 2; i++ {
		_, err := mgr.Generate(context.Background(), "a@x.com", models.OTPPurposeLogin)
		require.NoError(t, err)
	}

	// Once both codes expire, the lazy cleanup wipes them and the counter
	// starts over.
	mgr.WithClock(fixedClock(base.Add(3 * time.Minute)))
	_, err := mgr.Generate(context.Background(), "a@x.com", models.OTPPurposeLogin)
	require.NoError(t, err)
	assert.Len(t, repo.codes, 1)
}

func TestGenerate_PurposesAreIsolated(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := &memRepository{}
	mgr := NewManager(repo, testConfig(), testLogger()).WithClock(fixedClock(base))

	for i := 0; i < 2; i++ {
		_, err := mgr.Generate(context.Background(), "a@x.com", models.OTPPurposeLogin)
		require.NoError(t, err)
	}

	// Same email, different purpose: no cooldown carries over.
	_, err := mgr.Generate(context.Background(), "a@x.com", models.OTPPurposeForgot)
	require.NoError(t, err)
}

func TestVerify_Success(t *testing.T) {
	repo := &memRepository{}
	mgr := NewManager(repo, testConfig(), testLogger())

	code, err := mgr.Generate(context.Background(), "a@x.com", models.OTPPurposeSignup)
	require.NoError(t, err)

	err = mgr.Verify(context.Background(), "a@x.com", models.OTPPurposeSignup, code)
	assert.NoError(t, err)

	// Verify does not consume the code; Invalidate does.
	err = mgr.Verify(context.Background(), "a@x.com", models.OTPPurposeSignup, code)
	assert.NoError(t, err)

	require.NoError(t, mgr.Invalidate(context.Background(), "a@x.com", models.OTPPurposeSignup))
	err = mgr.Verify(context.Background(), "a@x.com", models.OTPPurposeSignup, code)
	assert.ErrorIs(t, err, models.ErrOTPNotFound)
}

func TestVerify_NoCode(t *testing.T) {
	repo := &memRepository{}
	mgr := NewManager(repo, testConfig(), testLogger())

	err := mgr.Verify(context.Background(), "a@x.com", models.OTPPurposeLogin, "123456")
	assert.ErrorIs(t, err, models.ErrOTPNotFound)
}

func TestVerify_RepoNotFoundMapsToOTPNotFound(t *testing.T) {
	repo := &mockRepository{
		ListByEmailPurposeFunc: func(_ context.Context, _ string, _ models.OTPPurpose) ([]*models.OneTimeCode, error) {
			return nil, models.ErrNotFound
		},
	}
	mgr := NewManager(repo, testConfig(), testLogger())

	err := mgr.Verify(context.Background(), "a@x.com", models.OTPPurposeLogin, "123456")
	assert.ErrorIs(t, err, models.ErrOTPNotFound)
}

func TestVerify_Expired(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := &memRepository{}
	mgr := NewManager(repo, testConfig(), testLogger()).WithClock(fixedClock(base))

	code, err := mgr.Generate(context.Background(), "a@x.com", models.OTPPurposeForgot)
	require.NoError(t, err)

	mgr.WithClock(fixedClock(base.Add(3 * time.Minute)))
	err = mgr.Verify(context.Background(), "a@x.com", models.OTPPurposeForgot, code)
	assert.ErrorIs(t, err, models.ErrOTPExpired)
}

func TestVerify_Mismatch(t *testing.T) {
	repo := &memRepository{}
	mgr := NewManager(repo, testConfig(), testLogger())

	code, err := mgr.Generate(context.Background(), "a@x.com", models.OTPPurposeLogin)
	require.NoError(t, err)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	err = mgr.Verify(context.Background(), "a@x.com", models.OTPPurposeLogin, wrong)
	assert.ErrorIs(t, err, models.ErrOTPMismatch)
}

func TestVerify_OnlyNewestCodeCounts(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := &memRepository{}
	mgr := NewManager(repo, testConfig(), testLogger()).WithClock(fixedClock(base))

	first, err := mgr.Generate(context.Background(), "a@x.com", models.OTPPurposeLogin)
	require.NoError(t, err)
	second, err := mgr.Generate(context.Background(), "a@x.com", models.OTPPurposeLogin)
	require.NoError(t, err)

	if first != second {
		err = mgr.Verify(context.Background(), "a@x.com", models.OTPPurposeLogin, first)
		assert.ErrorIs(t, err, models.ErrOTPMismatch)
	}
	err = mgr.Verify(context.Background(), "a@x.com", models.OTPPurposeLogin, second)
	assert.NoError(t, err)
}
