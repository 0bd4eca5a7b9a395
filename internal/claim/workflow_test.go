package claim

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PatchLore/midnight-typer/internal/forest"
	"github.com/PatchLore/midnight-typer/internal/impact"
	"github.com/PatchLore/midnight-typer/internal/payment"
	"github.com/PatchLore/midnight-typer/internal/shared/errors"
	"github.com/PatchLore/midnight-typer/internal/star"
)

type fakeStarStore struct {
	mu    sync.Mutex
	stars map[string]*star.Record
}

func newFakeStarStore(records ...*star.Record) *fakeStarStore {
	s := &fakeStarStore{stars: make(map[string]*star.Record)}
	for _, r := range records {
		s.stars[r.ID] = r
	}
	return s
}

func (f *fakeStarStore) GetStar(_ context.Context, id string) (*star.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, ok := f.stars[id]
	if !ok {
		return nil, nil
	}
	copied := *r
	return &copied, nil
}

func (f *fakeStarStore) MarkClaimed(_ context.Context, id, paymentReference string) (*star.Record, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, ok := f.stars[id]
	if !ok {
		return nil, false, nil
	}
	if r.Status != star.StatusUnclaimed {
		copied := *r
		return &copied, false, nil
	}

	now := time.Now()
	r.Status = star.StatusClaimed
	r.ClaimedAt = &now
	r.PaymentReference = &paymentReference
	copied := *r
	return &copied, true, nil
}

type fakeLedger struct {
	mu        sync.Mutex
	available int
	consumed  int
	refunded  int
}

func (f *fakeLedger) ConsumeSlot(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.available <= 0 {
		return errors.RateLimitedf("no available slots, type %d more words to unlock one", 1000)
	}
	f.available--
	f.consumed++
	return nil
}

func (f *fakeLedger) RefundSlot(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.available++
	f.refunded++
	return nil
}

type fakeImpact struct {
	mu      sync.Mutex
	counter impact.Counter
}

func (f *fakeImpact) IncrementStarsClaimed(_ context.Context) (*impact.Counter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.counter.TotalStarsClaimed++
	copied := f.counter
	return &copied, nil
}

func (f *fakeImpact) IncrementTreesPlanted(_ context.Context) (*impact.Counter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.counter.TotalTreesPlanted++
	copied := f.counter
	return &copied, nil
}

func (f *fakeImpact) snapshot() impact.Counter {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counter
}

type fakeLimiter struct {
	allowed bool
	err     error
}

func (f *fakeLimiter) Allow(_ context.Context, _ string) (bool, error) {
	return f.allowed, f.err
}

type fakeGateway struct {
	err      error
	requests []payment.CheckoutRequest
}

func (f *fakeGateway) CreateCheckoutSession(_ context.Context, req payment.CheckoutRequest) (*payment.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.requests = append(f.requests, req)
	return &payment.Session{ID: "cs_test_123", URL: "https://checkout.example/cs_test_123"}, nil
}

type fakePlanter struct {
	mu     sync.Mutex
	result *forest.PlantResult
	err    error
	calls  int
}

func (f *fakePlanter) PlantTree(_ context.Context) (*forest.PlantResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakePlanter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeSender struct {
	mu       sync.Mutex
	err      error
	sent     int
	lastTo   string
	lastBody string
}

func (f *fakeSender) Send(_ context.Context, to, subject, htmlBody string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	f.sent++
	f.lastTo = to
	f.lastBody = htmlBody
	return nil
}

type fakeIssuer struct {
	issued chan string
}

func newFakeIssuer() *fakeIssuer {
	return &fakeIssuer{issued: make(chan string, 8)}
}

func (f *fakeIssuer) Issue(_ context.Context, starID, _ string) (string, error) {
	f.issued <- starID
	return "https://server.example/certificates/certificate-" + starID + ".pdf", nil
}

type workflowFixture struct {
	stars    *fakeStarStore
	ledger   *fakeLedger
	impact   *fakeImpact
	limiter  *fakeLimiter
	gateway  *fakeGateway
	planter  *fakePlanter
	sender   *fakeSender
	issuer   *fakeIssuer
	workflow *Workflow
}

func unclaimedStar(id, userID string) *star.Record {
	return &star.Record{
		ID:     id,
		UserID: userID,
		Star: star.Descriptor{
			ID: "star-" + id,
		},
		Status:    star.StatusUnclaimed,
		CreatedAt: time.Now(),
	}
}

func newFixture(records ...*star.Record) *workflowFixture {
	f := &workflowFixture{
		stars:   newFakeStarStore(records...),
		ledger:  &fakeLedger{available: 1},
		impact:  &fakeImpact{},
		limiter: &fakeLimiter{allowed: true},
		gateway: &fakeGateway{},
		planter: &fakePlanter{result: &forest.PlantResult{Success: true, TreeID: "tree-1"}},
		sender:  &fakeSender{},
		issuer:  newFakeIssuer(),
	}

	f.workflow = NewWorkflow(
		f.stars,
		f.ledger,
		f.impact,
		f.limiter,
		f.gateway,
		f.planter,
		f.sender,
		f.issuer,
		Config{SideEffectTimeout: time.Second},
		slog.Default(),
	)
	return f
}

func (f *workflowFixture) waitForCertificate(t *testing.T) string {
	t.Helper()
	select {
	case id := <-f.issuer.issued:
		return id
	case <-time.After(2 * time.Second):
		t.Fatal("certificate issuance never ran")
		return ""
	}
}

func TestInitiateClaim(t *testing.T) {
	f := newFixture(unclaimedStar("star-1", "user-1"))

	session, err := f.workflow.InitiateClaim(context.Background(), "star-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "cs_test_123", session.ID)
	assert.NotEmpty(t, session.URL)
	assert.Equal(t, 1, f.ledger.consumed)

	require.Len(t, f.gateway.requests, 1)
	assert.Equal(t, "star-1", f.gateway.requests[0].StarID)
	assert.Equal(t, "Unnamed Star", f.gateway.requests[0].StarName)
}

func TestInitiateClaimErrors(t *testing.T) {
	tests := []struct {
		name     string
		prepare  func(*workflowFixture)
		starID   string
		userID   string
		wantType errors.ErrorType
	}{
		{
			name:     "missing ids",
			prepare:  func(*workflowFixture) {},
			starID:   "",
			userID:   "",
			wantType: errors.ErrorTypeValidation,
		},
		{
			name:     "rate limited",
			prepare:  func(f *workflowFixture) { f.limiter.allowed = false },
			starID:   "star-1",
			userID:   "user-1",
			wantType: errors.ErrorTypeRateLimited,
		},
		{
			name:     "star not found",
			prepare:  func(*workflowFixture) {},
			starID:   "star-missing",
			userID:   "user-1",
			wantType: errors.ErrorTypeNotFound,
		},
		{
			name: "already claimed",
			prepare: func(f *workflowFixture) {
				f.stars.stars["star-1"].Status = star.StatusClaimed
			},
			starID:   "star-1",
			userID:   "user-1",
			wantType: errors.ErrorTypeConflict,
		},
		{
			name:     "not the owner",
			prepare:  func(*workflowFixture) {},
			starID:   "star-1",
			userID:   "somebody-else",
			wantType: errors.ErrorTypeForbidden,
		},
		{
			name:     "no slots left",
			prepare:  func(f *workflowFixture) { f.ledger.available = 0 },
			starID:   "star-1",
			userID:   "user-1",
			wantType: errors.ErrorTypeRateLimited,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(unclaimedStar("star-1", "user-1"))
			tt.prepare(f)

			_, err := f.workflow.InitiateClaim(context.Background(), tt.starID, tt.userID)
			require.Error(t, err)
			assert.Equal(t, tt.wantType, errors.GetType(err))
		})
	}
}

func TestInitiateClaimAdmitsOnLimiterError(t *testing.T) {
	f := newFixture(unclaimedStar("star-1", "user-1"))
	f.limiter.allowed = false
	f.limiter.err = fmt.Errorf("redis unavailable")

	_, err := f.workflow.InitiateClaim(context.Background(), "star-1", "user-1")
	assert.NoError(t, err)
}

func TestInitiateClaimOrderChecksBeforeSlot(t *testing.T) {
	// A claim on somebody else's star must fail before a slot is spent.
	f := newFixture(unclaimedStar("star-1", "user-1"))

	_, err := f.workflow.InitiateClaim(context.Background(), "star-1", "intruder")
	require.Error(t, err)
	assert.Equal(t, 0, f.ledger.consumed)
}

func completedPayment(starID string) payment.CompletedPayment {
	return payment.CompletedPayment{
		SessionID:  "cs_test_123",
		StarID:     starID,
		UserID:     "user-1",
		StarName:   "Unnamed Star",
		PayerEmail: "payer@example.com",
		PayerName:  "Ada",
	}
}

func TestConfirmClaim(t *testing.T) {
	f := newFixture(unclaimedStar("star-1", "user-1"))

	result, err := f.workflow.ConfirmClaim(context.Background(), completedPayment("star-1"))
	require.NoError(t, err)

	assert.False(t, result.AlreadyClaimed)
	assert.Equal(t, star.StatusClaimed, result.Star.Status)
	require.NotNil(t, result.Star.PaymentReference)
	assert.Equal(t, "cs_test_123", *result.Star.PaymentReference)
	assert.Equal(t, int64(1), result.StarsClaimed)
	assert.False(t, result.TreePlantedThisTime)

	assert.Equal(t, "star-1", f.waitForCertificate(t))
}

func TestConfirmClaimIdempotent(t *testing.T) {
	f := newFixture(unclaimedStar("star-1", "user-1"))
	ctx := context.Background()

	first, err := f.workflow.ConfirmClaim(ctx, completedPayment("star-1"))
	require.NoError(t, err)
	require.False(t, first.AlreadyClaimed)
	f.waitForCertificate(t)

	second, err := f.workflow.ConfirmClaim(ctx, completedPayment("star-1"))
	require.NoError(t, err)
	assert.True(t, second.AlreadyClaimed)
	assert.Equal(t, star.StatusClaimed, second.Star.Status)

	// The duplicate touched no counters and ran no side effects.
	assert.Equal(t, int64(1), f.impact.snapshot().TotalStarsClaimed)
	assert.Equal(t, 0, f.planter.callCount())
}

func TestConfirmClaimUnknownStar(t *testing.T) {
	f := newFixture()

	_, err := f.workflow.ConfirmClaim(context.Background(), completedPayment("star-missing"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeNotFound, errors.GetType(err))
}

func TestConfirmClaimTreeMilestone(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	// Nine claims already counted; the tenth crosses the milestone.
	f.impact.counter.TotalStarsClaimed = 9
	f.stars.stars["star-10"] = unclaimedStar("star-10", "user-1")

	result, err := f.workflow.ConfirmClaim(ctx, completedPayment("star-10"))
	require.NoError(t, err)

	assert.Equal(t, int64(10), result.StarsClaimed)
	assert.True(t, result.TreePlantedThisTime)
	assert.Equal(t, "tree-1", result.TreeID)
	assert.Equal(t, int64(1), result.TreesPlanted)
	assert.True(t, result.CelebrationEmailSent)
	assert.Equal(t, 1, f.planter.callCount())
	assert.Equal(t, "payer@example.com", f.sender.lastTo)
	assert.Contains(t, f.sender.lastBody, "Ada")
	f.waitForCertificate(t)
}

func TestConfirmClaimMilestoneNotCrossed(t *testing.T) {
	f := newFixture(unclaimedStar("star-1", "user-1"))

	result, err := f.workflow.ConfirmClaim(context.Background(), completedPayment("star-1"))
	require.NoError(t, err)

	assert.False(t, result.TreePlantedThisTime)
	assert.Equal(t, 0, f.planter.callCount())
	assert.Equal(t, int64(0), f.impact.snapshot().TotalTreesPlanted)
	f.waitForCertificate(t)
}

func TestConfirmClaimPlantFailureDoesNotFailClaim(t *testing.T) {
	f := newFixture()
	f.impact.counter.TotalStarsClaimed = 9
	f.planter.err = fmt.Errorf("partner api down")
	f.stars.stars["star-10"] = unclaimedStar("star-10", "user-1")

	result, err := f.workflow.ConfirmClaim(context.Background(), completedPayment("star-10"))
	require.NoError(t, err)

	assert.False(t, result.TreePlantedThisTime)
	assert.Equal(t, int64(0), f.impact.snapshot().TotalTreesPlanted)
	assert.Equal(t, 0, f.sender.sent)
	f.waitForCertificate(t)
}

func TestConfirmClaimTreeCounterFollowsPlantSuccess(t *testing.T) {
	f := newFixture()
	f.impact.counter.TotalStarsClaimed = 9
	f.planter.result = &forest.PlantResult{Success: false, Message: "no credit"}
	f.stars.stars["star-10"] = unclaimedStar("star-10", "user-1")

	result, err := f.workflow.ConfirmClaim(context.Background(), completedPayment("star-10"))
	require.NoError(t, err)

	// The milestone fired but the planting was rejected, so the tree
	// counter must not move.
	assert.False(t, result.TreePlantedThisTime)
	assert.Equal(t, int64(0), f.impact.snapshot().TotalTreesPlanted)
	f.waitForCertificate(t)
}

func TestCancelClaim(t *testing.T) {
	f := newFixture(unclaimedStar("star-1", "user-1"))

	err := f.workflow.CancelClaim(context.Background(), "star-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, f.ledger.refunded)
}

func TestCancelClaimWithRefundPolicy(t *testing.T) {
	f := newFixture(unclaimedStar("star-1", "user-1"))
	f.workflow.cfg.RefundSlotOnCancel = true

	err := f.workflow.CancelClaim(context.Background(), "star-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, f.ledger.refunded)
}

func TestCancelClaimErrors(t *testing.T) {
	tests := []struct {
		name     string
		prepare  func(*workflowFixture)
		starID   string
		userID   string
		wantType errors.ErrorType
	}{
		{
			name:     "star not found",
			prepare:  func(*workflowFixture) {},
			starID:   "star-missing",
			userID:   "user-1",
			wantType: errors.ErrorTypeNotFound,
		},
		{
			name:     "not the owner",
			prepare:  func(*workflowFixture) {},
			starID:   "star-1",
			userID:   "intruder",
			wantType: errors.ErrorTypeForbidden,
		},
		{
			name: "already claimed",
			prepare: func(f *workflowFixture) {
				f.stars.stars["star-1"].Status = star.StatusClaimed
			},
			starID:   "star-1",
			userID:   "user-1",
			wantType: errors.ErrorTypeConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(unclaimedStar("star-1", "user-1"))
			tt.prepare(f)

			err := f.workflow.CancelClaim(context.Background(), tt.starID, tt.userID)
			require.Error(t, err)
			assert.Equal(t, tt.wantType, errors.GetType(err))
		})
	}
}
