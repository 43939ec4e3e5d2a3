package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/josephasare/virtual-card-service/internal/domain"
	"github.com/josephasare/virtual-card-service/internal/infrastructure/persistence/memory"
)

type AssignmentServiceTestSuite struct {
	suite.Suite
	requests  *memory.RequestStore
	students  *memory.StudentStore
	notifier  *RecordingNotifier
	lifecycle *LifecycleService
	service   *AssignmentService
}

func TestAssignmentServiceSuite(t *testing.T) {
	suite.Run(t, new(AssignmentServiceTestSuite))
}

func (suite *AssignmentServiceTestSuite) SetupTest() {
	logger := slog.New(slog.DiscardHandler)
	suite.requests = memory.NewRequestStore()
	suite.students = memory.NewStudentStore()
	suite.notifier = &RecordingNotifier{}
	suite.lifecycle = NewLifecycleService(
		suite.requests, suite.students, &MockGateway{}, suite.notifier, testQuote(), logger)
	suite.service = NewAssignmentService(
		suite.requests, suite.students, suite.notifier, testQuote(), logger)

	student := domain.NewStudent("123456789", "Ama Mensah", "ama@byupathway.edu", "0241234567")
	suite.Require().NoError(suite.students.Create(context.Background(), student))
}

func (suite *AssignmentServiceTestSuite) submit() *domain.CardRequest {
	req, err := suite.lifecycle.SubmitRequest(context.Background(), SubmitRequestCommand{
		StudentID: "123456789",
		Amount:    100,
	})
	suite.Require().NoError(err)
	return req
}

func (suite *AssignmentServiceTestSuite) TestAssignManual() {
	req := suite.submit()

	assigned, err := suite.service.AssignManual(context.Background(), AssignCardCommand{
		RequestID:  req.ID.String(),
		CardNumber: "4111111111111111",
		CardExpiry: "08/28",
		CardCVV:    "123",
	})
	suite.Require().NoError(err)

	suite.Equal(domain.StatusAssigned, assigned.Status)
	suite.Equal("4111111111111111", *assigned.CardNumber)
	suite.Require().NotNil(assigned.CardExpiresAt)
	suite.WithinDuration(time.Now().Add(5*time.Hour), *assigned.CardExpiresAt, 2*time.Second)
	suite.Equal([]string{req.RequestToken}, suite.notifier.Assigned)
}

func (suite *AssignmentServiceTestSuite) TestAssignGenerated_MintsCard() {
	req := suite.submit()

	assigned, err := suite.service.AssignGenerated(context.Background(), req.ID.String())
	suite.Require().NoError(err)

	suite.Require().NotNil(assigned.CardNumber)
	suite.Len(*assigned.CardNumber, 16)
	suite.Equal(byte('4'), (*assigned.CardNumber)[0])
	suite.Regexp(`^\d{2}/\d{2}$`, *assigned.CardExpiry)
	suite.Regexp(`^\d{3}$`, *assigned.CardCVV)
}

func (suite *AssignmentServiceTestSuite) TestAssign_RejectsNonPending() {
	req := suite.submit()
	_, err := suite.service.AssignGenerated(context.Background(), req.ID.String())
	suite.Require().NoError(err)

	_, err = suite.service.AssignGenerated(context.Background(), req.ID.String())
	suite.True(domain.HasCode(err, domain.ErrCodeInvalidTransition))
}

func (suite *AssignmentServiceTestSuite) TestAdminAction_PaidRequiresAssigned() {
	req := suite.submit()

	_, err := suite.service.AdminAction(context.Background(), AdminActionCommand{
		RequestID: req.ID.String(),
		Action:    "paid",
	})
	suite.True(domain.HasCode(err, domain.ErrCodeInvalidTransition))
}

func (suite *AssignmentServiceTestSuite) TestAdminAction_MarksUsedCardPaid() {
	req := suite.submit()
	_, err := suite.service.AssignGenerated(context.Background(), req.ID.String())
	suite.Require().NoError(err)

	done, err := suite.service.AdminAction(context.Background(), AdminActionCommand{
		RequestID: req.ID.String(),
		Action:    "paid",
	})
	suite.Require().NoError(err)
	suite.Equal(domain.StatusPaid, done.Status)
	suite.NotNil(done.PaidAt)

	// Replay is a no-op success.
	again, err := suite.service.AdminAction(context.Background(), AdminActionCommand{
		RequestID: req.ID.String(),
		Action:    "paid",
	})
	suite.Require().NoError(err)
	suite.Equal(done.Version, again.Version)
}

func (suite *AssignmentServiceTestSuite) TestAdminAction_DeclineFromPending() {
	req := suite.submit()

	done, err := suite.service.AdminAction(context.Background(), AdminActionCommand{
		RequestID: req.ID.String(),
		Action:    "declined",
	})
	suite.Require().NoError(err)
	suite.Equal(domain.StatusDeclined, done.Status)
}

func (suite *AssignmentServiceTestSuite) TestExpireCard_NotifiesStudent() {
	req := suite.submit()
	_, err := suite.service.AssignGenerated(context.Background(), req.ID.String())
	suite.Require().NoError(err)

	expired, err := suite.service.ExpireCard(context.Background(), req.ID)
	suite.Require().NoError(err)
	suite.Equal(domain.StatusExpired, expired.Status)
	suite.Equal([]string{req.RequestToken}, suite.notifier.Expired)

	// A second sweep pass over the same record sends nothing new.
	_, err = suite.service.ExpireCard(context.Background(), req.ID)
	suite.Require().NoError(err)
	suite.Len(suite.notifier.Expired, 1)
}

func TestGenerateCard(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	card := generateCard(now)

	assert.Len(t, card.Number, 16)
	assert.Equal(t, "03/28", card.Expiry)
	assert.Len(t, card.CVV, 3)
}
