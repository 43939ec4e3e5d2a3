package services

import (
	"context"
	"sync"

	"github.com/josephasare/virtual-card-service/internal/application"
	"github.com/josephasare/virtual-card-service/internal/domain"
)

// MockGateway is a scripted provider. Each Initiate/CheckStatus call pops the
// next queued result; an empty queue settles synchronously.
type MockGateway struct {
	mu sync.Mutex

	InitiateResults []initiateResult
	StatusResults   []statusResult

	InitiateCalls []application.InitiateRequest
	StatusCalls   []string
}

type initiateResult struct {
	resp *application.InitiateResponse
	err  error
}

type statusResult struct {
	resp *application.StatusResponse
	err  error
}

func (m *MockGateway) Name() string { return "mock" }

func (m *MockGateway) QueueInitiate(resp *application.InitiateResponse, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InitiateResults = append(m.InitiateResults, initiateResult{resp, err})
}

func (m *MockGateway) QueueStatus(status domain.PaymentStatus, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StatusResults = append(m.StatusResults, statusResult{&application.StatusResponse{Status: status}, err})
}

func (m *MockGateway) Initiate(ctx context.Context, req application.InitiateRequest) (*application.InitiateResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InitiateCalls = append(m.InitiateCalls, req)

	if len(m.InitiateResults) == 0 {
		return &application.InitiateResponse{ProviderHandle: "mock-handle", Status: domain.PaymentPending}, nil
	}
	next := m.InitiateResults[0]
	m.InitiateResults = m.InitiateResults[1:]
	return next.resp, next.err
}

func (m *MockGateway) CheckStatus(ctx context.Context, providerHandle string) (*application.StatusResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StatusCalls = append(m.StatusCalls, providerHandle)

	if len(m.StatusResults) == 0 {
		return &application.StatusResponse{Status: domain.PaymentPending}, nil
	}
	next := m.StatusResults[0]
	m.StatusResults = m.StatusResults[1:]
	return next.resp, next.err
}

// RecordingNotifier counts deliveries per event so tests can assert the
// exactly-once guarantees.
type RecordingNotifier struct {
	mu sync.Mutex

	Submitted []string
	Confirmed []string
	Assigned  []string
	Expired   []string
	Contacts  []string
}

func (n *RecordingNotifier) RequestSubmitted(ctx context.Context, student *domain.Student, req *domain.CardRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Submitted = append(n.Submitted, req.RequestToken)
	return nil
}

func (n *RecordingNotifier) PaymentConfirmed(ctx context.Context, student *domain.Student, req *domain.CardRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Confirmed = append(n.Confirmed, req.PaymentReference)
	return nil
}

func (n *RecordingNotifier) CardAssigned(ctx context.Context, student *domain.Student, req *domain.CardRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Assigned = append(n.Assigned, req.RequestToken)
	return nil
}

func (n *RecordingNotifier) CardExpired(ctx context.Context, student *domain.Student, req *domain.CardRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Expired = append(n.Expired, req.RequestToken)
	return nil
}

func (n *RecordingNotifier) ContactReceived(ctx context.Context, msg *domain.ContactMessage) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Contacts = append(n.Contacts, msg.Subject)
	return nil
}
