package postgres

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/josephasare/virtual-card-service/internal/domain"
)

func decimalToNumeric(d decimal.Decimal) (pgtype.Numeric, error) {
	n := pgtype.Numeric{}
	if err := n.Scan(d.String()); err != nil {
		return n, fmt.Errorf("convert decimal: %w", err)
	}
	return n, nil
}

func numericToDecimal(n pgtype.Numeric) (decimal.Decimal, error) {
	var dec decimal.Decimal
	str, err := n.MarshalJSON()
	if err != nil {
		return dec, fmt.Errorf("marshal numeric: %w", err)
	}
	if len(str) >= 2 && str[0] == '"' && str[len(str)-1] == '"' {
		str = str[1 : len(str)-1]
	}
	return decimal.NewFromString(string(str))
}

func toDBModel(r *domain.CardRequest) (*CardRequestModel, error) {
	requested, err := decimalToNumeric(r.RequestedAmount)
	if err != nil {
		return nil, err
	}
	local, err := decimalToNumeric(r.LocalAmount)
	if err != nil {
		return nil, err
	}
	rate, err := decimalToNumeric(r.ExchangeRate)
	if err != nil {
		return nil, err
	}
	fee, err := decimalToNumeric(r.FeePercent)
	if err != nil {
		return nil, err
	}
	total, err := decimalToNumeric(r.TotalLocalAmount)
	if err != nil {
		return nil, err
	}

	return &CardRequestModel{
		ID:                r.ID,
		StudentID:         r.StudentID,
		RequestedAmount:   requested,
		LocalAmount:       local,
		ExchangeRate:      rate,
		FeePercent:        fee,
		TotalLocalAmount:  total,
		Purpose:           r.Purpose,
		Status:            string(r.Status),
		PaymentStatus:     string(r.PaymentStatus),
		PaymentMethod:     r.PaymentMethod,
		RequestToken:      r.RequestToken,
		PaymentReference:  r.PaymentReference,
		ProviderHandle:    r.ProviderHandle,
		CardNumber:        r.CardNumber,
		CardExpiry:        r.CardExpiry,
		CardCVV:           r.CardCVV,
		PaymentVerifiedAt: r.PaymentVerifiedAt,
		AssignedAt:        r.AssignedAt,
		CardExpiresAt:     r.CardExpiresAt,
		PaidAt:            r.PaidAt,
		CreatedAt:         r.CreatedAt,
		Version:           r.Version,
	}, nil
}

func toDomainModel(m *CardRequestModel) (*domain.CardRequest, error) {
	requested, err := numericToDecimal(m.RequestedAmount)
	if err != nil {
		return nil, err
	}
	local, err := numericToDecimal(m.LocalAmount)
	if err != nil {
		return nil, err
	}
	rate, err := numericToDecimal(m.ExchangeRate)
	if err != nil {
		return nil, err
	}
	fee, err := numericToDecimal(m.FeePercent)
	if err != nil {
		return nil, err
	}
	total, err := numericToDecimal(m.TotalLocalAmount)
	if err != nil {
		return nil, err
	}

	return &domain.CardRequest{
		ID:                m.ID,
		StudentID:         m.StudentID,
		RequestedAmount:   requested,
		LocalAmount:       local,
		ExchangeRate:      rate,
		FeePercent:        fee,
		TotalLocalAmount:  total,
		Purpose:           m.Purpose,
		Status:            domain.Status(m.Status),
		PaymentStatus:     domain.PaymentStatus(m.PaymentStatus),
		PaymentMethod:     m.PaymentMethod,
		RequestToken:      m.RequestToken,
		PaymentReference:  m.PaymentReference,
		ProviderHandle:    m.ProviderHandle,
		CardNumber:        m.CardNumber,
		CardExpiry:        m.CardExpiry,
		CardCVV:           m.CardCVV,
		PaymentVerifiedAt: m.PaymentVerifiedAt,
		AssignedAt:        m.AssignedAt,
		CardExpiresAt:     m.CardExpiresAt,
		PaidAt:            m.PaidAt,
		CreatedAt:         m.CreatedAt,
		Version:           m.Version,
	}, nil
}

func toStudentDomain(m *StudentModel) *domain.Student {
	return &domain.Student{
		ID:        m.ID,
		StudentID: m.StudentID,
		Name:      m.Name,
		Email:     m.Email,
		Phone:     m.Phone,
		CreatedAt: m.CreatedAt,
	}
}
