package services

// SubmitRequestCommand opens a new card request for a registered student.
type SubmitRequestCommand struct {
	StudentID string  `json:"studentId" validate:"required,len=9,numeric"`
	Amount    float64 `json:"amount" validate:"required,gt=0"`
}

// RegisterStudentCommand captures the registration form.
type RegisterStudentCommand struct {
	StudentID string `json:"studentId" validate:"required,len=9,numeric"`
	Name      string `json:"name" validate:"required,min=2"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required,min=9"`
}

// InitiatePaymentCommand starts the mobile-money charge for a request.
type InitiatePaymentCommand struct {
	RequestToken string `json:"requestToken" validate:"required"`
	Phone        string `json:"phone" validate:"required,min=9"`
}

// WebhookCommand is the provider callback payload after normalization.
type WebhookCommand struct {
	Reference string
	Succeeded bool
}

// AssignCardCommand attaches admin-supplied card credentials to a request.
type AssignCardCommand struct {
	RequestID  string `json:"requestId" validate:"required,uuid"`
	CardNumber string `json:"cardNumber" validate:"required,min=13,max=19,numeric"`
	CardExpiry string `json:"cardExpiry" validate:"required"`
	CardCVV    string `json:"cardCvv" validate:"required,len=3,numeric"`
}

// AdminActionCommand moves an assigned or pending request to a terminal state.
type AdminActionCommand struct {
	RequestID string `json:"requestId" validate:"required,uuid"`
	Action    string `json:"action" validate:"required,oneof=paid expired declined"`
}

// ContactCommand is a support message from the public contact form.
type ContactCommand struct {
	Name    string `json:"name" validate:"required,min=2"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"required,min=2"`
	Message string `json:"message" validate:"required,min=5"`
}
