package types

// CreateProfileRequest holds parameters for a new profile.
type CreateProfileRequest struct {
	BirthDate       string `json:"birthDate"`
	InsuranceNumber string `json:"insuranceNumber"`
}

// LoginRequest holds the credentials for a password login.
type LoginRequest struct {
	Email      string
	Password   string
	RememberMe bool
}
