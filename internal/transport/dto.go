package transport

import (
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/internal/models"
)

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"username"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	UserID      string `json:"userId"`
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// Response is the envelope every endpoint answers with.
type Response struct {
	Error   bool     `json:"error"`
	Errors  []string `json:"errors"`
	Data    any      `json:"data"`
	Message string   `json:"message"`
	Status  int      `json:"status"`
}

func OK(status int, message string, data any) Response {
	if data == nil {
		data = struct{}{}
	}
	return Response{Errors: []string{}, Data: data, Message: message, Status: status}
}

func Fail(status int, message string, errs []string) Response {
	if errs == nil {
		errs = []string{}
	}
	return Response{Error: true, Errors: errs, Data: nil, Message: message, Status: status}
}

// User is the public projection of models.User.
type User struct {
	ID         uuid.UUID `json:"id"`
	Email      string    `json:"email"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	Username   string    `json:"username"`
	IsUser     bool      `json:"isUser"`
	IsAdmin    bool      `json:"isAdmin"`
	IsMerchant bool      `json:"isMerchant"`
	IsSuper    bool      `json:"isSuper"`
	IsGuest    bool      `json:"isGuest"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func UserFrom(u *models.User) User {
	return User{
		ID:         u.ID,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Username:   u.Username,
		IsUser:     u.IsUser,
		IsAdmin:    u.IsAdmin,
		IsMerchant: u.IsMerchant,
		IsSuper:    u.IsSuper,
		IsGuest:    u.IsGuest,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

type LoginResponse struct {
	User
	AuthToken string `json:"authToken"`
}
