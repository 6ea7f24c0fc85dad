package dto

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type LoginResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int          `json:"expires_in"`
	User         UserResponse `json:"user"`
}

type CreateUserRequest struct {
	Username string  `json:"username" validate:"required,min=3"`
	Password string  `json:"password" validate:"required,min=4"`
	FullName string  `json:"full_name" validate:"required"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Role     string  `json:"role" validate:"required,oneof=viewer manager administrator"`
}

type UpdateUserRequest struct {
	Password string  `json:"password"`
	FullName string  `json:"full_name"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Role     string  `json:"role" validate:"omitempty,oneof=viewer manager administrator"`
}

type UserResponse struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	FullName string  `json:"full_name"`
	Email    *string `json:"email,omitempty"`
	Role     string  `json:"role"`
	Active   bool    `json:"active"`
}
